package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"edicanon/internal"
	"edicanon/internal/config"
	"edicanon/internal/storage"
)

func TestRunCycleDropDir(t *testing.T) {
	base := t.TempDir()
	cfg := config.Config{
		RawDocDir:          filepath.Join(base, "raw"),
		OutputDir:          filepath.Join(base, "out"),
		GatewayDropDir:     filepath.Join(base, "drop"),
		ListenerConnectors: "dropdir",
		ListenerFetchMax:   50,
		ListenerAutoExport: true,
		ProcessBatch:       100,
		ProcessWorkers:     2,
	}
	require.NoError(t, os.MkdirAll(cfg.GatewayDropDir, 0o755))

	payload := `{
		"Header": {"CompanyCode": "010", "PurchaseOrderNumber": "PO 55/001", "POType": "SA"},
		"LineItems": {"LineItem": [{
			"LineSequence": "1", "VendorStyle": "ST1", "GTIN": "00012345678905",
			"ColorDescription": "BLACK", "SizeDescription": "M",
			"SDQ": {"SDQ03": "00108", "SDQ04": "2"}
		}]}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(cfg.GatewayDropDir, "po.json"), []byte(payload), 0o644))

	db, err := storage.Open(filepath.Join(base, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db, cfg, nil)
	require.NoError(t, svc.runCycle(context.Background()))

	records, err := db.ListSourceRecordsByStatus(internal.StatusExported, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	header, err := db.GetHeaderBySourceRecordID(records[0].ID)
	require.NoError(t, err)
	require.NotNil(t, header)
	require.Equal(t, 1, header.Version)

	// Unsafe filename characters in the PO number are flattened.
	reportPath := filepath.Join(cfg.OutputDir, "reports", "010_PO_55_001_v1_1.xlsx")
	_, err = os.Stat(reportPath)
	require.NoError(t, err)

	// Second cycle finds nothing new.
	require.NoError(t, svc.runCycle(context.Background()))
	pending, err := db.ListSourceRecordsByStatus(internal.StatusReceived, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestMakeConnectorUnsupported(t *testing.T) {
	svc := NewService(nil, config.Config{}, nil)
	_, err := svc.makeConnector("carrier-pigeon")
	require.Error(t, err)
}

func TestSanitizePO(t *testing.T) {
	require.Equal(t, "PO_55_001", sanitizePO("PO 55/001"))
	require.Equal(t, "plain", sanitizePO("plain"))
}
