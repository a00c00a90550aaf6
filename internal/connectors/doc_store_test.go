package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"edicanon/internal"
	"edicanon/internal/storage"
)

func TestDocumentStore(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rawDir := t.TempDir()
	svc := NewDocumentStoreService(db, rawDir)

	payload := []byte(`{"Header":{"CompanyCode":"044","PurchaseOrderNumber":"PO-1","POType":"SA"}}`)
	rec, err := svc.Store(internal.FetchedDocument{
		Connector:         "dropdir",
		ExternalID:        "po1.json",
		DownloadTimestamp: "2026-05-14T09:30:00Z",
		Payload:           payload,
	})
	require.NoError(t, err)

	// Routing fields come from the payload header itself.
	require.Equal(t, "044", rec.CompanyCode)
	require.Equal(t, "SA", rec.PartnerOrderType)
	require.Equal(t, internal.StatusReceived, rec.Status)

	stored, err := os.ReadFile(rec.RawRef)
	require.NoError(t, err)
	require.Equal(t, payload, stored)
}

func TestDocumentStoreDedupesByContent(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewDocumentStoreService(db, t.TempDir())
	payload := []byte(`{"Header":{"CompanyCode":"010","PurchaseOrderNumber":"PO-2"}}`)

	first, err := svc.Store(internal.FetchedDocument{Payload: payload, DownloadTimestamp: "2026-05-14T09:30:00Z"})
	require.NoError(t, err)

	// The same content redelivered later keeps the existing row and its
	// original timestamp and status.
	require.NoError(t, db.UpdateSourceRecordStatus(first.ID, internal.StatusProcessed))
	second, err := svc.Store(internal.FetchedDocument{Payload: payload, DownloadTimestamp: "2026-05-15T10:00:00Z"})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "2026-05-14T09:30:00Z", second.DownloadTimestamp)
	require.Equal(t, internal.StatusProcessed, second.Status)
}

func TestDocumentStoreMalformedPayload(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewDocumentStoreService(db, t.TempDir())

	// Malformed JSON still gets a row; rejection happens at processing time.
	rec, err := svc.Store(internal.FetchedDocument{
		CompanyCode:       "081",
		Payload:           []byte(`garbage`),
		DownloadTimestamp: "2026-05-14T09:30:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "081", rec.CompanyCode)
	require.Equal(t, internal.StatusReceived, rec.Status)
}
