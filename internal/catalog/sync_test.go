package catalog

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edicanon/internal/storage"
)

func TestSyncCompany(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client := testClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":true,"data":{
			"products":[{"productId":"P-1","color":"BLACK","size":"M"}],"scrollId":""}}`), nil
	})
	svc := &SyncService{db: db, client: client, log: zap.NewNop()}

	count, err := svc.SyncCompany(context.Background(), "081")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	p, err := db.GetCatalogProduct("081", "P-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "BLACK", *p.Color)

	stamp, err := db.GetMetadata("catalog.last_sync.081")
	require.NoError(t, err)
	require.NotNil(t, stamp)
}

func TestRateLimiterSpacing(t *testing.T) {
	limiter := NewRateLimiter(100) // 10ms interval

	start := time.Now()
	for i := 0; i < 3; i++ {
		limiter.WaitTurn()
	}
	// First turn is free, the next two wait one interval each.
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
