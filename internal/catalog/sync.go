package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edicanon/internal/config"
	"edicanon/internal/storage"
)

// SyncService mirrors the Product Catalog into the local catalog_products
// table so line-item resolution never does a network round trip.
type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	log    *zap.Logger
}

func NewSyncService(db *storage.DB, cfg config.Config, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg, log: log}
}

func (s *SyncService) SyncCompany(ctx context.Context, companyID string) (int, error) {
	products, err := s.client.GetCompanyProducts(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if len(products) > 0 {
		if err := s.db.UpsertCatalogProducts(products); err != nil {
			return 0, err
		}
	}
	_ = s.db.SetMetadata("catalog.last_sync."+companyID, time.Now().UTC().Format(time.RFC3339))
	s.log.Info("catalog sync done", zap.String("companyId", companyID), zap.Int("products", len(products)))
	return len(products), nil
}
