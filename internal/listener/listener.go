package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"edicanon/internal"
	"edicanon/internal/catalog"
	"edicanon/internal/config"
	"edicanon/internal/connectors"
	"edicanon/internal/connectors/dropdir"
	gmailconnector "edicanon/internal/connectors/gmail"
	"edicanon/internal/connectors/mailbox"
	"edicanon/internal/pipeline"
	"edicanon/internal/storage"
)

// Service is the long-running ingestion loop: fetch from every configured
// connector, process the batch, recalculate versions as a distinct phase,
// then export reports for freshly processed records.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("listener cycle error", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(_ context.Context) error {
	fetched := 0
	for _, name := range strings.Split(s.cfg.ListenerConnectors, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		conn, err := s.makeConnector(name)
		if err != nil {
			return err
		}
		fetchService := connectors.NewFetchService(s.db, s.cfg.RawDocDir, conn)
		result, err := fetchService.FetchAndStore(s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
		if err != nil {
			return err
		}
		fetched += result.Stored
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, catalog.NewLookup(s.db), s.log)
	stats, err := processor.ProcessPending(s.cfg.ProcessBatch, s.cfg.ProcessWorkers)
	if err != nil {
		return err
	}

	versions := pipeline.NewVersionService(s.db, s.log)
	writes, err := versions.Recalculate(s.cfg.ProcessWorkers)
	if err != nil {
		return err
	}

	if s.cfg.ListenerAutoExport {
		if err := s.exportProcessed(); err != nil {
			return err
		}
	}

	s.log.Info("listener cycle done",
		zap.Int("fetched", fetched),
		zap.Int("processed", stats.Processed),
		zap.Int("rejected", stats.Rejected),
		zap.Int("versionWrites", writes))
	return nil
}

func (s *Service) exportProcessed() error {
	records, err := s.db.ListSourceRecordsByStatus(internal.StatusProcessed, 200)
	if err != nil {
		return err
	}

	for _, record := range records {
		header, err := s.db.GetHeaderBySourceRecordID(record.ID)
		if err != nil {
			return err
		}
		if header == nil {
			continue
		}
		items, err := s.db.ListLineItems(header.ID)
		if err != nil {
			return err
		}
		compositions, err := s.db.ListCompositions(header.ID)
		if err != nil {
			return err
		}

		report := pipeline.BuildReport(*header, items, compositions)
		filename := fmt.Sprintf("%s_%s_v%d_%d.xlsx", header.Company, sanitizePO(header.CustomerPO), header.Version, record.ID)
		outputPath := filepath.Join(s.cfg.OutputDir, "reports", filename)
		if err := pipeline.ExportReportToXLSX(report, outputPath); err != nil {
			return err
		}
		_ = s.db.UpdateSourceRecordStatus(record.ID, internal.StatusExported)
	}
	return nil
}

func (s *Service) makeConnector(name string) (connectors.DocumentConnector, error) {
	switch name {
	case "dropdir":
		return dropdir.NewConnector(s.cfg.GatewayDropDir), nil
	case "imap":
		return mailbox.NewConnector(s.cfg)
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener connector: %s", name)
	}
}

func sanitizePO(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
