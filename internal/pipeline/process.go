package pipeline

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edicanon/internal"
	"edicanon/internal/config"
	"edicanon/internal/storage"
)

type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	builder *Builder
	log     *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, catalog CatalogLookup, log *zap.Logger) *ProcessingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessingService{
		db:      db,
		cfg:     cfg,
		builder: NewBuilder(DefaultRules(), catalog, log),
		log:     log,
	}
}

type ProcessResult struct {
	SourceRecordID int
	Rejected       bool
	LineItems      int
	Dropped        int
	Dangling       int
	Version        int
}

// ProcessRecord runs one source record end to end: clear any previous
// output, build, persist atomically, flip the status. A rejection is a
// normal outcome recorded on the row, not an error; errors are reserved for
// infrastructure failures (storage, filesystem).
func (s *ProcessingService) ProcessRecord(record internal.SourceRecord) (ProcessResult, error) {
	if err := s.db.ClearRecordProcessing(record.ID); err != nil {
		return ProcessResult{}, err
	}

	raw, err := os.ReadFile(record.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	built, err := s.builder.Build(record, raw)
	if errors.Is(err, ErrRejected) {
		s.log.Warn("record rejected",
			zap.Int("sourceRecordId", record.ID),
			zap.Error(err))
		if err := s.db.UpdateSourceRecordStatus(record.ID, internal.StatusRejected); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{SourceRecordID: record.ID, Rejected: true}, nil
	}
	if err != nil {
		return ProcessResult{}, err
	}

	header, err := s.db.PersistCanonical(built.Header, built.Items, built.Compositions)
	if err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateSourceRecordStatus(record.ID, internal.StatusProcessed); err != nil {
		return ProcessResult{}, err
	}

	return ProcessResult{
		SourceRecordID: record.ID,
		LineItems:      len(built.Items),
		Dropped:        built.DroppedAllocations,
		Dangling:       built.DanglingStores,
		Version:        header.Version,
	}, nil
}

// ProcessPending claims eligible records and processes them on a bounded
// worker pool. Records are independent; one failure does not abort the
// batch. Version recalculation is a separate phase and must run after this
// returns, never concurrently with it.
func (s *ProcessingService) ProcessPending(limit, workers int) (internal.RunStats, error) {
	start := time.Now()
	pending, err := s.db.ListSourceRecordsByStatus(internal.StatusReceived, limit)
	if err != nil {
		return internal.RunStats{}, err
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		stats    internal.RunStats
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

	for _, record := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec internal.SourceRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.ProcessRecord(rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if res.Rejected {
				stats.Rejected++
				return
			}
			stats.Processed++
			stats.LineItems += res.LineItems
			stats.DroppedAllocations += res.Dropped
			stats.DanglingStores += res.Dangling
		}(record)
	}
	wg.Wait()

	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	_ = s.db.InsertRun(uuid.NewString(), stats, timings)

	s.log.Info("processing batch done",
		zap.Int("processed", stats.Processed),
		zap.Int("rejected", stats.Rejected),
		zap.Int("lineItems", stats.LineItems))

	return stats, firstErr
}
