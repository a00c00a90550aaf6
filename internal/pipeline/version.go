package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"edicanon/internal"
	"edicanon/internal/storage"
)

// VersionService owns the corrective version pass. Initial assignment
// happens inside storage.PersistCanonical, which is only correct when
// records arrive in timestamp order; interleaved batches break it, so a
// full recalculation runs as a distinct phase after each batch.
type VersionService struct {
	db  *storage.DB
	log *zap.Logger
}

func NewVersionService(db *storage.DB, log *zap.Logger) *VersionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VersionService{db: db, log: log}
}

// Recalculate rewrites the version of every header whose stored value does
// not match its 1-based rank by (downloadTimestamp, sourceRecordId) within
// its (company, customerPO) group. Returns the number of writes; running it
// again immediately returns zero. Groups are independent and recalculate in
// parallel.
func (s *VersionService) Recalculate(workers int) (int, error) {
	groups, err := s.db.ListHeaderGroups()
	if err != nil {
		return 0, err
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		writes   int
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

	for _, group := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(g storage.HeaderGroup) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := s.recalculateGroup(g)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			writes += n
		}(group)
	}
	wg.Wait()

	if firstErr != nil {
		return writes, firstErr
	}
	if writes > 0 {
		s.log.Info("version recalculation corrected headers", zap.Int("writes", writes))
	}
	return writes, nil
}

func (s *VersionService) recalculateGroup(group storage.HeaderGroup) (int, error) {
	headers, err := s.db.ListHeadersForGroup(group.Company, group.CustomerPO)
	if err != nil {
		return 0, err
	}

	writes := 0
	for rank, header := range headers {
		want := rank + 1
		if header.Version == want {
			continue
		}
		if err := s.db.UpdateHeaderVersion(header.ID, want); err != nil {
			return writes, err
		}
		writes++
	}
	return writes, nil
}

// AuthoritativeVersion resolves the version for downstream consumers via the
// sourceRecordId join key.
func (s *VersionService) AuthoritativeVersion(sourceRecordID int) (*internal.CanonicalHeader, error) {
	return s.db.GetHeaderBySourceRecordID(sourceRecordID)
}
