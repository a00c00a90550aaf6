package connectors

import (
	"edicanon/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector DocumentConnector
	store     *DocumentStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawDocDir string, connector DocumentConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewDocumentStoreService(db, rawDocDir),
	}
}

func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	documents, err := s.connector.FetchDocuments(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, doc := range documents {
		if _, err := s.store.Store(doc); err != nil {
			return FetchResult{}, err
		}
		stored++
	}

	return FetchResult{Fetched: len(documents), Stored: stored}, nil
}
