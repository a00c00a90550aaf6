package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"edicanon/internal"
	"edicanon/internal/storage"
	"edicanon/internal/util"
)

// DocumentStoreService persists a fetched payload on disk under its content
// hash and registers the source record. Duplicate deliveries are no-ops.
type DocumentStoreService struct {
	db        *storage.DB
	rawDocDir string
}

func NewDocumentStoreService(db *storage.DB, rawDocDir string) *DocumentStoreService {
	return &DocumentStoreService{db: db, rawDocDir: rawDocDir}
}

func (s *DocumentStoreService) Store(doc internal.FetchedDocument) (internal.SourceRecord, error) {
	hashBytes := sha256.Sum256(doc.Payload)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawDocDir, 0o755); err != nil {
		return internal.SourceRecord{}, err
	}

	rawPath := filepath.Join(s.rawDocDir, hash+".json")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, doc.Payload, 0o644); err != nil {
			return internal.SourceRecord{}, err
		}
	}

	company, poType := peekHeader(doc.Payload)
	company = util.FirstNonEmpty(company, doc.CompanyCode)
	poType = util.FirstNonEmpty(poType, doc.PartnerOrderType)

	return s.db.UpsertSourceRecord(company, poType, hash, doc.DownloadTimestamp, rawPath)
}

// peekHeader is a best-effort read of the routing fields; a malformed
// payload still gets a row and is rejected properly at processing time.
func peekHeader(payload []byte) (company, poType string) {
	var doc struct {
		Header struct {
			CompanyCode string `json:"CompanyCode"`
			POType      string `json:"POType"`
		} `json:"Header"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", ""
	}
	return doc.Header.CompanyCode, doc.Header.POType
}
