package dropdir

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"edicanon/internal"
)

// Connector scans the gateway drop directory for *.json transmissions.
// Ingested files move to an archive subdirectory; the content-hash dedup in
// the document store makes a re-scan of stragglers harmless.
type Connector struct {
	dropDir string
}

func NewConnector(dropDir string) *Connector {
	return &Connector{dropDir: dropDir}
}

func (c *Connector) FetchDocuments(_ string, max int) ([]internal.FetchedDocument, error) {
	entries, err := os.ReadDir(c.dropDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) > max {
		names = names[:max]
	}

	archiveDir := filepath.Join(c.dropDir, "archive")
	out := make([]internal.FetchedDocument, 0, len(names))
	for _, name := range names {
		path := filepath.Join(c.dropDir, name)
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		downloaded := time.Now().UTC()
		if info, err := os.Stat(path); err == nil {
			downloaded = info.ModTime().UTC()
		}

		out = append(out, internal.FetchedDocument{
			Connector:         "dropdir",
			ExternalID:        name,
			DownloadTimestamp: downloaded.Format(time.RFC3339),
			Payload:           payload,
		})

		if err := os.MkdirAll(archiveDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.Rename(path, filepath.Join(archiveDir, name)); err != nil {
			return nil, err
		}
	}

	return out, nil
}
