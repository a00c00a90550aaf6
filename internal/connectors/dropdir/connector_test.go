package dropdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"b":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`skip`), 0o644))

	docs, err := NewConnector(dir).FetchDocuments("", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "a.json", docs[0].ExternalID)
	require.Equal(t, "b.json", docs[1].ExternalID)
	require.Equal(t, "dropdir", docs[0].Connector)
	require.JSONEq(t, `{"a":1}`, string(docs[0].Payload))
	require.NotEmpty(t, docs[0].DownloadTimestamp)

	// Ingested files move out of the drop directory into the archive.
	_, err = os.Stat(filepath.Join(dir, "a.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "archive", "a.json"))
	require.NoError(t, err)

	// Non-JSON files stay put.
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
}

func TestFetchDocumentsMaxLimit(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.json", "2.json", "3.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644))
	}

	conn := NewConnector(dir)
	docs, err := conn.FetchDocuments("", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// The straggler is picked up on the next scan.
	docs, err = conn.FetchDocuments("", 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "3.json", docs[0].ExternalID)
}

func TestFetchDocumentsMissingDir(t *testing.T) {
	docs, err := NewConnector(filepath.Join(t.TempDir(), "absent")).FetchDocuments("", 10)
	require.NoError(t, err)
	require.Empty(t, docs)
}
