package pipeline

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"edicanon/internal"
	"edicanon/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedHeader(t *testing.T, db *storage.DB, company, customerPO, timestamp string) internal.CanonicalHeader {
	t.Helper()
	rec, err := db.UpsertSourceRecord(company, "SA", fmt.Sprintf("hash-%s-%s-%s", company, customerPO, timestamp), timestamp, "/dev/null")
	require.NoError(t, err)

	header, err := db.PersistCanonical(internal.CanonicalHeader{
		SourceRecordID:    rec.ID,
		Company:           company,
		CustomerPO:        customerPO,
		DownloadDate:      timestamp[:10],
		DownloadTimestamp: timestamp,
	}, nil, nil)
	require.NoError(t, err)
	return header
}

func TestVersionAssignmentInOrder(t *testing.T) {
	db := openTestDB(t)

	first := seedHeader(t, db, "010", "PO-1", "2026-05-01T08:00:00Z")
	second := seedHeader(t, db, "010", "PO-1", "2026-05-02T08:00:00Z")
	third := seedHeader(t, db, "010", "PO-1", "2026-05-03T08:00:00Z")

	require.Equal(t, 1, first.Version)
	require.Equal(t, 2, second.Version)
	require.Equal(t, 3, third.Version)

	// A different PO for the same company is its own version sequence.
	other := seedHeader(t, db, "010", "PO-2", "2026-05-04T08:00:00Z")
	require.Equal(t, 1, other.Version)

	writes, err := NewVersionService(db, nil).Recalculate(4)
	require.NoError(t, err)
	require.Zero(t, writes)
}

func TestVersionRecalculateOutOfOrder(t *testing.T) {
	db := openTestDB(t)

	// The later transmission arrives and persists first, so initial
	// assignment gives both headers version 1.
	late := seedHeader(t, db, "044", "PO-9", "2026-05-02T08:00:00Z")
	early := seedHeader(t, db, "044", "PO-9", "2026-05-01T08:00:00Z")
	require.Equal(t, 1, late.Version)
	require.Equal(t, 1, early.Version)

	svc := NewVersionService(db, nil)
	writes, err := svc.Recalculate(4)
	require.NoError(t, err)
	require.Equal(t, 1, writes)

	headers, err := db.ListHeadersForGroup("044", "PO-9")
	require.NoError(t, err)
	require.Len(t, headers, 2)
	require.Equal(t, early.ID, headers[0].ID)
	require.Equal(t, 1, headers[0].Version)
	require.Equal(t, late.ID, headers[1].ID)
	require.Equal(t, 2, headers[1].Version)

	// Idempotent: a second pass changes nothing.
	writes, err = svc.Recalculate(4)
	require.NoError(t, err)
	require.Zero(t, writes)
}

func TestVersionTimestampTieBreak(t *testing.T) {
	db := openTestDB(t)

	ts := "2026-05-01T08:00:00Z"
	a := seedHeader(t, db, "081", "PO-7", ts)
	b := seedHeader(t, db, "081", "PO-7", ts)

	_, err := NewVersionService(db, nil).Recalculate(1)
	require.NoError(t, err)

	// Equal timestamps order by sourceRecordId, so insertion order decides.
	headers, err := db.ListHeadersForGroup("081", "PO-7")
	require.NoError(t, err)
	require.Equal(t, a.SourceRecordID, headers[0].SourceRecordID)
	require.Equal(t, 1, headers[0].Version)
	require.Equal(t, b.SourceRecordID, headers[1].SourceRecordID)
	require.Equal(t, 2, headers[1].Version)
}

func TestAuthoritativeVersion(t *testing.T) {
	db := openTestDB(t)
	header := seedHeader(t, db, "010", "PO-3", "2026-05-01T08:00:00Z")

	svc := NewVersionService(db, nil)
	got, err := svc.AuthoritativeVersion(header.SourceRecordID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, header.ID, got.ID)
	require.Equal(t, 1, got.Version)

	missing, err := svc.AuthoritativeVersion(99999)
	require.NoError(t, err)
	require.Nil(t, missing)
}
