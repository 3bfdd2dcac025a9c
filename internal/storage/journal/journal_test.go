package journal

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *SQLJournal {
	t.Helper()
	j, err := Open(context.Background(), Config{
		Driver:      DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "journal.db"),
		JournalMode: "wal",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndGet(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	e := &Entry{
		Hash:      Hash{1, 2, 3},
		Sequence:  7,
		Result:    "tesSUCCESS",
		Raw:       bytes.Repeat([]byte("offer"), 50),
		Affected:  []Affected{{Key: "abc", Type: "Offer", Action: "created"}},
		Submitted: time.Unix(1700000000, 0),
	}
	require.NoError(t, j.Record(ctx, e))

	got, err := j.Get(ctx, e.Hash)
	require.NoError(t, err)
	assert.Equal(t, e.Sequence, got.Sequence)
	assert.Equal(t, e.Result, got.Result)
	assert.Equal(t, e.Raw, got.Raw)
	assert.Equal(t, e.Affected, got.Affected)
	assert.True(t, got.Submitted.Equal(e.Submitted))
	assert.True(t, got.Applied())
}

func TestGetUnknown(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Get(context.Background(), Hash{9})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordReplacesOutcome(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	h := Hash{4}
	require.NoError(t, j.Record(ctx, &Entry{Hash: h, Result: "tefEXPIRED", Code: -190, Raw: []byte{1}}))
	require.NoError(t, j.Record(ctx, &Entry{Hash: h, Sequence: 3, Result: "tesSUCCESS", Raw: []byte{1}}))

	got, err := j.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", got.Result)
	assert.Equal(t, uint64(3), got.Sequence)
}

func TestRecentNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := byte(1); i <= 5; i++ {
		require.NoError(t, j.Record(ctx, &Entry{Hash: Hash{i}, Sequence: uint64(i), Result: "tesSUCCESS", Raw: []byte{i}}))
	}

	recent, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, Hash{5}, recent[0].Hash)
	assert.Equal(t, Hash{3}, recent[2].Hash)
}

func TestClosedJournal(t *testing.T) {
	j := openTestJournal(t)
	require.NoError(t, j.Close())

	_, err := j.Get(context.Background(), Hash{1})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, j.Record(context.Background(), &Entry{}), ErrClosed)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestBlobCompression(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"tiny", []byte{1, 2, 3}},
		{"repetitive", bytes.Repeat([]byte{0xab}, 4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := compress(tt.data)
			require.NoError(t, err)
			out, err := decompress(blob)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(out))
			assert.True(t, bytes.Equal(tt.data, out))
		})
	}

	blob, err := compress(bytes.Repeat([]byte{0xab}, 4096))
	require.NoError(t, err)
	assert.Less(t, len(blob), 4096)
	assert.Equal(t, blobLZ4, blob[4])
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", rebind(DriverPostgres, q))
}
