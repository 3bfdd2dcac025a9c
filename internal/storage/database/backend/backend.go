// Package backend opens the ledger database for a configured storage
// backend name.
package backend

import (
	"fmt"
	"os"

	"github.com/LeJamon/offerd/internal/storage/database"
	"github.com/LeJamon/offerd/internal/storage/database/bbolt"
	"github.com/LeJamon/offerd/internal/storage/database/leveldb"
	"github.com/LeJamon/offerd/internal/storage/database/pebble"
)

// LedgerDB is the database name the ledger is stored under.
const LedgerDB = "ledger"

// NewManager returns the database manager for backend, rooted at path.
// The memory backend ignores path.
func NewManager(backend, path string) (database.Manager, error) {
	if backend != "memory" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	switch backend {
	case "pebble":
		return pebble.NewManager(path), nil
	case "bbolt":
		return bbolt.NewManager(path), nil
	case "leveldb":
		return leveldb.NewManager(path), nil
	case "memory":
		return pebble.NewMemManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// OpenLedger opens the ledger database. Closing the returned manager
// closes the database.
func OpenLedger(backend, path string) (database.DB, database.Manager, error) {
	m, err := NewManager(backend, path)
	if err != nil {
		return nil, nil, err
	}
	db, err := m.OpenDB(LedgerDB)
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return db, m, nil
}
