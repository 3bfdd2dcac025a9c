// Package journal keeps an outcome log of every submitted transaction.
// Ledger state only holds open entries; the journal is where settled and
// refunded offers leave a trace.
package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get for an unknown hash.
	ErrNotFound = errors.New("transaction not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("journal is closed")
	// ErrUnknownDriver is returned for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown journal driver")
)

// Hash is a transaction hash.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Affected describes one ledger entry touched by a transaction.
type Affected struct {
	Key    string `codec:"key" json:"key"`
	Type   string `codec:"type" json:"type"`
	Action string `codec:"action" json:"action"`
}

// Entry is the journal record of one transaction.
type Entry struct {
	Hash      Hash
	Sequence  uint64 // ledger sequence after commit, 0 if not applied
	Result    string
	Code      int
	Raw       []byte
	Affected  []Affected
	Submitted time.Time
}

// Applied reports whether the transaction was committed.
func (e *Entry) Applied() bool {
	return e.Code == 0
}

// Journal stores transaction outcomes.
type Journal interface {
	Record(ctx context.Context, e *Entry) error
	Get(ctx context.Context, hash Hash) (*Entry, error)
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	Close() error
}
