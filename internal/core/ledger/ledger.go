// Package ledger is the account store offers and holdings live in. Every
// entry is addressed by a 32-byte key; the store is changed only through
// Commit, which writes one transaction's changes and the next sequence
// number in a single storage batch.
package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/storage/database"
	"github.com/LeJamon/offerd/internal/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNotFound is returned when no entry exists at a key.
	ErrNotFound = errors.New("ledger entry not found")
	// ErrSequenceMismatch is returned when Commit is not given the next sequence.
	ErrSequenceMismatch = errors.New("ledger sequence mismatch")
)

// sequenceKey is not 32 bytes long, so entry scans never see it.
var sequenceKey = []byte("meta:sequence")

// GenesisSequence is the sequence of a freshly created ledger.
const GenesisSequence uint64 = 1

// Config tunes the account store.
type Config struct {
	// CacheSize is the number of entries kept in the read cache.
	CacheSize int
}

// Change is one write produced by an applied transaction.
type Change struct {
	Key    types.Address
	Data   []byte
	Delete bool
}

// Record is a stored entry returned by scans.
type Record struct {
	Key  types.Address
	Data []byte
}

// Ledger is a sequenced, transactional account store.
type Ledger struct {
	db    database.DB
	cache *lru.Cache[types.Address, []byte]

	mu  sync.RWMutex
	seq uint64
}

// Open loads the ledger kept in db, creating the genesis sequence when the
// database is empty.
func Open(ctx context.Context, db database.DB, cfg Config) (*Ledger, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 4096
	}
	cache, err := lru.New[types.Address, []byte](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	l := &Ledger{db: db, cache: cache}

	raw, err := db.Read(ctx, sequenceKey)
	switch {
	case errors.Is(err, database.ErrKeyNotFound):
		l.seq = GenesisSequence
		if err := db.Write(ctx, sequenceKey, encodeSeq(l.seq)); err != nil {
			return nil, fmt.Errorf("write genesis sequence: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read ledger sequence: %w", err)
	case len(raw) != 8:
		return nil, fmt.Errorf("read ledger sequence: corrupt value of %d bytes", len(raw))
	default:
		l.seq = binary.BigEndian.Uint64(raw)
	}
	return l, nil
}

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

// Sequence returns the current ledger sequence.
func (l *Ledger) Sequence() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Read returns the entry stored at k.
func (l *Ledger) Read(ctx context.Context, k keylet.Keylet) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.readLocked(ctx, k.Key)
}

func (l *Ledger) readLocked(ctx context.Context, key types.Address) ([]byte, error) {
	if v, ok := l.cache.Get(key); ok {
		return bytes.Clone(v), nil
	}
	v, err := l.db.Read(ctx, key[:])
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	l.cache.Add(key, v)
	return bytes.Clone(v), nil
}

// Exists reports whether an entry is stored at k.
func (l *Ledger) Exists(ctx context.Context, k keylet.Keylet) (bool, error) {
	_, err := l.Read(ctx, k)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ForEach calls fn for every stored entry in key order. Returning an error
// from fn stops the walk and returns that error.
func (l *Ledger) ForEach(ctx context.Context, fn func(key types.Address, data []byte) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	it, err := l.db.Iterator(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		k := it.Key()
		if len(k) != types.AddressSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(types.Address(k), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// ScanDiscriminator returns every entry whose stored value starts with disc.
func (l *Ledger) ScanDiscriminator(ctx context.Context, disc entry.Discriminator) ([]Record, error) {
	var out []Record
	err := l.ForEach(ctx, func(key types.Address, data []byte) error {
		if bytes.HasPrefix(data, disc[:]) {
			out = append(out, Record{Key: key, Data: data})
		}
		return nil
	})
	return out, err
}

// Commit writes changes and advances the ledger to seq in one batch.
// seq must be exactly one past the current sequence.
func (l *Ledger) Commit(ctx context.Context, changes []Change, seq uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.seq+1 {
		return fmt.Errorf("%w: have %d, commit %d", ErrSequenceMismatch, l.seq, seq)
	}

	ops := make([]database.BatchOperation, 0, len(changes)+1)
	for _, c := range changes {
		key := bytes.Clone(c.Key[:])
		if c.Delete {
			ops = append(ops, database.Del(key))
		} else {
			ops = append(ops, database.Put(key, c.Data))
		}
	}
	ops = append(ops, database.Put(sequenceKey, encodeSeq(seq)))

	if err := l.db.Batch(ctx, ops); err != nil {
		// the cache may now disagree with storage
		l.cache.Purge()
		return fmt.Errorf("commit ledger %d: %w", seq, err)
	}

	for _, c := range changes {
		if c.Delete {
			l.cache.Remove(c.Key)
		} else {
			l.cache.Add(c.Key, bytes.Clone(c.Data))
		}
	}
	l.seq = seq
	return nil
}
