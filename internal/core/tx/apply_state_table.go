package tx

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
)

var (
	// ErrEntryExists is returned by Insert when the key is occupied.
	ErrEntryExists = errors.New("entry already exists")
	// ErrEntryNotFound is returned when reading, updating or erasing a
	// missing entry.
	ErrEntryNotFound = ledger.ErrNotFound
)

// ReadView is the committed state a transaction is applied against.
type ReadView interface {
	Read(k keylet.Keylet) ([]byte, error)
	Exists(k keylet.Keylet) (bool, error)
}

// Action represents the type of modification to a ledger entry
type Action int

const (
	// ActionCache means the entry was read but not modified
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "created"
	case ActionModify:
		return "modified"
	case ActionErase:
		return "deleted"
	default:
		return "cached"
	}
}

// TrackedEntry represents a ledger entry being tracked for changes
type TrackedEntry struct {
	Action   Action
	Original []byte // Original state (nil for inserts)
	Current  []byte // State after this transaction (state before deletion for erases)
}

// AffectedNode describes one entry changed by a transaction.
type AffectedNode struct {
	Key    types.Address `json:"key"`
	Type   entry.Type    `json:"-"`
	Action Action        `json:"-"`
}

// Metadata tracks changes made by a transaction
type Metadata struct {
	// AffectedNodes lists every created, modified or deleted entry in key order
	AffectedNodes []AffectedNode
}

// ApplyStateTable buffers one transaction's reads and writes over a
// ReadView. Nothing reaches the ledger until the engine commits Changes.
type ApplyStateTable struct {
	base  ReadView
	items map[types.Address]*TrackedEntry
}

var _ sle.LedgerView = (*ApplyStateTable)(nil)

// NewApplyStateTable creates a new ApplyStateTable wrapping the given base view
func NewApplyStateTable(base ReadView) *ApplyStateTable {
	return &ApplyStateTable{
		base:  base,
		items: make(map[types.Address]*TrackedEntry),
	}
}

// Read reads a ledger entry, tracking it as cached
func (t *ApplyStateTable) Read(k keylet.Keylet) ([]byte, error) {
	if e, exists := t.items[k.Key]; exists {
		if e.Action == ActionErase {
			return nil, ErrEntryNotFound
		}
		return bytes.Clone(e.Current), nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionCache,
		Original: data,
		Current:  data,
	}
	return bytes.Clone(data), nil
}

// Exists checks if an entry exists
func (t *ApplyStateTable) Exists(k keylet.Keylet) (bool, error) {
	if e, exists := t.items[k.Key]; exists {
		return e.Action != ActionErase, nil
	}
	return t.base.Exists(k)
}

// Insert adds a new entry
func (t *ApplyStateTable) Insert(k keylet.Keylet, data []byte) error {
	if e, exists := t.items[k.Key]; exists {
		if e.Action != ActionErase {
			return fmt.Errorf("%w: %s", ErrEntryExists, k.Key)
		}
		// Re-inserting a deleted entry becomes a modify
		e.Action = ActionModify
		e.Current = bytes.Clone(data)
		return nil
	}

	exists, err := t.base.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrEntryExists, k.Key)
	}

	t.items[k.Key] = &TrackedEntry{
		Action:  ActionInsert,
		Current: bytes.Clone(data),
	}
	return nil
}

// Update modifies an existing entry
func (t *ApplyStateTable) Update(k keylet.Keylet, data []byte) error {
	if e, exists := t.items[k.Key]; exists {
		if e.Action == ActionErase {
			return fmt.Errorf("%w: %s (deleted)", ErrEntryNotFound, k.Key)
		}
		if e.Action == ActionCache {
			e.Action = ActionModify
		}
		// an insert stays an insert with the new data
		e.Current = bytes.Clone(data)
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	t.items[k.Key] = &TrackedEntry{
		Action:   ActionModify,
		Original: original,
		Current:  bytes.Clone(data),
	}
	return nil
}

// Erase removes an entry
func (t *ApplyStateTable) Erase(k keylet.Keylet) error {
	if e, exists := t.items[k.Key]; exists {
		switch e.Action {
		case ActionErase:
			return fmt.Errorf("%w: %s (already deleted)", ErrEntryNotFound, k.Key)
		case ActionInsert:
			// Inserting then deleting = no change
			delete(t.items, k.Key)
		default:
			e.Action = ActionErase
		}
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	t.items[k.Key] = &TrackedEntry{
		Action:   ActionErase,
		Original: original,
		Current:  original,
	}
	return nil
}

// IsErased returns true if the entry at the given key has been erased.
func (t *ApplyStateTable) IsErased(k keylet.Keylet) bool {
	if e, exists := t.items[k.Key]; exists {
		return e.Action == ActionErase
	}
	return false
}

// Changes returns the writes to commit and the matching metadata, both in
// key order. Modifications that restore the original bytes are dropped.
func (t *ApplyStateTable) Changes() ([]ledger.Change, *Metadata) {
	keys := make([]types.Address, 0, len(t.items))
	for k, e := range t.items {
		if e.Action == ActionCache {
			continue
		}
		if e.Action == ActionModify && bytes.Equal(e.Original, e.Current) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	changes := make([]ledger.Change, 0, len(keys))
	meta := &Metadata{AffectedNodes: make([]AffectedNode, 0, len(keys))}
	for _, k := range keys {
		e := t.items[k]
		switch e.Action {
		case ActionErase:
			changes = append(changes, ledger.Change{Key: k, Delete: true})
		default:
			changes = append(changes, ledger.Change{Key: k, Data: e.Current})
		}
		meta.AffectedNodes = append(meta.AffectedNodes, AffectedNode{
			Key:    k,
			Type:   entry.TypeOf(e.Current),
			Action: e.Action,
		})
	}
	return changes, meta
}
