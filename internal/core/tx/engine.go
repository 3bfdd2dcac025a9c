package tx

import (
	"context"
	"sync"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// Store is the committed ledger the engine applies transactions to.
type Store interface {
	Read(ctx context.Context, k keylet.Keylet) ([]byte, error)
	Exists(ctx context.Context, k keylet.Keylet) (bool, error)
	Commit(ctx context.Context, changes []ledger.Change, seq uint64) error
	Sequence() uint64
}

// EngineConfig holds the ledger-wide parameters instructions consult.
type EngineConfig struct {
	// DepositBase is the flat storage allowance per created entry
	DepositBase uint64

	// DepositPerByte is the storage allowance per stored byte
	DepositPerByte uint64

	// FaucetEnabled allows FundNative to mint native currency
	FaucetEnabled bool

	// ReplayCacheSize is how many recently applied hashes are remembered
	ReplayCacheSize int
}

// ApplyResult contains the result of applying a transaction
type ApplyResult struct {
	// Result is the transaction result code
	Result Result

	// Applied indicates if the transaction was committed to the ledger
	Applied bool

	// Hash identifies the transaction
	Hash Hash

	// Sequence is the ledger sequence after commit, zero when not applied
	Sequence uint64

	// FailedInstruction is the index of the instruction that failed, or -1
	FailedInstruction int

	// Metadata contains the changes made by the transaction
	Metadata *Metadata

	// Message is a human-readable result message
	Message string
}

// Engine applies transactions one at a time. Holding the engine lock for
// the whole of a transaction means two transactions touching the same
// offer can never both observe it open.
type Engine struct {
	store  Store
	config EngineConfig

	mu     sync.Mutex
	recent *lru.Cache[Hash, uint64]
}

// NewEngine creates an engine over store.
func NewEngine(store Store, config EngineConfig) (*Engine, error) {
	if config.ReplayCacheSize <= 0 {
		config.ReplayCacheSize = 16384
	}
	recent, err := lru.New[Hash, uint64](config.ReplayCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store, config: config, recent: recent}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// MarkApplied records hash as applied at seq. The service uses it to seed
// replay protection from the journal after a restart.
func (e *Engine) MarkApplied(hash Hash, seq uint64) {
	e.recent.Add(hash, seq)
}

func failed(r Result, hash Hash, idx int) ApplyResult {
	return ApplyResult{
		Result:            r,
		Hash:              hash,
		FailedInstruction: idx,
		Message:           r.Message(),
	}
}

// Apply processes a transaction and commits it if every instruction
// succeeds. On any failure nothing is written.
func (e *Engine) Apply(ctx context.Context, t *Transaction) ApplyResult {
	// Step 1: Preflight checks (no ledger state needed)
	msg, err := t.Message()
	if err != nil {
		return failed(TemMALFORMED, Hash{}, -1)
	}
	hash := hashMessage(msg)

	if len(t.Instructions) == 0 {
		return failed(TemMALFORMED, hash, -1)
	}
	if r := t.verify(msg); !r.IsSuccess() {
		return failed(r, hash, -1)
	}
	for i, in := range t.Instructions {
		if r := in.Validate(); !r.IsSuccess() {
			return failed(r, hash, i)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Step 2: Liveness window and replay protection
	seq := e.store.Sequence()
	if seq > t.LastValidSequence {
		return failed(TefMAX_LEDGER, hash, -1)
	}
	if e.recent.Contains(hash) {
		return failed(TefALREADY, hash, -1)
	}

	// Step 3: Apply every instruction to one state table
	table := NewApplyStateTable(committedView{ctx: ctx, store: e.store})
	actx := NewApplyContext(table, e.config, t.Signers)
	actx.TxHash = hash
	actx.Sequence = seq

	for i, in := range t.Instructions {
		r := in.Apply(actx)
		if !r.IsSuccess() {
			log.WithFields(log.Fields{
				"tx":          hash.String(),
				"instruction": in.TxType().String(),
				"index":       i,
			}).Debugf("instruction failed: %s", r)
			return failed(r, hash, i)
		}
	}

	// Step 4: Commit every change with the next sequence
	changes, meta := table.Changes()
	if err := e.store.Commit(ctx, changes, seq+1); err != nil {
		log.WithError(err).WithField("tx", hash.String()).Error("commit failed")
		return failed(TefINTERNAL, hash, -1)
	}
	e.recent.Add(hash, seq+1)

	return ApplyResult{
		Result:            TesSUCCESS,
		Applied:           true,
		Hash:              hash,
		Sequence:          seq + 1,
		FailedInstruction: -1,
		Metadata:          meta,
		Message:           TesSUCCESS.Message(),
	}
}

// committedView adapts Store to the context-free ReadView instructions use.
type committedView struct {
	ctx   context.Context
	store Store
}

func (v committedView) Read(k keylet.Keylet) ([]byte, error) {
	return v.store.Read(v.ctx, k)
}

func (v committedView) Exists(k keylet.Keylet) (bool, error) {
	return v.store.Exists(v.ctx, k)
}
