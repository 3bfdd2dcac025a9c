package tx

import (
	"context"
	"errors"
	"sync"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/types"
)

// typeSetBalance only exists in this package's tests.
const typeSetBalance Type = 250

func init() {
	Register(typeSetBalance, decodeSetBalance)
}

// setBalance writes a native balance entry. It fails with TecNO_ENTRY when
// Fail is set, after its write has been buffered.
type setBalance struct {
	Key     types.Address
	Balance uint64
	Fail    bool
	Signer  types.Address
}

func (s *setBalance) TxType() Type { return typeSetBalance }

func (s *setBalance) Encode() []byte {
	var w Writer
	fail := uint8(0)
	if s.Fail {
		fail = 1
	}
	return w.Address(s.Key).U64(s.Balance).U8(fail).Address(s.Signer).Bytes()
}

func decodeSetBalance(body []byte) (Instruction, error) {
	r := NewReader(body)
	s := &setBalance{Key: r.Address(), Balance: r.U64(), Fail: r.U8() == 1, Signer: r.Address()}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *setBalance) Validate() Result {
	if s.Balance == 0 {
		return TemBAD_AMOUNT
	}
	return TesSUCCESS
}

func (s *setBalance) Apply(ctx *ApplyContext) Result {
	if !s.Signer.IsZero() {
		if r := ctx.Authorize(SignerAuthority(s.Signer)); !r.IsSuccess() {
			return r
		}
	}
	k := keylet.Native(s.Key)
	data := sle.Encode(&sle.Native{Balance: s.Balance}, 0)
	exists, err := ctx.View.Exists(k)
	if err != nil {
		return TefINTERNAL
	}
	if exists {
		err = ctx.View.Update(k, data)
	} else {
		err = ctx.View.Insert(k, data)
	}
	if err != nil {
		return TefINTERNAL
	}
	if s.Fail {
		return TecNO_ENTRY
	}
	return TesSUCCESS
}

// memStore is a map-backed Store.
type memStore struct {
	mu        sync.Mutex
	items     map[types.Address][]byte
	seq       uint64
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{items: make(map[types.Address][]byte), seq: ledger.GenesisSequence}
}

func (m *memStore) Read(_ context.Context, k keylet.Keylet) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[k.Key]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Exists(ctx context.Context, k keylet.Keylet) (bool, error) {
	_, err := m.Read(ctx, k)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) Commit(_ context.Context, changes []ledger.Change, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	if seq != m.seq+1 {
		return ledger.ErrSequenceMismatch
	}
	for _, c := range changes {
		if c.Delete {
			delete(m.items, c.Key)
		} else {
			m.items[c.Key] = c.Data
		}
	}
	m.seq = seq
	return nil
}

func (m *memStore) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

func (m *memStore) put(addr types.Address, e sle.Entry) {
	m.items[addr] = sle.Encode(e, 0)
}

func (m *memStore) balance(addr types.Address) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[addr]
	if !ok {
		return 0, false
	}
	n, _, err := sle.ParseNative(data)
	if err != nil {
		return 0, false
	}
	return n.Balance, true
}

// storeView exposes a memStore as a ReadView.
type storeView struct{ m *memStore }

func (v storeView) Read(k keylet.Keylet) ([]byte, error) {
	return v.m.Read(context.Background(), k)
}

func (v storeView) Exists(k keylet.Keylet) (bool, error) {
	return v.m.Exists(context.Background(), k)
}

func addr(name string) types.Address {
	return crypto.KeypairFromName(name).Address()
}

func keypair(name string) *crypto.Keypair {
	return crypto.KeypairFromName(name)
}

func nativeData(balance uint64) []byte {
	return sle.Encode(&sle.Native{Balance: balance}, 0)
}
