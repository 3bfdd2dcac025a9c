package tx

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/LeJamon/offerd/internal/crypto"
	common "github.com/LeJamon/offerd/internal/crypto/common"
	"github.com/LeJamon/offerd/internal/types"
)

// Limits on a single transaction.
const (
	MaxInstructions = 16
	MaxSigners      = 8

	wireVersion uint8 = 1
)

// txnPrefix is prepended to the message before hashing ("TXN\x00").
var txnPrefix = []byte{0x54, 0x58, 0x4E, 0x00}

// Hash identifies a transaction.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil || len(b) != len(h) {
		return fmt.Errorf("invalid transaction hash %q", text)
	}
	copy(h[:], b)
	return nil
}

// ParseHash decodes a hex transaction hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	err := h.UnmarshalText([]byte(s))
	return h, err
}

// Signer produces signatures for one identity.
type Signer interface {
	Address() types.Address
	Sign(msg []byte) ([]byte, error)
}

// Transaction is an ordered list of instructions applied atomically.
// It stays valid for inclusion while the ledger sequence is at most
// LastValidSequence.
type Transaction struct {
	Instructions      []Instruction
	Signers           []types.Address
	Signatures        [][]byte
	LastValidSequence uint64
	Nonce             uint64
}

// NewTransaction returns an unsigned transaction.
func NewTransaction(lastValid, nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{
		Instructions:      instructions,
		LastValidSequence: lastValid,
		Nonce:             nonce,
	}
}

// Message returns the canonical bytes that are signed and hashed.
func (t *Transaction) Message() ([]byte, error) {
	if len(t.Signers) > MaxSigners {
		return nil, fmt.Errorf("%w: %d signers", ErrMalformed, len(t.Signers))
	}
	if len(t.Instructions) > MaxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", ErrMalformed, len(t.Instructions))
	}

	w := &Writer{}
	w.U8(wireVersion).U64(t.LastValidSequence).U64(t.Nonce)
	w.U8(uint8(len(t.Signers)))
	for _, s := range t.Signers {
		w.Address(s)
	}
	w.U8(uint8(len(t.Instructions)))
	for _, in := range t.Instructions {
		b := EncodeInstruction(in)
		if len(b) > 0xffff {
			return nil, fmt.Errorf("%w: instruction of %d bytes", ErrMalformed, len(b))
		}
		w.U16(uint16(len(b))).Raw(b)
	}
	return w.Bytes(), nil
}

// Hash returns SHA-512Half of the prefixed message.
func (t *Transaction) Hash() (Hash, error) {
	msg, err := t.Message()
	if err != nil {
		return Hash{}, err
	}
	return hashMessage(msg), nil
}

func hashMessage(msg []byte) Hash {
	return Hash(common.Sha512Half(txnPrefix, msg))
}

// Sign sets the signer list to the given identities, in order, and signs
// the resulting message with each of them.
func (t *Transaction) Sign(signers ...Signer) error {
	t.Signers = make([]types.Address, len(signers))
	for i, s := range signers {
		t.Signers[i] = s.Address()
	}
	msg, err := t.Message()
	if err != nil {
		return err
	}

	t.Signatures = make([][]byte, len(signers))
	for i, s := range signers {
		sig, err := s.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign as %s: %w", s.Address(), err)
		}
		t.Signatures[i] = sig
	}
	return nil
}

// verify checks that every listed signer has a valid signature over msg.
func (t *Transaction) verify(msg []byte) Result {
	if len(t.Signers) == 0 || len(t.Signatures) != len(t.Signers) {
		return TemMALFORMED
	}
	seen := make(map[types.Address]bool, len(t.Signers))
	for i, s := range t.Signers {
		if seen[s] {
			return TemMALFORMED
		}
		seen[s] = true
		if len(t.Signatures[i]) != ed25519.SignatureSize || !crypto.Verify(s, msg, t.Signatures[i]) {
			return TemBAD_SIGNATURE
		}
	}
	return TesSUCCESS
}

// MarshalBinary returns the signed wire form: message then signatures.
func (t *Transaction) MarshalBinary() ([]byte, error) {
	msg, err := t.Message()
	if err != nil {
		return nil, err
	}
	w := &Writer{buf: msg}
	w.U8(uint8(len(t.Signatures)))
	for _, sig := range t.Signatures {
		if len(sig) != ed25519.SignatureSize {
			return nil, fmt.Errorf("%w: signature of %d bytes", ErrMalformed, len(sig))
		}
		w.Raw(sig)
	}
	return w.Bytes(), nil
}

// ParseTransaction decodes the signed wire form.
func ParseTransaction(data []byte) (*Transaction, error) {
	r := NewReader(data)
	if v := r.U8(); v != wireVersion && r.err == nil {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}

	t := &Transaction{
		LastValidSequence: r.U64(),
		Nonce:             r.U64(),
	}

	n := int(r.U8())
	if n > MaxSigners {
		r.Fail(fmt.Errorf("%w: %d signers", ErrMalformed, n))
	}
	for i := 0; i < n && r.err == nil; i++ {
		t.Signers = append(t.Signers, r.Address())
	}

	n = int(r.U8())
	if n > MaxInstructions {
		r.Fail(fmt.Errorf("%w: %d instructions", ErrMalformed, n))
	}
	for i := 0; i < n && r.err == nil; i++ {
		body := r.Raw(int(r.U16()))
		if r.err != nil {
			break
		}
		in, err := DecodeInstruction(body)
		if err != nil {
			return nil, err
		}
		t.Instructions = append(t.Instructions, in)
	}

	n = int(r.U8())
	for i := 0; i < n && r.err == nil; i++ {
		t.Signatures = append(t.Signatures, r.Raw(ed25519.SignatureSize))
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return t, nil
}
