package sle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
)

// HeaderSize is the size of the discriminator and deposit that precede
// every stored payload.
const HeaderSize = entry.DiscriminatorSize + 8

var (
	// ErrMalformed is returned when stored bytes cannot be decoded.
	ErrMalformed = errors.New("malformed ledger entry")
	// ErrWrongType is returned when an entry decodes as a different type
	// than the caller asked for.
	ErrWrongType = errors.New("ledger entry has unexpected type")
)

// Entry is a typed ledger record.
type Entry interface {
	Type() entry.Type
	Payload() []byte
}

// Stored is a decoded envelope.
type Stored struct {
	Type    entry.Type
	Deposit uint64
	Payload []byte
}

// Encode wraps the payload of e with its discriminator and deposit.
func Encode(e Entry, deposit uint64) []byte {
	payload := e.Payload()
	disc := e.Type().Discriminator()

	out := make([]byte, HeaderSize+len(payload))
	copy(out, disc[:])
	binary.LittleEndian.PutUint64(out[entry.DiscriminatorSize:], deposit)
	copy(out[HeaderSize:], payload)
	return out
}

// EncodedSize returns the stored size of e, used for deposit computation.
func EncodedSize(e Entry) int {
	return HeaderSize + len(e.Payload())
}

// Decode splits stored bytes into type, deposit and payload.
func Decode(data []byte) (Stored, error) {
	if len(data) < HeaderSize {
		return Stored{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	t := entry.TypeOf(data)
	if t == entry.TypeUnknown {
		return Stored{}, fmt.Errorf("%w: unknown discriminator %x", ErrMalformed, data[:entry.DiscriminatorSize])
	}
	return Stored{
		Type:    t,
		Deposit: binary.LittleEndian.Uint64(data[entry.DiscriminatorSize:HeaderSize]),
		Payload: data[HeaderSize:],
	}, nil
}

// decodeAs decodes data and checks that it holds an entry of type want.
func decodeAs(data []byte, want entry.Type) (Stored, error) {
	s, err := Decode(data)
	if err != nil {
		return s, err
	}
	if s.Type != want {
		return s, fmt.Errorf("%w: have %s, want %s", ErrWrongType, s.Type, want)
	}
	return s, nil
}

// reader consumes fixed-width little-endian fields.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrMalformed, r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) addr() (a [32]byte) {
	if b := r.take(32); b != nil {
		copy(a[:], b)
	}
	return a
}

// done reports an error if decoding failed or bytes remain.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.buf)-r.off)
	}
	return nil
}
