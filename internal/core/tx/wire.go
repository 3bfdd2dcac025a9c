package tx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LeJamon/offerd/internal/types"
)

var (
	// ErrMalformed is returned when instruction or transaction bytes cannot
	// be decoded.
	ErrMalformed = errors.New("malformed transaction")
	// ErrUnknownInstruction is returned for an unregistered instruction type.
	ErrUnknownInstruction = errors.New("unknown instruction")
)

// Writer builds fixed-width little-endian instruction bodies.
type Writer struct {
	buf []byte
}

func (w *Writer) Address(a types.Address) *Writer {
	w.buf = append(w.buf, a[:]...)
	return w
}

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader decodes what Writer produced. The first failure sticks; check
// Done once at the end.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Address() (a types.Address) {
	if b := r.take(types.AddressSize); b != nil {
		copy(a[:], b)
	}
	return a
}

func (r *Reader) U8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) U16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) U64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// Raw returns the next n bytes.
func (r *Reader) Raw(n int) []byte {
	return r.take(n)
}

// Rest returns every unread byte.
func (r *Reader) Rest() []byte {
	return r.take(len(r.buf) - r.off)
}

// Fail records err unless an earlier error is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Done returns the first decode error, or an error if bytes remain.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.buf)-r.off)
	}
	return nil
}
