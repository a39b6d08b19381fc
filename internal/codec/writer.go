package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/roach88/eventprog/internal/ir"
)

// MaxStringLen is the largest byte length a u32 length prefix can describe.
const MaxStringLen = math.MaxUint32

// Option configures a Writer.
type Option func(*Writer)

// WithStringLimit lowers the maximum accepted string length in bytes.
// Values above MaxStringLen are clamped to it.
func WithStringLimit(n uint64) Option {
	return func(w *Writer) {
		w.stringLimit = min(n, MaxStringLen)
	}
}

// Writer appends little-endian fields to an in-memory buffer.
type Writer struct {
	buf         []byte
	stringLimit uint64
	err         error
}

// NewWriter creates an empty Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{stringLimit: MaxStringLen}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Err returns the first error recorded by the writer.
func (w *Writer) Err() error {
	return w.err
}

// Fail records err unless an earlier error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Bytes returns the encoded bytes, or nil and the recorded error.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteU8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteU64(v uint64) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteI8(v int8)   { w.WriteU8(uint8(v)) }
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteBool writes 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

// WriteString writes a u32 byte-length prefix followed by the raw bytes.
// Strings longer than the limit fail with ErrFieldTooLarge, and invalid
// UTF-8 with ErrMalformedPayload, before anything is appended.
func (w *Writer) WriteString(s string) {
	if w.err == nil && !utf8.ValidString(s) {
		w.err = fmt.Errorf("%w: string is not valid UTF-8", ErrMalformedPayload)
		return
	}
	w.writeLenPrefixed([]byte(s))
}

// WriteBytes writes a u32 length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.writeLenPrefixed(b)
}

func (w *Writer) writeLenPrefixed(b []byte) {
	if w.err != nil {
		return
	}
	if uint64(len(b)) > w.stringLimit {
		w.err = fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFieldTooLarge, len(b), w.stringLimit)
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WritePubkey writes exactly 32 raw bytes.
func (w *Writer) WritePubkey(pk ir.Pubkey) {
	w.WriteRaw(pk[:])
}

// WriteDiscriminator writes exactly 8 raw bytes.
func (w *Writer) WriteDiscriminator(d ir.Discriminator) {
	w.WriteRaw(d[:])
}

// WriteRaw appends b with no prefix.
func (w *Writer) WriteRaw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}
