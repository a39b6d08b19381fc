package codec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/eventprog/internal/ir"
)

// Reader consumes little-endian fields from a byte slice.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader creates a Reader over b. b is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first error recorded by the reader.
func (r *Reader) Err() error {
	return r.err
}

// Fail records err unless an earlier error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Finish returns the recorded error, or ErrMalformedPayload if unread bytes remain.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d trailing bytes at offset %d", ErrMalformedPayload, n, r.off)
	}
	return nil
}

// take returns the next n bytes, or nil after recording ErrMalformedPayload.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedPayload, n, r.off, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadU8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadI8() int8   { return int8(r.ReadU8()) }
func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }
func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }
func (r *Reader) ReadI64() int64 { return int64(r.ReadU64()) }

// ReadBool accepts only 0 and 1.
func (r *Reader) ReadBool() bool {
	off := r.off
	v := r.ReadU8()
	if r.err == nil && v > 1 {
		r.err = fmt.Errorf("%w: invalid bool byte 0x%02x at offset %d", ErrMalformedPayload, v, off)
		return false
	}
	return v == 1
}

// ReadString reads a u32 length prefix and that many bytes, which must be
// valid UTF-8.
func (r *Reader) ReadString() string {
	start := r.off
	b := r.readLenPrefixed()
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.Fail(fmt.Errorf("%w: string at offset %d is not valid UTF-8", ErrMalformedPayload, start))
		return ""
	}
	return string(b)
}

// ReadBytes reads a u32 length prefix and that many bytes (copied).
func (r *Reader) ReadBytes() []byte {
	b := r.readLenPrefixed()
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *Reader) readLenPrefixed() []byte {
	n := r.ReadU32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.err = fmt.Errorf("%w: length prefix %d at offset %d exceeds %d remaining bytes", ErrMalformedPayload, n, r.off-4, r.Remaining())
		return nil
	}
	return r.take(int(n))
}

func (r *Reader) ReadPubkey() ir.Pubkey {
	var pk ir.Pubkey
	b := r.take(ir.PubkeySize)
	if b != nil {
		copy(pk[:], b)
	}
	return pk
}

func (r *Reader) ReadDiscriminator() ir.Discriminator {
	var d ir.Discriminator
	b := r.take(ir.DiscriminatorSize)
	if b != nil {
		copy(d[:], b)
	}
	return d
}
