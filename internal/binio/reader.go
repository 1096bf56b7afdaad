// Package binio is a small cursor over in-memory Unity data with switchable
// byte order. Reads past the end set a sticky error and return zero values,
// so callers check Err once per section instead of after every field.
package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrShortBuffer = errors.New("binio: unexpected end of data")

type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	err   error
}

func NewReader(b []byte, order binary.ByteOrder) *Reader {
	return &Reader{buf: b, order: order}
}

func (r *Reader) Order() binary.ByteOrder { return r.order }
func (r *Reader) SetOrder(order binary.ByteOrder) { r.order = order }
func (r *Reader) Pos() int { return r.pos }
func (r *Reader) Len() int { return len(r.buf) }
func (r *Reader) Err() error { return r.err }

func (r *Reader) Remaining() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

func (r *Reader) Seek(pos int) {
	if pos < 0 || pos > len(r.buf) {
		r.fail(pos, 0)
		return
	}
	r.pos = pos
}

func (r *Reader) fail(at, n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w (need %d bytes at 0x%X, have %d)", ErrShortBuffer, n, at, len(r.buf))
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.fail(r.pos, n)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

func (r *Reader) Skip(n int) {
	r.take(n)
}

// Align moves the cursor to the next multiple of n, relative to the start of the buffer.
func (r *Reader) Align(n int) {
	if pad := (n - r.pos%n) % n; pad > 0 {
		r.take(pad)
	}
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.U8() != 0 }

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

func (r *Reader) I16() int16 { return int16(r.U16()) }
func (r *Reader) I32() int32 { return int32(r.U32()) }
func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }
func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

// CString reads a NUL-terminated string and consumes the terminator.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.buf[r.pos:], 0)
	if i < 0 {
		r.fail(r.pos, len(r.buf)-r.pos+1)
		return ""
	}
	s := string(r.buf[r.pos : r.pos+i])
	r.pos += i + 1
	return s
}
