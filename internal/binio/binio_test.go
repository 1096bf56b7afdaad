package binio

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriterMixedOrder(t *testing.T) {
	w := NewWriter(binary.BigEndian)
	w.CString("UnityFS")
	w.U32(8)
	w.Align(16)
	w.I64(-2)
	w.F32(1.5)
	w.Bool(true)

	b := w.Bytes()
	require.Equal(t, 16+8+4+1, len(b))

	r := NewReader(b, binary.BigEndian)
	assert.Equal(t, "UnityFS", r.CString())
	assert.Equal(t, uint32(8), r.U32())
	r.Align(16)
	assert.Equal(t, 16, r.Pos())
	assert.Equal(t, int64(-2), r.I64())
	assert.Equal(t, float32(1.5), r.F32())
	assert.True(t, r.Bool())
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{1, 2}, binary.LittleEndian)
	assert.Equal(t, uint32(0), r.U32())
	assert.Equal(t, uint8(0), r.U8(), "reads after a failure return zero")
	require.Error(t, r.Err())
	assert.True(t, errors.Is(r.Err(), ErrShortBuffer))
}

func TestCStringWithoutTerminator(t *testing.T) {
	r := NewReader([]byte("abc"), binary.LittleEndian)
	assert.Equal(t, "", r.CString())
	assert.Error(t, r.Err())
}

func TestPutAt(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.U32(0)
	w.U64(0)
	w.PutU32At(0, 0xAABBCCDD)
	w.PutU64At(4, 7)
	r := NewReader(w.Bytes(), binary.LittleEndian)
	assert.Equal(t, uint32(0xAABBCCDD), r.U32())
	assert.Equal(t, uint64(7), r.U64())
}
