package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBits(t *testing.T) {
	var w Writer
	w.WriteBits(uint64(0x2a), 6)
	w.WriteBits(uint64(0x0c), 6)
	w.WriteBits(uint64(0x1f), 6)
	w.WriteBits(uint64(0x5a), 8)
	w.WriteBits(uint64(0xaaec4), 20)
	require.Equal(t, []byte{0xA8, 0xC7, 0xD6, 0xAA, 0xBB, 0x10}, w.Bytes())
	require.Equal(t, 46, w.BitLen())
	require.Equal(t, 6, w.Len())
}

func TestWriteBitsMasked(t *testing.T) {
	var w Writer
	w.WriteBits(1, 3)
	w.WriteBits(0xff, 1)
	w.WriteBits(0, 4)
	require.Equal(t, []byte{0x30}, w.Bytes())
}

func TestWriteByteUnaligned(t *testing.T) {
	w := NewWriter(4)
	w.WriteBits(1, 1)
	require.NoError(t, w.WriteByte(0xff))
	require.NoError(t, w.WriteByte(0x00))
	require.Equal(t, []byte{0xff, 0x80, 0x00}, w.Bytes())
	require.Equal(t, 17, w.BitLen())
}

func TestFlushReset(t *testing.T) {
	var w Writer
	w.WriteBits(1, 2)
	w.Flush()
	require.Equal(t, 8, w.BitLen())
	w.WriteBits(0xab, 8)
	require.Equal(t, []byte{0x40, 0xab}, w.Bytes())

	w.Reset()
	require.Equal(t, 0, w.Len())
	w.WriteBits(0x3, 2)
	require.Equal(t, []byte{0xc0}, w.Bytes())
}
