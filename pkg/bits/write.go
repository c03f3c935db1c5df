// Package bits contains a MSB-first bit writer.
package bits

import (
	mcbits "github.com/bluenviron/mediacommon/v2/pkg/bits"
)

// Writer accumulates values of arbitrary bit width into a byte buffer,
// most significant bit first.
// The zero value is an empty writer ready to use.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter allocates a Writer with room for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{
		buf: make([]byte, 0, size),
	}
}

func (w *Writer) grow(n int) {
	need := (w.pos + n + 7) >> 3
	for len(w.buf) < need {
		w.buf = append(w.buf, 0)
	}
}

// WriteBits writes the n least significant bits of v.
func (w *Writer) WriteBits(v uint64, n int) {
	if n <= 0 {
		return
	}
	if n < 64 {
		v &= 1<<n - 1
	}

	w.grow(n)
	mcbits.WriteBitsUnsafe(w.buf, &w.pos, v, n)
}

// WriteByte writes 8 bits.
func (w *Writer) WriteByte(b byte) error {
	w.WriteBits(uint64(b), 8)
	return nil
}

// Flush pads the current byte with zero bits.
func (w *Writer) Flush() {
	w.pos = (w.pos + 7) &^ 7
}

// BitLen returns the number of written bits.
func (w *Writer) BitLen() int {
	return w.pos
}

// Len returns the number of bytes touched by written bits.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes. The last byte may be partial.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reset empties the writer, keeping its storage.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.pos = 0
}
