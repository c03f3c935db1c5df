// Package sockio contains non-blocking datagram I/O primitives.
package sockio

import (
	"errors"
	"io"
	"syscall"
	"time"
)

// ErrWouldBlock is returned when the socket buffer is full.
// It is a recoverable condition.
var ErrWouldBlock = errors.New("operation would block")

// Conn is a datagram connection.
type Conn interface {
	syscall.Conn
	io.ReadWriter
}

// Datagram is a received datagram.
type Datagram struct {
	// payload. It is valid until the next read.
	Payload []byte

	// kernel receive timestamp, or zero if unavailable
	Timestamp time.Time
}

const initialReadBufferSize = 2000

// Writer writes datagrams made of multiple buffers.
type Writer struct {
	Conn Conn
}

// WriteBuffers writes bufs as a single datagram, without blocking.
// If the socket buffer is full, it returns ErrWouldBlock.
func (w *Writer) WriteBuffers(bufs [][]byte) (int, error) {
	return writeBuffers(w.Conn, bufs)
}

// Reader reads datagrams, sizing the buffer with the amount of available bytes.
type Reader struct {
	Conn Conn

	buf []byte
	oob []byte
}

// Initialize initializes a Reader.
// It enables kernel timestamps where supported.
func (r *Reader) Initialize() error {
	r.buf = make([]byte, initialReadBufferSize)
	r.oob = make([]byte, 128)
	return enableTimestamps(r.Conn)
}

// Read reads a datagram.
// It blocks until a datagram is available or the connection is closed.
func (r *Reader) Read() (*Datagram, error) {
	return r.read()
}

// BufferSize returns the current size of the read buffer.
func (r *Reader) BufferSize() int {
	return len(r.buf)
}

func (r *Reader) grow(size int) {
	n := len(r.buf)
	for n < size {
		n *= 2
	}
	if n != len(r.buf) {
		r.buf = make([]byte, n)
	}
}
