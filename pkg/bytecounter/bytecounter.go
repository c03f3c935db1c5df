// Package bytecounter contains a io.ReadWriter wrapper that counts transferred bytes.
package bytecounter

import (
	"io"
	"sync/atomic"
)

// Counters are shared byte counters.
// They can be read while the wrapped connection is in use.
type Counters struct {
	received atomic.Uint64
	sent     atomic.Uint64
}

// BytesReceived returns the number of bytes received.
func (c *Counters) BytesReceived() uint64 {
	return c.received.Load()
}

// BytesSent returns the number of bytes sent.
func (c *Counters) BytesSent() uint64 {
	return c.sent.Load()
}

// ByteCounter is a io.ReadWriter wrapper that counts transferred bytes.
type ByteCounter struct {
	rw io.ReadWriter
	*Counters
}

// New allocates a ByteCounter.
// If counters is nil, private counters are allocated.
func New(rw io.ReadWriter, counters *Counters) *ByteCounter {
	if counters == nil {
		counters = &Counters{}
	}

	return &ByteCounter{
		rw:       rw,
		Counters: counters,
	}
}

// Read implements io.ReadWriter.
func (bc *ByteCounter) Read(p []byte) (int, error) {
	n, err := bc.rw.Read(p)
	bc.received.Add(uint64(n))
	return n, err
}

// Write implements io.ReadWriter.
func (bc *ByteCounter) Write(p []byte) (int, error) {
	n, err := bc.rw.Write(p)
	bc.sent.Add(uint64(n))
	return n, err
}
