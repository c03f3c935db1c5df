// Package readbuffer contains a function to set the read buffer size of a UDP socket.
package readbuffer

import (
	"fmt"
	"syscall"
)

// PacketConn is a packet connection.
type PacketConn interface {
	SyscallConn() (syscall.RawConn, error)
	SetReadBuffer(bytes int) error
}

// SetReadBuffer sets the read buffer size of a UDP socket and checks that it was set correctly.
// Audio receivers need a buffer large enough to absorb bursts
// while the consumer is not reading.
func SetReadBuffer(pc PacketConn, size int) error {
	err := pc.SetReadBuffer(size)
	if err != nil {
		return err
	}

	v, err := ReadBuffer(pc)
	if err != nil {
		return err
	}

	if v < size {
		return fmt.Errorf("unable to set read buffer size to %v (got %v), check that the operating system allows that",
			size, v)
	}

	return nil
}
