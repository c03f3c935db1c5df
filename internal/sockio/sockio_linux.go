//go:build linux

package sockio

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func writeBuffers(conn Conn, bufs [][]byte) (int, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var err2 error

	err = rawConn.Write(func(fd uintptr) bool {
		n, err2 = unix.SendmsgBuffers(int(fd), bufs, nil, nil, unix.MSG_DONTWAIT)
		return true
	})
	if err != nil {
		return 0, err
	}

	if err2 != nil {
		if isWouldBlock(err2) {
			return 0, ErrWouldBlock
		}
		return 0, err2
	}

	return n, nil
}

func enableTimestamps(conn Conn) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var err2 error

	err = rawConn.Control(func(fd uintptr) {
		err2 = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1)
	})
	if err != nil {
		return err
	}

	return err2
}

func parseTimestamp(oob []byte) time.Time {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return time.Time{}
	}

	for _, m := range msgs {
		if m.Header.Level == unix.SOL_SOCKET && m.Header.Type == unix.SCM_TIMESTAMP &&
			len(m.Data) >= int(unsafe.Sizeof(unix.Timeval{})) {
			tv := (*unix.Timeval)(unsafe.Pointer(&m.Data[0]))
			return time.Unix(tv.Unix())
		}
	}

	return time.Time{}
}

func (r *Reader) read() (*Datagram, error) {
	rawConn, err := r.Conn.SyscallConn()
	if err != nil {
		return nil, err
	}

	var dg *Datagram
	var err2 error

	err = rawConn.Read(func(fd uintptr) bool {
		avail, err3 := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
		if err3 != nil {
			err2 = err3
			return true
		}

		// read at least one byte, in order to consume empty datagrams
		if avail < 1 {
			avail = 1
		}

		r.grow(avail)

		n, oobn, _, _, err3 := unix.Recvmsg(int(fd), r.buf[:avail], r.oob, unix.MSG_DONTWAIT)
		if err3 != nil {
			if isWouldBlock(err3) {
				return false
			}
			err2 = err3
			return true
		}

		dg = &Datagram{
			Payload:   r.buf[:n],
			Timestamp: parseTimestamp(r.oob[:oobn]),
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if err2 != nil {
		return nil, err2
	}

	return dg, nil
}
