//go:build !linux

package sockio

const otherReadBufferSize = 65536

func writeBuffers(conn Conn, bufs [][]byte) (int, error) {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}

	buf := make([]byte, 0, n)
	for _, b := range bufs {
		buf = append(buf, b...)
	}

	return conn.Write(buf)
}

func enableTimestamps(_ Conn) error {
	return nil
}

func (r *Reader) read() (*Datagram, error) {
	r.grow(otherReadBufferSize)

	n, err := r.Conn.Read(r.buf)
	if err != nil {
		return nil, err
	}

	return &Datagram{Payload: r.buf[:n]}, nil
}
