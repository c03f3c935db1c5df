// Package conn contains a RTSP control connection implementation.
package conn

import (
	"bufio"
	"io"

	"github.com/bluenviron/goraop/pkg/base"
)

const (
	readBufferSize = 4096
)

// Conn is a RTSP control connection.
// Responses are read line by line, requests as a whole.
type Conn struct {
	w  io.Writer
	br *bufio.Reader
}

// NewConn allocates a Conn.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		w:  rw,
		br: bufio.NewReaderSize(rw, readBufferSize),
	}
}

// ReadLine reads a line, stripping the terminator.
func (c *Conn) ReadLine() (string, error) {
	return base.ReadLine(c.br)
}

// ReadRequest reads a Request.
func (c *Conn) ReadRequest() (*base.Request, error) {
	var req base.Request
	err := req.Unmarshal(c.br)
	return &req, err
}

// ReadInterleavedFrame reads a InterleavedFrame.
func (c *Conn) ReadInterleavedFrame() (*base.InterleavedFrame, error) {
	var fr base.InterleavedFrame
	err := fr.Unmarshal(c.br)
	return &fr, err
}

// WriteRequest writes a request.
func (c *Conn) WriteRequest(req *base.Request) error {
	buf, err := req.Marshal()
	if err != nil {
		return err
	}
	_, err = c.w.Write(buf)
	return err
}

// WriteResponse writes a response.
func (c *Conn) WriteResponse(res *base.Response) error {
	buf, err := res.Marshal()
	if err != nil {
		return err
	}
	_, err = c.w.Write(buf)
	return err
}
