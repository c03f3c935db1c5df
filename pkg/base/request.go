// Package base contains the primitives of the RTSP protocol.
package base

import (
	"bufio"
	"fmt"

	"github.com/bluenviron/goraop/pkg/headerlist"
)

const (
	rtspProtocol10           = "RTSP/1.0"
	requestMaxMethodLength   = 64
	requestMaxURLLength      = 2048
	requestMaxProtocolLength = 64
)

// Method is the method of a RTSP request.
type Method string

// methods.
const (
	Announce     Method = "ANNOUNCE"
	Flush        Method = "FLUSH"
	GetParameter Method = "GET_PARAMETER"
	Options      Method = "OPTIONS"
	Record       Method = "RECORD"
	Setup        Method = "SETUP"
	SetParameter Method = "SET_PARAMETER"
	Teardown     Method = "TEARDOWN"
)

// Request is a RTSP request.
type Request struct {
	// request method
	Method Method

	// request url
	URL string

	// headers, in the order they are written
	Header *headerlist.HeaderList

	// optional body
	Body []byte
}

// Unmarshal reads a request.
func (req *Request) Unmarshal(rb *bufio.Reader) error {
	byts, err := readBytesLimited(rb, ' ', requestMaxMethodLength)
	if err != nil {
		return err
	}
	req.Method = Method(byts[:len(byts)-1])

	if req.Method == "" {
		return fmt.Errorf("empty method")
	}

	byts, err = readBytesLimited(rb, ' ', requestMaxURLLength)
	if err != nil {
		return err
	}
	req.URL = string(byts[:len(byts)-1])

	proto, err := readLine(rb, requestMaxProtocolLength)
	if err != nil {
		return err
	}

	if proto != rtspProtocol10 {
		return fmt.Errorf("expected '%s', got '%s'", rtspProtocol10, proto)
	}

	req.Header, err = readHeader(rb)
	if err != nil {
		return err
	}

	req.Body, err = readBody(req.Header, rb)
	return err
}

func (req Request) firstLine() string {
	return string(req.Method) + " " + req.URL + " " + rtspProtocol10 + "\r\n"
}

// MarshalSize returns the size of a Request.
func (req Request) MarshalSize() int {
	n := len(req.firstLine())
	if req.Header != nil {
		n += req.Header.MarshalSize()
	}
	return n + 2 + len(req.Body)
}

// MarshalTo writes a Request.
// Headers are written in order; Content-Length is expected among them when a body is present.
func (req Request) MarshalTo(buf []byte) (int, error) {
	pos := copy(buf, req.firstLine())

	if req.Header != nil {
		pos += req.Header.MarshalTo(buf[pos:])
	}

	pos += copy(buf[pos:], "\r\n")
	pos += copy(buf[pos:], req.Body)

	return pos, nil
}

// Marshal writes a Request.
func (req Request) Marshal() ([]byte, error) {
	buf := make([]byte, req.MarshalSize())
	_, err := req.MarshalTo(buf)
	return buf, err
}

// String implements fmt.Stringer.
func (req Request) String() string {
	buf, _ := req.Marshal()
	return string(buf)
}
