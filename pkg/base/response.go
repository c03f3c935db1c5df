package base

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/goraop/pkg/headerlist"
)

// StatusCode is the status code of a RTSP response.
type StatusCode int

// standard status codes
const (
	StatusOK                        StatusCode = 200
	StatusBadRequest                StatusCode = 400
	StatusUnauthorized              StatusCode = 401
	StatusForbidden                 StatusCode = 403
	StatusNotFound                  StatusCode = 404
	StatusMethodNotAllowed          StatusCode = 405
	StatusNotAcceptable             StatusCode = 406
	StatusParameterNotUnderstood    StatusCode = 451
	StatusNotEnoughBandwidth        StatusCode = 453
	StatusSessionNotFound           StatusCode = 454
	StatusMethodNotValidInThisState StatusCode = 455
	StatusUnsupportedTransport      StatusCode = 461
	StatusInternalServerError       StatusCode = 500
	StatusNotImplemented            StatusCode = 501
	StatusServiceUnavailable        StatusCode = 503
	StatusRTSPVersionNotSupported   StatusCode = 505
)

// StatusMessages contains the status messages associated with each status code.
var StatusMessages = map[StatusCode]string{
	StatusOK:                        "OK",
	StatusBadRequest:                "Bad Request",
	StatusUnauthorized:              "Unauthorized",
	StatusForbidden:                 "Forbidden",
	StatusNotFound:                  "Not Found",
	StatusMethodNotAllowed:          "Method Not Allowed",
	StatusNotAcceptable:             "Not Acceptable",
	StatusParameterNotUnderstood:    "Parameter Not Understood",
	StatusNotEnoughBandwidth:        "Not Enough Bandwidth",
	StatusSessionNotFound:           "Session Not Found",
	StatusMethodNotValidInThisState: "Method Not Valid In This State",
	StatusUnsupportedTransport:      "Unsupported Transport",
	StatusInternalServerError:       "Internal Server Error",
	StatusNotImplemented:            "Not Implemented",
	StatusServiceUnavailable:        "Service Unavailable",
	StatusRTSPVersionNotSupported:   "RTSP Version Not Supported",
}

// StatusLine is the first line of a response.
type StatusLine struct {
	StatusCode    StatusCode
	StatusMessage string
}

// Unmarshal decodes a status line, without terminator.
func (s *StatusLine) Unmarshal(line string) error {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || proto != rtspProtocol10 {
		return fmt.Errorf("expected '%s', got '%s'", rtspProtocol10, line)
	}

	codeStr, msg, ok := strings.Cut(rest, " ")
	if !ok {
		return fmt.Errorf("invalid status line '%s'", line)
	}

	code, err := strconv.ParseInt(codeStr, 10, 32)
	if err != nil {
		return fmt.Errorf("unable to parse status code")
	}

	if msg == "" {
		return fmt.Errorf("empty status")
	}

	s.StatusCode = StatusCode(code)
	s.StatusMessage = msg
	return nil
}

// IsOK checks whether the status line is exactly "RTSP/1.0 200 OK".
func (s StatusLine) IsOK() bool {
	return s.StatusCode == StatusOK && s.StatusMessage == StatusMessages[StatusOK]
}

// Response is a RTSP response.
type Response struct {
	// numeric status code
	StatusCode StatusCode

	// status message
	StatusMessage string

	// headers, in the order they are written
	Header *headerlist.HeaderList

	// optional body
	Body []byte
}

// Marshal writes a Response.
func (res Response) Marshal() ([]byte, error) {
	if res.StatusMessage == "" {
		if status, ok := StatusMessages[res.StatusCode]; ok {
			res.StatusMessage = status
		}
	}

	buf := []byte(rtspProtocol10 + " " + strconv.FormatInt(int64(res.StatusCode), 10) + " " + res.StatusMessage + "\r\n")

	h := res.Header
	if len(res.Body) != 0 {
		if h == nil {
			h = headerlist.New()
		} else {
			h = h.Clone()
		}
		h.Put("Content-Length", strconv.FormatInt(int64(len(res.Body)), 10))
	}
	if h != nil {
		buf = append(buf, h.Marshal()...)
	}

	buf = append(buf, "\r\n"...)
	buf = append(buf, res.Body...)
	return buf, nil
}

// String implements fmt.Stringer.
func (res Response) String() string {
	buf, _ := res.Marshal()
	return string(buf)
}
