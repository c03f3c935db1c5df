package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/goraop/pkg/headerlist"
)

func headers(kv ...string) *headerlist.HeaderList {
	h := headerlist.New()
	for i := 0; i < len(kv); i += 2 {
		h.Put(kv[i], kv[i+1])
	}
	return h
}

var casesRequest = []struct {
	name string
	byts []byte
	req  Request
}{
	{
		"setup",
		[]byte("SETUP rtsp://192.168.1.2/3413821438 RTSP/1.0\r\n" +
			"CSeq: 2\r\n" +
			"Transport: RTP/AVP/TCP;unicast;interleaved=0-1;mode=record\r\n" +
			"User-Agent: goraop\r\n" +
			"Client-Instance: 0123456789ABCDEF\r\n" +
			"\r\n"),
		Request{
			Method: Setup,
			URL:    "rtsp://192.168.1.2/3413821438",
			Header: headers(
				"CSeq", "2",
				"Transport", "RTP/AVP/TCP;unicast;interleaved=0-1;mode=record",
				"User-Agent", "goraop",
				"Client-Instance", "0123456789ABCDEF",
			),
		},
	},
	{
		"set parameter",
		[]byte("SET_PARAMETER rtsp://192.168.1.2/3413821438 RTSP/1.0\r\n" +
			"CSeq: 5\r\n" +
			"Session: DEADBEEF\r\n" +
			"Content-Type: text/parameters\r\n" +
			"Content-Length: 20\r\n" +
			"\r\n" +
			"volume: -30.000000\r\n"),
		Request{
			Method: SetParameter,
			URL:    "rtsp://192.168.1.2/3413821438",
			Header: headers(
				"CSeq", "5",
				"Session", "DEADBEEF",
				"Content-Type", "text/parameters",
				"Content-Length", "20",
			),
			Body: []byte("volume: -30.000000\r\n"),
		},
	},
}

func TestRequestUnmarshal(t *testing.T) {
	for _, ca := range casesRequest {
		t.Run(ca.name, func(t *testing.T) {
			var req Request
			err := req.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.NoError(t, err)
			require.Equal(t, ca.req, req)
		})
	}
}

func TestRequestMarshal(t *testing.T) {
	for _, ca := range casesRequest {
		t.Run(ca.name, func(t *testing.T) {
			buf, err := ca.req.Marshal()
			require.NoError(t, err)
			require.Equal(t, ca.byts, buf)
			require.Equal(t, len(ca.byts), ca.req.MarshalSize())
		})
	}
}

func TestRequestUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts []byte
	}{
		{"empty", []byte{}},
		{"empty method", []byte(" rtsp://host/1 RTSP/1.0\r\n\r\n")},
		{"wrong protocol", []byte("OPTIONS * HTTP/1.1\r\n\r\n")},
		{"invalid header", []byte("OPTIONS * RTSP/1.0\r\nNoColon\r\n\r\n")},
		{"invalid content length", []byte("OPTIONS * RTSP/1.0\r\nContent-Length: a\r\n\r\n")},
		{"truncated body", []byte("OPTIONS * RTSP/1.0\r\nContent-Length: 10\r\n\r\nabc")},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var req Request
			err := req.Unmarshal(bufio.NewReader(bytes.NewBuffer(ca.byts)))
			require.Error(t, err)
		})
	}
}
