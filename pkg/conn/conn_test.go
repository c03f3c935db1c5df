package conn

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/headerlist"
)

type readWriter struct {
	io.Reader
	io.Writer
}

func TestReadLine(t *testing.T) {
	buf := bytes.NewBufferString("RTSP/1.0 200 OK\r\n" +
		"CSeq: 1\r\n" +
		"Audio-Jack-Status: connected;\r\n" +
		" type=analog\n" +
		"\r\n")
	conn := NewConn(buf)

	var lines []string
	for {
		line, err := conn.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}

	require.Equal(t, []string{
		"RTSP/1.0 200 OK",
		"CSeq: 1",
		"Audio-Jack-Status: connected;",
		" type=analog",
		"",
	}, lines)
}

func TestReadRequest(t *testing.T) {
	buf := bytes.NewBufferString("FLUSH rtsp://192.168.1.2/1234 RTSP/1.0\r\n" +
		"CSeq: 5\r\n" +
		"Session: DEADBEEF\r\n" +
		"RTP-Info: seq=10;rtptime=20\r\n" +
		"\r\n")
	conn := NewConn(buf)

	req, err := conn.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, base.Flush, req.Method)
	require.Equal(t, "rtsp://192.168.1.2/1234", req.URL)

	v, ok := req.Header.Get("RTP-Info")
	require.True(t, ok)
	require.Equal(t, "seq=10;rtptime=20", v)
}

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(readWriter{Reader: &bytes.Buffer{}, Writer: &buf})

	h := headerlist.New()
	h.Put("CSeq", "3")
	h.Put("Session", "1")

	err := conn.WriteRequest(&base.Request{
		Method: base.Teardown,
		URL:    "rtsp://10.0.0.1/55",
		Header: h,
	})
	require.NoError(t, err)
	require.Equal(t, "TEARDOWN rtsp://10.0.0.1/55 RTSP/1.0\r\n"+
		"CSeq: 3\r\n"+
		"Session: 1\r\n"+
		"\r\n", buf.String())
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(readWriter{Reader: &bytes.Buffer{}, Writer: &buf})

	h := headerlist.New()
	h.Put("CSeq", "1")

	err := conn.WriteResponse(&base.Response{
		StatusCode:    base.StatusOK,
		StatusMessage: "OK",
		Header:        h,
	})
	require.NoError(t, err)
	require.Equal(t, "RTSP/1.0 200 OK\r\n"+
		"CSeq: 1\r\n"+
		"\r\n", buf.String())
}
