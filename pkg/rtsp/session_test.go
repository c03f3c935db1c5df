package rtsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/liberrors"
)

func writes(t *testing.T, actions []Action) []*base.Request {
	var ret []*base.Request
	for _, a := range actions {
		if w, ok := a.(ActionWrite); ok {
			ret = append(ret, w.Request)
		}
	}
	return ret
}

func notifies(actions []Action) []State {
	var ret []State
	for _, a := range actions {
		if n, ok := a.(ActionNotify); ok {
			ret = append(ret, n.State)
		}
	}
	return ret
}

func feed(s *Session, lines ...string) []Action {
	var ret []Action
	for _, l := range lines {
		ret = append(ret, s.HandleLine(l)...)
	}
	return ret
}

func header(t *testing.T, req *base.Request, name string) string {
	v, ok := req.Header.Get(name)
	require.True(t, ok, "header %s missing", name)
	return v
}

func newConnectedSession(t *testing.T) *Session {
	s := &Session{}
	s.SetURL("rtsp://192.168.1.10/3413821438")
	actions := s.Connected("192.168.1.10")
	require.Equal(t, []State{StateConnect}, notifies(actions))
	return s
}

func TestSessionHandshake(t *testing.T) {
	s := newConnectedSession(t)
	s.AddHeader("Client-Instance", "0123456789ABCDEF")

	var states []State
	var cseqs []string

	actions, err := s.Announce([]byte("v=0\r\n"))
	require.NoError(t, err)
	reqs := writes(t, actions)
	require.Len(t, reqs, 1)
	require.Equal(t, base.Announce, reqs[0].Method)
	require.Equal(t, "application/sdp", header(t, reqs[0], "Content-Type"))
	require.Equal(t, "5", header(t, reqs[0], "Content-Length"))
	cseqs = append(cseqs, header(t, reqs[0], "CSeq"))

	states = append(states, notifies(feed(s,
		"RTSP/1.0 200 OK",
		"CSeq: 1",
		"",
	))...)

	actions, err = s.Setup("")
	require.NoError(t, err)
	reqs = writes(t, actions)
	require.Len(t, reqs, 1)
	require.Equal(t, DefaultSetupTransport, header(t, reqs[0], "Transport"))
	cseqs = append(cseqs, header(t, reqs[0], "CSeq"))

	states = append(states, notifies(feed(s,
		"RTSP/1.0 200 OK",
		"CSeq: 2",
		"Session: DEADBEEF",
		"Transport: RTP/AVP/TCP;unicast;mode=record;server_port=6000",
		"Audio-Jack-Status: connected; type=analog",
		"",
	))...)
	require.Equal(t, "DEADBEEF", s.SessionID())
	require.Equal(t, "RTP/AVP/TCP;unicast;mode=record;server_port=6000", s.Transport())

	actions, err = s.Record(100, 200)
	require.NoError(t, err)
	reqs = writes(t, actions)
	require.Len(t, reqs, 1)
	require.Equal(t, "DEADBEEF", header(t, reqs[0], "Session"))
	require.Equal(t, "npt=0-", header(t, reqs[0], "Range"))
	require.Equal(t, "seq=100;rtptime=200", header(t, reqs[0], "RTP-Info"))
	cseqs = append(cseqs, header(t, reqs[0], "CSeq"))

	states = append(states, notifies(feed(s,
		"RTSP/1.0 200 OK",
		"CSeq: 3",
		"",
	))...)

	require.Equal(t, []State{StateAnnounce, StateSetup, StateRecord}, states)
	require.Equal(t, []string{"1", "2", "3"}, cseqs)
	require.Equal(t, StateRecord, s.State())
}

func TestSessionRequestLayout(t *testing.T) {
	s := newConnectedSession(t)
	s.AddHeader("Client-Instance", "0123456789ABCDEF")

	actions, err := s.SetParameter("volume: -30.000000\r\n")
	require.NoError(t, err)
	reqs := writes(t, actions)
	require.Len(t, reqs, 1)

	require.Equal(t, "SET_PARAMETER rtsp://192.168.1.10/3413821438 RTSP/1.0\r\n"+
		"CSeq: 1\r\n"+
		"Content-Type: text/parameters\r\n"+
		"Content-Length: 20\r\n"+
		"User-Agent: iTunes/4.6 (Macintosh; U; PPC Mac OS X 10.3)\r\n"+
		"Client-Instance: 0123456789ABCDEF\r\n"+
		"\r\n"+
		"volume: -30.000000\r\n", reqs[0].String())
}

func TestSessionContinuation(t *testing.T) {
	s := newConnectedSession(t)

	_, err := s.Options()
	require.NoError(t, err)

	actions := feed(s,
		"RTSP/1.0 200 OK\r",
		"CSeq: 1",
		"Audio-Jack-Status: connected;",
		"  type=analog",
		"",
	)

	require.Len(t, actions, 1)
	n := actions[0].(ActionNotify)
	require.Equal(t, StateOptions, n.State)

	v, ok := n.Header.Get("Audio-Jack-Status")
	require.True(t, ok)
	require.Equal(t, "connected; type=analog", v)
}

func TestSessionUnexpectedLines(t *testing.T) {
	for _, ca := range []struct {
		name  string
		lines []string
	}{
		{
			"garbage",
			[]string{"garbage", "\x00\x01\x02"},
		},
		{
			"error status",
			[]string{"RTSP/1.0 453 Not Enough Bandwidth"},
		},
		{
			"different message",
			[]string{"RTSP/1.0 200 Fine"},
		},
		{
			"http",
			[]string{"HTTP/1.1 200 OK"},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			s := newConnectedSession(t)

			// while idle
			require.Empty(t, feed(s, ca.lines...))
			require.Equal(t, StateConnect, s.State())

			_, err := s.Flush(1, 2)
			require.NoError(t, err)

			// while waiting
			require.Empty(t, feed(s, ca.lines...))
			require.Equal(t, StateFlush, s.State())

			// the session is still able to receive the response
			require.Equal(t, []State{StateFlush}, notifies(feed(s,
				"RTSP/1.0 200 OK",
				"",
			)))
		})
	}
}

func TestSessionLastStatus(t *testing.T) {
	s := newConnectedSession(t)

	_, err := s.Announce([]byte("v=0\r\n"))
	require.NoError(t, err)

	feed(s, "RTSP/1.0 403 Forbidden")
	require.Equal(t, &base.StatusLine{StatusCode: base.StatusForbidden, StatusMessage: "Forbidden"}, s.LastStatus())
	require.Equal(t, StateAnnounce, s.State())
}

func TestSessionSetupErrors(t *testing.T) {
	for _, ca := range []struct {
		name  string
		lines []string
		err   error
	}{
		{
			"missing session",
			[]string{"Transport: RTP/AVP/TCP;unicast;mode=record;server_port=6000"},
			liberrors.ErrClientSessionHeaderMissing{},
		},
		{
			"missing transport",
			[]string{"Session: 1"},
			liberrors.ErrClientTransportHeaderMissing{},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			s := newConnectedSession(t)

			_, err := s.Setup("")
			require.NoError(t, err)

			lines := append([]string{"RTSP/1.0 200 OK"}, ca.lines...)
			lines = append(lines, "")
			actions := feed(s, lines...)

			require.Equal(t, []Action{ActionClose{Err: ca.err}}, actions)

			_, err = s.Record(0, 0)
			require.Equal(t, liberrors.ErrClientTerminated{}, err)

			require.Equal(t, []State{StateDisconnected}, notifies(s.Closed(ca.err)))
			require.Equal(t, "", s.SessionID())
		})
	}
}

func TestSessionQueue(t *testing.T) {
	s := newConnectedSession(t)

	actions, err := s.Flush(10, 20)
	require.NoError(t, err)
	require.Len(t, writes(t, actions), 1)

	// issued while waiting: queued
	actions, err = s.SetParameter("volume: 0.000000\r\n")
	require.NoError(t, err)
	require.Empty(t, actions)

	actions, err = s.SetParameter("volume: -10.000000\r\n")
	require.NoError(t, err)
	require.Empty(t, actions)

	actions = feed(s, "RTSP/1.0 200 OK", "CSeq: 1", "")
	reqs := writes(t, actions)
	require.Len(t, reqs, 1)
	require.Equal(t, base.SetParameter, reqs[0].Method)
	require.Equal(t, "2", header(t, reqs[0], "CSeq"))
	require.Equal(t, "volume: 0.000000\r\n", string(reqs[0].Body))
	require.Equal(t, []State{StateFlush}, notifies(actions))

	actions = feed(s, "RTSP/1.0 200 OK", "CSeq: 2", "")
	reqs = writes(t, actions)
	require.Len(t, reqs, 1)
	require.Equal(t, "3", header(t, reqs[0], "CSeq"))
	require.Equal(t, []State{StateSetParameter}, notifies(actions))

	actions = feed(s, "RTSP/1.0 200 OK", "CSeq: 3", "")
	require.Empty(t, writes(t, actions))
	require.Equal(t, []State{StateSetParameter}, notifies(actions))
}

func TestSessionQueueFull(t *testing.T) {
	s := newConnectedSession(t)

	_, err := s.Options()
	require.NoError(t, err)

	for i := 0; i < maxPendingRequests; i++ {
		_, err = s.SetParameter("volume: 0.000000\r\n")
		require.NoError(t, err)
	}

	_, err = s.SetParameter("volume: 0.000000\r\n")
	require.Equal(t, liberrors.ErrClientRequestPending{Max: maxPendingRequests}, err)
}

func TestSessionTeardown(t *testing.T) {
	s := newConnectedSession(t)

	_, err := s.Teardown()
	require.NoError(t, err)

	actions := feed(s, "RTSP/1.0 200 OK", "")
	require.Equal(t, []State{StateTeardown}, notifies(actions))
	require.Equal(t, ActionClose{}, actions[len(actions)-1])

	_, err = s.Options()
	require.Equal(t, liberrors.ErrClientTerminated{}, err)
}

func TestSessionNotConnected(t *testing.T) {
	s := &Session{}

	_, err := s.Announce([]byte("v=0\r\n"))
	require.Equal(t, liberrors.ErrClientNotConnected{}, err)

	require.Empty(t, s.HandleLine("RTSP/1.0 200 OK"))
}

func TestSessionDisconnect(t *testing.T) {
	s := newConnectedSession(t)

	_, err := s.Setup("")
	require.NoError(t, err)

	feed(s, "RTSP/1.0 200 OK", "Session: 1;timeout=60", "Transport: RTP/AVP/TCP;server_port=6000", "")
	require.Equal(t, "1", s.SessionID())

	_, err = s.Record(0, 0)
	require.NoError(t, err)

	// mid-response
	feed(s, "RTSP/1.0 200 OK", "CSeq: 2")

	require.Equal(t, []State{StateDisconnected}, notifies(s.Closed(nil)))
	require.Equal(t, StateDisconnected, s.State())
	require.Equal(t, "", s.SessionID())
	require.Equal(t, "", s.Transport())

	// closing twice is a no-op
	require.Empty(t, s.Closed(nil))

	_, err = s.Options()
	require.Equal(t, liberrors.ErrClientNotConnected{}, err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "set_parameter", StateSetParameter.String())
	require.Equal(t, "unknown", State(100).String())
	require.True(t, strings.HasPrefix(StateDisconnected.String(), "disc"))
}
