// Package rtsp contains the RTSP client used to drive an AirPlay handshake.
package rtsp

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/headerlist"
	"github.com/bluenviron/goraop/pkg/headers"
	"github.com/bluenviron/goraop/pkg/liberrors"
)

const (
	// DefaultSetupTransport is the Transport header sent with SETUP when none is provided.
	DefaultSetupTransport = "RTP/AVP/TCP;unicast;interleaved=0-1;mode=record"

	defaultUserAgent   = "iTunes/4.6 (Macintosh; U; PPC Mac OS X 10.3)"
	maxPendingRequests = 16
)

type pendingRequest struct {
	method      base.Method
	url         string
	header      *headerlist.HeaderList
	contentType string
	body        []byte
}

type transitionFunc func(s *Session, h *headerlist.HeaderList) []Action

var transitions = map[State]transitionFunc{
	StateOptions:      (*Session).onGenericResponse,
	StateAnnounce:     (*Session).onGenericResponse,
	StateSetup:        (*Session).onSetupResponse,
	StateRecord:       (*Session).onGenericResponse,
	StateFlush:        (*Session).onGenericResponse,
	StateSetParameter: (*Session).onGenericResponse,
	StateTeardown:     (*Session).onTeardownResponse,
}

var methodStates = map[base.Method]State{
	base.Options:      StateOptions,
	base.Announce:     StateAnnounce,
	base.Setup:        StateSetup,
	base.Record:       StateRecord,
	base.Flush:        StateFlush,
	base.SetParameter: StateSetParameter,
	base.Teardown:     StateTeardown,
}

// Session is a RTSP client session that does not perform any I/O.
// The host feeds it with connection events and received lines,
// and executes the returned actions in order.
//
// Only one request is in flight at a time. Requests issued while
// a response is awaited are queued and sent once the response is received.
type Session struct {
	// User-Agent header.
	// It defaults to an iTunes user agent.
	UserAgent string

	// Logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	// state
	initialized bool
	headers     *headerlist.HeaderList
	url         string
	localIP     string
	connected   bool
	terminated  bool
	state       State
	cseq        int
	session     string
	transport   string

	// response parsing
	waiting    bool
	statusSeen bool
	response   *headerlist.HeaderList
	lastHeader string
	lastStatus *base.StatusLine

	queue []pendingRequest
}

func (s *Session) initialize() {
	if s.initialized {
		return
	}
	s.initialized = true

	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	s.headers = headerlist.New()
	s.state = StateConnect
}

// State returns the current state.
func (s *Session) State() State {
	s.initialize()
	return s.state
}

// LocalIP returns the local IP of the control connection.
func (s *Session) LocalIP() string {
	return s.localIP
}

// SessionID returns the session id assigned by the server in response to SETUP.
func (s *Session) SessionID() string {
	return s.session
}

// Transport returns the Transport header returned by the server in response to SETUP.
func (s *Session) Transport() string {
	return s.transport
}

// LastStatus returns the last status line that was received
// and was not "RTSP/1.0 200 OK".
func (s *Session) LastStatus() *base.StatusLine {
	return s.lastStatus
}

// SetURL sets the URL used by requests.
func (s *Session) SetURL(u string) {
	s.url = u
}

// URL returns the URL used by requests.
func (s *Session) URL() string {
	return s.url
}

// AddHeader adds a header that is sent with every request.
func (s *Session) AddHeader(name string, value string) {
	s.initialize()
	s.headers.Put(name, value)
}

// RemoveHeader removes a header that is sent with every request.
func (s *Session) RemoveHeader(name string) error {
	s.initialize()
	return s.headers.Remove(name)
}

// Connected must be called by the host when the control connection is established.
func (s *Session) Connected(localIP string) []Action {
	s.initialize()

	if s.connected || s.terminated {
		return nil
	}

	s.connected = true
	s.localIP = localIP
	s.state = StateConnect

	return []Action{ActionNotify{State: StateConnect}}
}

// Closed must be called by the host when the control connection is closed,
// or when it could not be established.
func (s *Session) Closed(err error) []Action {
	s.initialize()

	if s.state == StateDisconnected {
		return nil
	}

	if err != nil {
		s.Logger.Debug("control connection closed", "err", err, "state", s.state)
	}

	s.connected = false
	s.state = StateDisconnected
	s.session = ""
	s.transport = ""
	s.waiting = false
	s.statusSeen = false
	s.response = nil
	s.lastHeader = ""
	s.queue = nil
	s.headers = headerlist.New()

	return []Action{ActionNotify{State: StateDisconnected}}
}

// HandleLine must be called by the host for every line received
// from the control connection, without the line terminator.
func (s *Session) HandleLine(line string) []Action {
	s.initialize()

	if !s.connected {
		return nil
	}

	line = strings.TrimSuffix(line, "\r")

	if !s.waiting {
		s.Logger.Debug("ignoring line received while idle", "line", line)
		return nil
	}

	if !s.statusSeen {
		s.handleStatusLine(line)
		return nil
	}

	if line == "" {
		return s.handleResponse()
	}

	if s.lastHeader != "" && base.IsHeaderContinuation(line) {
		s.response.Append(s.lastHeader, line[1:])
		return nil
	}

	name, value, err := base.ParseHeaderLine(line)
	if err != nil {
		s.Logger.Warn("ignoring invalid header line", "line", line, "err", err)
		return nil
	}

	s.response.Put(name, value)
	s.lastHeader = name
	return nil
}

func (s *Session) handleStatusLine(line string) {
	var sl base.StatusLine
	err := sl.Unmarshal(line)
	if err != nil {
		s.Logger.Warn("unexpected response line", "line", line, "state", s.state)
		return
	}

	if !sl.IsOK() {
		s.lastStatus = &sl
		s.Logger.Warn("unexpected response status", "line", line, "state", s.state)
		return
	}

	s.statusSeen = true
	s.response = headerlist.New()
	s.lastHeader = ""
}

func (s *Session) handleResponse() []Action {
	h := s.response
	s.waiting = false
	s.statusSeen = false
	s.response = nil
	s.lastHeader = ""

	return transitions[s.state](s, h)
}

func (s *Session) onGenericResponse(h *headerlist.HeaderList) []Action {
	state := s.state
	actions := s.dequeue()
	return append(actions, ActionNotify{State: state, Header: h})
}

func (s *Session) onSetupResponse(h *headerlist.HeaderList) []Action {
	sessionValue, ok := h.Get("Session")
	if !ok {
		return s.fail(liberrors.ErrClientSessionHeaderMissing{})
	}

	transport, ok := h.Get("Transport")
	if !ok {
		return s.fail(liberrors.ErrClientTransportHeaderMissing{})
	}

	var sh headers.Session
	err := sh.Unmarshal(sessionValue)
	if err != nil {
		return s.fail(liberrors.ErrClientSessionHeaderInvalid{Err: err})
	}

	s.session = sh.Session
	s.transport = transport

	return s.onGenericResponse(h)
}

func (s *Session) onTeardownResponse(h *headerlist.HeaderList) []Action {
	s.terminated = true
	s.queue = nil

	return []Action{
		ActionNotify{State: StateTeardown, Header: h},
		ActionClose{},
	}
}

func (s *Session) fail(err error) []Action {
	s.Logger.Error("invalid response", "state", s.state, "err", err)
	s.terminated = true
	s.queue = nil
	return []Action{ActionClose{Err: err}}
}

func (s *Session) dequeue() []Action {
	if len(s.queue) == 0 {
		return nil
	}

	req := s.queue[0]
	s.queue = s.queue[1:]
	return []Action{s.send(req)}
}

func (s *Session) send(p pendingRequest) Action {
	s.cseq++

	h := headerlist.New()
	h.Put("CSeq", strconv.Itoa(s.cseq))

	if s.session != "" {
		h.Put("Session", s.session)
	}

	h.Merge(p.header)

	if p.body != nil {
		h.Put("Content-Type", p.contentType)
		h.Put("Content-Length", strconv.Itoa(len(p.body)))
	}

	h.Put("User-Agent", s.UserAgent)
	h.Merge(s.headers)

	s.state = methodStates[p.method]
	s.waiting = true

	return ActionWrite{
		Request: &base.Request{
			Method: p.method,
			URL:    p.url,
			Header: h,
			Body:   p.body,
		},
	}
}

func (s *Session) exec(p pendingRequest) ([]Action, error) {
	s.initialize()

	if s.terminated {
		return nil, liberrors.ErrClientTerminated{}
	}

	if !s.connected {
		return nil, liberrors.ErrClientNotConnected{}
	}

	if p.url == "" {
		p.url = s.url
	}

	if s.waiting {
		if len(s.queue) >= maxPendingRequests {
			return nil, liberrors.ErrClientRequestPending{Max: maxPendingRequests}
		}
		s.queue = append(s.queue, p)
		return nil, nil
	}

	return []Action{s.send(p)}, nil
}

// Options issues an OPTIONS request.
func (s *Session) Options() ([]Action, error) {
	return s.exec(pendingRequest{method: base.Options, url: "*"})
}

// Announce issues an ANNOUNCE request with the given SDP.
func (s *Session) Announce(sdp []byte) ([]Action, error) {
	return s.exec(pendingRequest{
		method:      base.Announce,
		contentType: "application/sdp",
		body:        sdp,
	})
}

// Setup issues a SETUP request.
// If transport is empty, DefaultSetupTransport is used.
func (s *Session) Setup(transport string) ([]Action, error) {
	if transport == "" {
		transport = DefaultSetupTransport
	}

	h := headerlist.New()
	h.Put("Transport", transport)

	return s.exec(pendingRequest{method: base.Setup, header: h})
}

// Record issues a RECORD request.
func (s *Session) Record(seq uint16, rtpTime uint32) ([]Action, error) {
	h := headerlist.New()
	h.Put("Range", "npt=0-")
	h.Put("RTP-Info", headers.RTPInfo{SequenceNumber: seq, RTPTime: rtpTime}.Marshal())

	return s.exec(pendingRequest{method: base.Record, header: h})
}

// Flush issues a FLUSH request.
func (s *Session) Flush(seq uint16, rtpTime uint32) ([]Action, error) {
	h := headerlist.New()
	h.Put("RTP-Info", headers.RTPInfo{SequenceNumber: seq, RTPTime: rtpTime}.Marshal())

	return s.exec(pendingRequest{method: base.Flush, header: h})
}

// SetParameter issues a SET_PARAMETER request with the given text parameters.
func (s *Session) SetParameter(params string) ([]Action, error) {
	return s.exec(pendingRequest{
		method:      base.SetParameter,
		contentType: "text/parameters",
		body:        []byte(params),
	})
}

// Teardown issues a TEARDOWN request.
func (s *Session) Teardown() ([]Action, error) {
	return s.exec(pendingRequest{method: base.Teardown})
}
