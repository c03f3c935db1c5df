package rtsp

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/bytecounter"
	"github.com/bluenviron/goraop/pkg/conn"
	"github.com/bluenviron/goraop/pkg/headerlist"
	"github.com/bluenviron/goraop/pkg/liberrors"
)

// Client is a RTSP client that drives a Session over a TCP connection.
//
// Callbacks are called from an internal routine, one at a time,
// and are allowed to issue new requests.
type Client struct {
	//
	// RTSP parameters (all optional)
	//
	// timeout of write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration
	// user agent header.
	// It defaults to an iTunes user agent.
	UserAgent string
	// byte counters.
	// It defaults to private counters.
	Counters *bytecounter.Counters

	//
	// system functions (all optional)
	//
	// function used to initialize the TCP client.
	// It defaults to (&net.Dialer{}).DialContext.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	//
	// callbacks (all optional)
	//
	// called before every request.
	OnRequest func(*base.Request)
	// called after every response.
	OnResponse func(*base.Response)
	// called when the state changes or a response is received.
	// On StateDisconnected, the connection has already been closed.
	OnStateChange func(State, *headerlist.HeaderList)

	//
	// private
	//

	address   string
	ctx       context.Context
	ctxCancel func()
	mutex     sync.Mutex
	session   *Session
	nconn     net.Conn
	conn      *conn.Conn
	closing   bool
	closeErr  error
	err       error

	done chan struct{}
}

// Start starts connecting to the server in the background.
// The outcome is reported through OnStateChange, with
// StateConnect in case of success or StateDisconnected in case of failure.
func (c *Client) Start(address string) error {
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Counters == nil {
		c.Counters = &bytecounter.Counters{}
	}
	if c.DialContext == nil {
		c.DialContext = (&net.Dialer{}).DialContext
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OnRequest == nil {
		c.OnRequest = func(*base.Request) {
		}
	}
	if c.OnResponse == nil {
		c.OnResponse = func(*base.Response) {
		}
	}
	if c.OnStateChange == nil {
		c.OnStateChange = func(State, *headerlist.HeaderList) {
		}
	}

	c.mutex.Lock()
	c.address = address
	c.ctx, c.ctxCancel = context.WithCancel(context.Background())
	c.session = &Session{
		UserAgent: c.UserAgent,
		Logger:    c.Logger,
	}
	c.session.initialize()
	c.done = make(chan struct{})
	c.mutex.Unlock()

	go c.run()

	return nil
}

// Close closes the connection.
// It does not wait for the internal routine to exit, therefore it can be called from callbacks.
func (c *Client) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.ctxCancel == nil {
		return
	}

	c.ctxCancel()

	if c.nconn != nil {
		c.nconn.Close()
	}
}

// Done returns a channel that is closed when the connection is closed.
// It returns nil if the client has not been started.
func (c *Client) Done() <-chan struct{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.done
}

// Wait waits until the connection is closed and returns the error that caused it.
func (c *Client) Wait() error {
	done := c.Done()
	if done == nil {
		return liberrors.ErrClientNotConnected{}
	}

	<-done
	return c.Err()
}

func (c *Client) run() {
	defer close(c.done)

	nconn, err := c.DialContext(c.ctx, "tcp", c.address)
	if err != nil {
		c.handleClosed(err)
		return
	}

	c.mutex.Lock()

	if c.ctx.Err() != nil {
		c.mutex.Unlock()
		nconn.Close()
		c.handleClosed(liberrors.ErrClientTerminated{})
		return
	}

	c.nconn = nconn
	c.conn = conn.NewConn(bytecounter.New(nconn, c.Counters))
	notifies := c.doLocked(c.session.Connected(localIP(nconn)))

	c.mutex.Unlock()

	c.notify(notifies)

	for {
		var line string
		line, err = c.conn.ReadLine()
		if err != nil {
			break
		}

		c.mutex.Lock()
		notifies = c.doLocked(c.session.HandleLine(line))
		c.mutex.Unlock()

		c.notify(notifies)
	}

	c.handleClosed(err)
}

func (c *Client) handleClosed(err error) {
	c.mutex.Lock()

	if c.nconn != nil {
		c.nconn.Close()
	}

	switch {
	case c.closing:
		err = c.closeErr
	case c.ctx.Err() != nil:
		err = liberrors.ErrClientTerminated{}
	}
	c.err = err

	notifies := c.doLocked(c.session.Closed(err))

	c.mutex.Unlock()

	c.notify(notifies)
}

func (c *Client) doLocked(actions []Action) []ActionNotify {
	var notifies []ActionNotify

	for _, a := range actions {
		switch a := a.(type) {
		case ActionWrite:
			c.OnRequest(a.Request)

			c.nconn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
			err := c.conn.WriteRequest(a.Request)
			if err != nil {
				c.Logger.Warn("unable to write request", "method", a.Request.Method, "err", err)
				c.nconn.Close()
			}

		case ActionClose:
			if !c.closing {
				c.closing = true
				c.closeErr = a.Err
			}
			if c.nconn != nil {
				c.nconn.Close()
			}

		case ActionNotify:
			notifies = append(notifies, a)
		}
	}

	return notifies
}

func (c *Client) notify(notifies []ActionNotify) {
	for _, n := range notifies {
		if n.Header != nil {
			c.OnResponse(&base.Response{
				StatusCode:    base.StatusOK,
				StatusMessage: base.StatusMessages[base.StatusOK],
				Header:        n.Header,
			})
		}
		c.OnStateChange(n.State, n.Header)
	}
}

func (c *Client) do(fn func() ([]Action, error)) error {
	c.mutex.Lock()

	if c.session == nil {
		c.mutex.Unlock()
		return liberrors.ErrClientNotConnected{}
	}

	actions, err := fn()
	if err != nil {
		c.mutex.Unlock()
		return err
	}

	notifies := c.doLocked(actions)
	c.mutex.Unlock()

	c.notify(notifies)
	return nil
}

// State returns the state of the session.
func (c *Client) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return StateDisconnected
	}
	return c.session.State()
}

// Err returns the error that caused the connection to close.
// It is available when StateDisconnected is notified.
func (c *Client) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.err
}

// LocalIP returns the local IP of the control connection.
func (c *Client) LocalIP() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.LocalIP()
}

// SessionID returns the session id assigned by the server.
func (c *Client) SessionID() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.SessionID()
}

// Transport returns the Transport header returned by the server in response to SETUP.
func (c *Client) Transport() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Transport()
}

// LastStatus returns the last status line that was not "RTSP/1.0 200 OK".
func (c *Client) LastStatus() *base.StatusLine {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.LastStatus()
}

// RemoteAddr returns the address of the server, or nil if the client is not connected.
func (c *Client) RemoteAddr() net.Addr {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.nconn == nil {
		return nil
	}
	return c.nconn.RemoteAddr()
}

// SetURL sets the URL used by requests.
func (c *Client) SetURL(u string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return
	}
	c.session.SetURL(u)
}

// AddHeader adds a header that is sent with every request.
func (c *Client) AddHeader(name string, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return
	}
	c.session.AddHeader(name, value)
}

// RemoveHeader removes a header that is sent with every request.
func (c *Client) RemoveHeader(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil {
		return liberrors.ErrClientNotConnected{}
	}
	return c.session.RemoveHeader(name)
}

// Options issues an OPTIONS request.
func (c *Client) Options() error {
	return c.do(func() ([]Action, error) {
		return c.session.Options()
	})
}

// Announce issues an ANNOUNCE request.
func (c *Client) Announce(sdp []byte) error {
	return c.do(func() ([]Action, error) {
		return c.session.Announce(sdp)
	})
}

// Setup issues a SETUP request.
func (c *Client) Setup(transport string) error {
	return c.do(func() ([]Action, error) {
		return c.session.Setup(transport)
	})
}

// Record issues a RECORD request.
func (c *Client) Record(seq uint16, rtpTime uint32) error {
	return c.do(func() ([]Action, error) {
		return c.session.Record(seq, rtpTime)
	})
}

// Flush issues a FLUSH request.
func (c *Client) Flush(seq uint16, rtpTime uint32) error {
	return c.do(func() ([]Action, error) {
		return c.session.Flush(seq, rtpTime)
	})
}

// SetParameter issues a SET_PARAMETER request.
func (c *Client) SetParameter(params string) error {
	return c.do(func() ([]Action, error) {
		return c.session.SetParameter(params)
	})
}

// Teardown issues a TEARDOWN request.
func (c *Client) Teardown() error {
	return c.do(func() ([]Action, error) {
		return c.session.Teardown()
	})
}

func localIP(nconn net.Conn) string {
	if addr, ok := nconn.LocalAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	host, _, _ := net.SplitHostPort(nconn.LocalAddr().String())
	return host
}
