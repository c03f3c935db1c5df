// Package raop contains a RAOP (AirPlay audio) client.
package raop

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/bluenviron/goraop/pkg/b64"
	"github.com/bluenviron/goraop/pkg/headerlist"
	"github.com/bluenviron/goraop/pkg/headers"
	"github.com/bluenviron/goraop/pkg/liberrors"
	"github.com/bluenviron/goraop/pkg/rtsp"
	"github.com/bluenviron/goraop/pkg/sdp"
)

const (
	// DefaultPort is the port of the RTSP server of AirPlay receivers.
	DefaultPort = 5000

	// VolumeNorm is the linear volume that corresponds to 0 dB.
	VolumeNorm = 0x10000

	volumeMinDB = -144.0
	volumeMaxDB = 0.0

	challengeSize = 16
)

// lifecycle states.
const (
	StateDisconnected = "disconnected"
	StateHandshaking  = "handshaking"
	StateRecording    = "recording"
	StateStreaming    = "streaming"
)

const (
	eventConnect = "connect"
	eventRecord  = "record"
	eventStream  = "stream"
	eventClose   = "close"
)

// VolumeToDB converts a linear volume into the dB value sent to receivers.
// The result is clamped into [-144, 0].
func VolumeToDB(v uint32) float64 {
	if v == 0 {
		return volumeMinDB
	}

	db := 60 * math.Log10(float64(v)/VolumeNorm)

	switch {
	case db < volumeMinDB:
		return volumeMinDB

	case db > volumeMaxDB:
		return volumeMaxDB
	}

	return db
}

// SplitHost splits a host[:port] address.
// If the port is missing, DefaultPort is used.
// IPv6 addresses with a port must be enclosed in square brackets.
func SplitHost(address string) (string, int, error) {
	if address == "" {
		return "", 0, fmt.Errorf("host not provided")
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// address without port
		if ip := net.ParseIP(address); ip != nil {
			return ip.String(), DefaultPort, nil
		}
		if address[0] == '[' && address[len(address)-1] == ']' {
			ip := net.ParseIP(address[1 : len(address)-1])
			if ip == nil {
				return "", 0, fmt.Errorf("invalid host '%s'", address)
			}
			return ip.String(), DefaultPort, nil
		}
		return address, DefaultPort, nil
	}

	if host == "" {
		return "", 0, fmt.Errorf("host not provided")
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("invalid port '%s'", portStr)
	}

	return host, int(port), nil
}

// Client is a RAOP client.
//
// It performs the AirPlay handshake (ANNOUNCE, SETUP, RECORD) over RTSP,
// then opens the data connection that carries encrypted audio.
type Client struct {
	//
	// parameters (all optional)
	//
	// public key used to wrap the AES key.
	// It defaults to DefaultPublicKey().
	PublicKey *rsa.PublicKey
	// user agent header.
	// It defaults to an iTunes user agent.
	UserAgent string
	// timeout of RTSP write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration
	// time allowed to the server to reply to TEARDOWN during Close.
	// It defaults to 2 seconds.
	TeardownTimeout time.Duration

	//
	// system functions (all optional)
	//
	// source of randomness.
	// It defaults to crypto/rand.Reader.
	Rand io.Reader
	// function used to initialize TCP connections.
	// It defaults to (&net.Dialer{}).DialContext.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	//
	// callbacks (all optional)
	//
	// called when the data connection is established.
	OnConnection func(net.Conn)
	// called when the control connection is closed.
	// The data connection, if any, is still open.
	OnClosed func(error)
	// called when the receiver reports the status of its audio jack.
	OnJackStatus func(headers.AudioJackStatus)
	// called when the receiver replies to RECORD with a RTP-Info header.
	OnRTPInfo func(headers.RTPInfo)
	// called when the lifecycle state changes.
	OnStateChange func(src string, dst string)

	//
	// private
	//

	initialized bool
	fsm         *fsm.FSM
	ctx         context.Context
	ctxCancel   func()

	mutex    sync.Mutex
	rtsp     *rtsp.Client
	host     string
	port     int
	key      *sessionKey
	sid      string
	instance string
	seq      uint16
	rtpTime  uint32
	dataConn net.Conn
	err      error
}

func (c *Client) initialize() {
	if c.initialized {
		return
	}
	c.initialized = true

	if c.PublicKey == nil {
		c.PublicKey = DefaultPublicKey()
	}
	if c.TeardownTimeout == 0 {
		c.TeardownTimeout = 2 * time.Second
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
	if c.DialContext == nil {
		c.DialContext = (&net.Dialer{}).DialContext
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OnConnection == nil {
		c.OnConnection = func(net.Conn) {
		}
	}
	if c.OnClosed == nil {
		c.OnClosed = func(error) {
		}
	}
	if c.OnJackStatus == nil {
		c.OnJackStatus = func(headers.AudioJackStatus) {
		}
	}
	if c.OnRTPInfo == nil {
		c.OnRTPInfo = func(headers.RTPInfo) {
		}
	}
	if c.OnStateChange == nil {
		c.OnStateChange = func(string, string) {
		}
	}

	c.fsm = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateHandshaking},
			{Name: eventRecord, Src: []string{StateHandshaking}, Dst: StateRecording},
			{Name: eventStream, Src: []string{StateRecording}, Dst: StateStreaming},
			{Name: eventClose, Src: []string{StateHandshaking, StateRecording, StateStreaming}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.Logger.Debug("RAOP state changed", "src", e.Src, "dst", e.Dst)
			},
		},
	)
}

// State returns the lifecycle state.
func (c *Client) State() string {
	c.initialize()
	return c.fsm.Current()
}

func (c *Client) event(name string) {
	src := c.fsm.Current()

	err := c.fsm.Event(context.Background(), name)
	if err != nil {
		c.Logger.Debug("RAOP state unchanged", "event", name, "err", err)
		return
	}

	c.OnStateChange(src, c.fsm.Current())
}

// Connect starts connecting to a receiver.
// The handshake is performed in the background: OnConnection is called when
// the data connection is established, OnClosed when the control connection is closed.
func (c *Client) Connect(address string) error {
	c.initialize()

	host, port, err := SplitHost(address)
	if err != nil {
		return err
	}

	if !c.fsm.Can(eventConnect) {
		return liberrors.ErrClientWrongState{
			AllowedList: []fmt.Stringer{stateString(StateDisconnected)},
			State:       stateString(c.fsm.Current()),
		}
	}

	key, err := newSessionKey(c.Rand)
	if err != nil {
		return fmt.Errorf("unable to generate AES key: %w", err)
	}

	var sidBuf [4]byte
	_, err = io.ReadFull(c.Rand, sidBuf[:])
	if err != nil {
		return err
	}

	var instance [8]byte
	_, err = io.ReadFull(c.Rand, instance[:])
	if err != nil {
		return err
	}

	rc := &rtsp.Client{
		WriteTimeout: c.WriteTimeout,
		UserAgent:    c.UserAgent,
		DialContext:  c.DialContext,
		Logger:       c.Logger,
	}
	rc.OnStateChange = func(state rtsp.State, h *headerlist.HeaderList) {
		c.onRTSPState(rc, state, h)
	}

	c.mutex.Lock()
	if c.key != nil {
		c.key.clear()
	}
	if c.dataConn != nil {
		c.dataConn.Close()
	}
	c.host = host
	c.port = port
	c.key = key
	c.sid = strconv.FormatUint(uint64(binary.BigEndian.Uint32(sidBuf[:])), 10)
	c.instance = hex.EncodeToString(instance[:])
	c.seq = 0
	c.rtpTime = 0
	c.dataConn = nil
	c.err = nil
	c.rtsp = rc
	c.ctx, c.ctxCancel = context.WithCancel(context.Background())
	c.mutex.Unlock()

	c.event(eventConnect)

	return rc.Start(net.JoinHostPort(host, strconv.Itoa(port)))
}

func (c *Client) onRTSPState(rc *rtsp.Client, state rtsp.State, h *headerlist.HeaderList) {
	var err error

	switch state {
	case rtsp.StateConnect:
		err = c.onConnect(rc)

	case rtsp.StateAnnounce:
		err = c.onAnnounce(rc)

	case rtsp.StateSetup:
		err = c.onSetup(rc, h)

	case rtsp.StateRecord:
		err = c.onRecord(rc, h)

	case rtsp.StateFlush, rtsp.StateSetParameter, rtsp.StateTeardown:

	case rtsp.StateDisconnected:
		c.onDisconnected(rc)
	}

	if err != nil {
		c.Logger.Warn("RAOP handshake failed", "state", state, "err", err)

		c.mutex.Lock()
		if c.rtsp == rc && c.err == nil {
			c.err = err
		}
		c.mutex.Unlock()

		rc.Close()
	}
}

func (c *Client) onConnect(rc *rtsp.Client) error {
	c.mutex.Lock()
	sid := c.sid
	instance := c.instance
	key := c.key
	c.mutex.Unlock()

	localIP := net.ParseIP(rc.LocalIP())
	if localIP == nil {
		return fmt.Errorf("invalid local IP '%s'", rc.LocalIP())
	}

	var remoteIP net.IP
	if addr, ok := rc.RemoteAddr().(*net.TCPAddr); ok {
		remoteIP = addr.IP
	}

	wrapped, err := key.wrap(c.Rand, c.PublicKey)
	if err != nil {
		return fmt.Errorf("unable to wrap AES key: %w", err)
	}

	announce, err := sdp.RAOPAnnounce{
		SessionID: sid,
		LocalIP:   localIP,
		Host:      remoteIP,
		RSAAESKey: b64.Encode(wrapped),
		AESIV:     b64.Encode(key.iv),
	}.Marshal()
	if err != nil {
		return err
	}

	challenge := make([]byte, challengeSize)
	_, err = io.ReadFull(c.Rand, challenge)
	if err != nil {
		return err
	}

	rc.SetURL("rtsp://" + hostURL(localIP) + "/" + sid)
	rc.AddHeader("Client-Instance", instance)
	rc.AddHeader("Apple-Challenge", b64.Encode(challenge))

	return rc.Announce(announce)
}

func (c *Client) onAnnounce(rc *rtsp.Client) error {
	err := rc.RemoveHeader("Apple-Challenge")
	if err != nil && !errors.Is(err, headerlist.ErrNotFound) {
		return err
	}

	return rc.Setup("")
}

func (c *Client) onSetup(rc *rtsp.Client, h *headerlist.HeaderList) error {
	if v, ok := h.Get("Audio-Jack-Status"); ok {
		var status headers.AudioJackStatus
		err := status.Unmarshal(v)
		if err != nil {
			c.Logger.Warn("invalid Audio-Jack-Status", "value", v, "err", err)
		} else {
			c.OnJackStatus(status)
		}
	} else {
		c.Logger.Debug("Audio-Jack-Status not provided")
	}

	c.mutex.Lock()
	seq, rtpTime := c.seq, c.rtpTime
	c.mutex.Unlock()

	return rc.Record(seq, rtpTime)
}

func (c *Client) onRecord(rc *rtsp.Client, h *headerlist.HeaderList) error {
	if v, ok := h.Get("RTP-Info"); ok {
		var info headers.RTPInfo
		err := info.Unmarshal(v)
		if err != nil {
			c.Logger.Warn("invalid RTP-Info", "value", v, "err", err)
		} else {
			c.Logger.Debug("RTP-Info received", "seq", info.SequenceNumber, "rtptime", info.RTPTime)
			c.OnRTPInfo(info)
		}
	} else {
		c.Logger.Debug("RTP-Info not provided")
	}

	var th headers.Transport
	err := th.Unmarshal(rc.Transport())
	if err != nil {
		return liberrors.ErrClientTransportHeaderInvalid{Err: err}
	}

	if th.ServerPort == nil {
		return liberrors.ErrClientServerPortMissing{}
	}

	c.event(eventRecord)

	c.mutex.Lock()
	host := c.host
	ctx := c.ctx
	c.mutex.Unlock()

	nconn, err := c.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(*th.ServerPort)))
	if err != nil {
		return fmt.Errorf("unable to open data connection: %w", err)
	}

	if tc, ok := nconn.(*net.TCPConn); ok {
		err = tc.SetNoDelay(true)
		if err != nil {
			nconn.Close()
			return err
		}
	}

	c.mutex.Lock()
	if c.rtsp != rc || ctx.Err() != nil {
		c.mutex.Unlock()
		nconn.Close()
		return liberrors.ErrClientTerminated{}
	}
	c.dataConn = nconn
	c.mutex.Unlock()

	c.event(eventStream)

	c.OnConnection(nconn)
	return nil
}

func (c *Client) onDisconnected(rc *rtsp.Client) {
	c.mutex.Lock()
	if c.rtsp != rc {
		c.mutex.Unlock()
		return
	}
	err := c.err
	c.mutex.Unlock()

	if err == nil {
		err = rc.Err()
	}

	c.event(eventClose)
	c.OnClosed(err)
}

// Flush issues a FLUSH request with the current sequence number and timestamp.
func (c *Client) Flush() error {
	c.mutex.Lock()
	rc := c.rtsp
	seq, rtpTime := c.seq, c.rtpTime
	c.mutex.Unlock()

	if rc == nil {
		return liberrors.ErrClientNotConnected{}
	}

	return rc.Flush(seq, rtpTime)
}

// SetVolume sets the volume of the receiver.
// v is a linear volume where VolumeNorm corresponds to 0 dB.
// The request is queued and its response is not waited.
func (c *Client) SetVolume(v uint32) error {
	c.mutex.Lock()
	rc := c.rtsp
	c.mutex.Unlock()

	if rc == nil {
		return liberrors.ErrClientNotConnected{}
	}

	return rc.SetParameter(fmt.Sprintf("volume: %0.6f\r\n", VolumeToDB(v)))
}

// EncodeSample encodes 16-bit little-endian stereo samples into a packet
// that can be written into the data connection.
// Only complete frames are encoded; the number of consumed bytes is returned.
func (c *Client) EncodeSample(raw []byte) ([]byte, int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.key == nil || c.key.block == nil {
		return nil, 0, liberrors.ErrClientNotConnected{}
	}

	buf, n, err := encodeSample(raw, c.key)
	if err != nil {
		return nil, 0, err
	}

	c.seq++
	c.rtpTime += uint32(n / FrameSize)

	return buf, n, nil
}

// Close tears down the session, closes all connections and clears the AES material.
// It waits for the control connection to be closed, therefore it must not be called from callbacks.
func (c *Client) Close() {
	c.initialize()

	c.mutex.Lock()
	rc := c.rtsp
	c.mutex.Unlock()

	if rc != nil {
		if rc.State() != rtsp.StateDisconnected && rc.Teardown() == nil {
			select {
			case <-rc.Done():
			case <-time.After(c.TeardownTimeout):
			}
		}

		c.mutex.Lock()
		c.ctxCancel()
		c.mutex.Unlock()

		rc.Close()
		<-rc.Done()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.dataConn != nil {
		c.dataConn.Close()
		c.dataConn = nil
	}

	if c.key != nil {
		c.key.clear()
		c.key = nil
	}

	c.rtsp = nil
}

// Wait waits until the control connection is closed and returns the error that caused it.
func (c *Client) Wait() error {
	c.mutex.Lock()
	rc := c.rtsp
	c.mutex.Unlock()

	if rc == nil {
		return liberrors.ErrClientNotConnected{}
	}

	err := rc.Wait()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return c.err
	}
	return err
}

type stateString string

func (s stateString) String() string {
	return string(s)
}

func hostURL(ip net.IP) string {
	if ip.To4() == nil {
		return "[" + ip.String() + "]"
	}
	return ip.String()
}
