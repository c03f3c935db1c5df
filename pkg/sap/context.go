package sap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/bluenviron/goraop/internal/sockio"
)

// Conn is a datagram connection used to send or receive announcements.
type Conn interface {
	sockio.Conn
	LocalAddr() net.Addr
}

// Context is a SAP context.
// A Context either sends the announcement of a local session
// or receives announcements of remote sessions.
type Context struct {
	// connection.
	Conn Conn

	// SDP text of the announced session. Used by Send.
	SDP string

	// message identifier hash.
	// It defaults to a random value.
	MsgIDHash *uint16

	// called when a received packet is discarded.
	// It defaults to a function that logs the error.
	OnDecodeError func(error)

	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	writer *sockio.Writer
	reader *sockio.Reader
	origin net.IP
}

// Initialize initializes a Context.
func (c *Context) Initialize() error {
	if c.Conn == nil {
		return fmt.Errorf("Conn not provided")
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OnDecodeError == nil {
		c.OnDecodeError = func(err error) {
			c.Logger.Debug("discarding SAP packet", "err", err)
		}
	}

	if c.MsgIDHash == nil {
		id := uuid.New()
		v := binary.BigEndian.Uint16(id[:2])
		c.MsgIDHash = &v
	}

	switch addr := c.Conn.LocalAddr().(type) {
	case *net.UDPAddr:
		c.origin = addr.IP
	case *net.IPAddr:
		c.origin = addr.IP
	}
	if c.origin == nil {
		c.origin = net.IPv4zero
	}

	c.writer = &sockio.Writer{Conn: c.Conn}

	c.reader = &sockio.Reader{Conn: c.Conn}
	return c.reader.Initialize()
}

// Origin returns the address written into sent packets.
func (c *Context) Origin() net.IP {
	return c.origin
}

// Send sends the announcement, or its deletion when goodbye is true.
// Sending is not blocking and failures are logged and not retried.
func (c *Context) Send(goodbye bool) error {
	pkt := Packet{
		Goodbye:   goodbye,
		MsgIDHash: *c.MsgIDHash,
		Origin:    c.origin,
		Payload:   c.SDP,
	}

	bufs, err := pkt.buffers()
	if err != nil {
		return err
	}

	_, err = c.writer.WriteBuffers(bufs)
	if err != nil {
		if errors.Is(err, sockio.ErrWouldBlock) {
			c.Logger.Warn("SAP packet dropped, socket buffer is full")
		} else {
			c.Logger.Warn("unable to send SAP packet", "err", err)
		}
		return err
	}

	return nil
}

// Recv receives an announcement.
// On success, the SDP text is stored into the SDP field.
// Invalid packets are discarded and reported to OnDecodeError.
// It returns an error only when reading fails.
func (c *Context) Recv() (*Packet, error) {
	for {
		dg, err := c.reader.Read()
		if err != nil {
			return nil, err
		}

		var pkt Packet
		err = pkt.Unmarshal(dg.Payload)
		if err != nil {
			c.OnDecodeError(err)
			continue
		}

		c.SDP = pkt.Payload
		return &pkt, nil
	}
}
