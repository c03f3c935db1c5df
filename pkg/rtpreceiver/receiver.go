// Package rtpreceiver contains a RTP receive context and a consumer session.
package rtpreceiver

import (
	"log/slog"
	"time"

	"github.com/pion/rtp"

	"github.com/bluenviron/goraop/internal/sockio"
)

// DatagramReader reads datagrams.
type DatagramReader interface {
	Read() (*sockio.Datagram, error)
}

// Packet is a received RTP packet.
type Packet struct {
	Header rtp.Header

	// payload. It is valid until the next read.
	Payload []byte

	// kernel receive timestamp, or zero if unavailable
	ReceiveTime time.Time
}

// Receiver is a RTP receive context.
// Invalid packets are discarded.
type Receiver struct {
	// source of datagrams.
	Reader DatagramReader

	// size of a frame in bytes.
	FrameSize int

	// called when a packet is discarded.
	// It defaults to a function that logs the error.
	OnDecodeError func(error)

	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	noTimestampLogged bool
}

// Initialize initializes a Receiver.
func (r *Receiver) Initialize() {
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.OnDecodeError == nil {
		r.OnDecodeError = func(err error) {
			r.Logger.Warn("discarding RTP packet", "err", err)
		}
	}
}

// Read reads the next valid packet.
// It returns an error only when reading fails.
func (r *Receiver) Read() (*Packet, error) {
	for {
		dg, err := r.Reader.Read()
		if err != nil {
			return nil, err
		}

		h, payload, err := Decode(dg.Payload, r.FrameSize)
		if err != nil {
			r.OnDecodeError(err)
			continue
		}

		if dg.Timestamp.IsZero() && !r.noTimestampLogged {
			r.noTimestampLogged = true
			r.Logger.Info("kernel receive timestamps are not available")
		}

		return &Packet{
			Header:      *h,
			Payload:     payload,
			ReceiveTime: dg.Timestamp,
		}, nil
	}
}
