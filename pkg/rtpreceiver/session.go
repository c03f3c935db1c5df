package rtpreceiver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bluenviron/goraop/pkg/blockq"
)

// Session is the consumer side of a RTP stream.
// It follows a single SSRC and writes payloads into a queue,
// moving the write index according to timestamp discontinuities.
type Session struct {
	// destination queue.
	Queue *blockq.Queue

	// size of a frame in bytes.
	FrameSize int

	// SSRC used by local senders, used to detect loops.
	Cookie uint32

	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	started bool
	ssrc    uint32
	offset  uint32
}

// Initialize initializes the Session.
func (s *Session) Initialize() error {
	if s.Queue == nil {
		return fmt.Errorf("queue not provided")
	}

	if s.FrameSize <= 0 {
		return fmt.Errorf("invalid frame size: %d", s.FrameSize)
	}

	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	return nil
}

// SSRC returns the followed SSRC.
func (s *Session) SSRC() (uint32, bool) {
	return s.ssrc, s.started
}

// Push processes a packet.
// It returns false when the packet has been discarded.
// When the queue is full, the payload is replaced by a gap.
func (s *Session) Push(pkt *Packet) (bool, error) {
	if !s.started {
		s.started = true
		s.ssrc = pkt.Header.SSRC
		s.offset = pkt.Header.Timestamp

		if s.ssrc == s.Cookie {
			s.Logger.Warn("detected RTP packet loop", "ssrc", s.ssrc)
		}
	} else if pkt.Header.SSRC != s.ssrc {
		s.Logger.Debug("discarding packet from another source", "ssrc", pkt.Header.SSRC)
		return false, nil
	}

	delta := TimestampDelta(s.offset, pkt.Header.Timestamp)
	s.Queue.SeekWrite(delta * int64(s.FrameSize))

	s.offset = pkt.Header.Timestamp + uint32(len(pkt.Payload)/s.FrameSize)

	err := s.Queue.Push(pkt.Payload)
	if err != nil {
		if !errors.Is(err, blockq.ErrFull) {
			return false, err
		}

		s.Logger.Warn("queue overrun, discarding packet")
		s.Queue.SeekWrite(int64(len(pkt.Payload)))
		return false, nil
	}

	return true, nil
}
