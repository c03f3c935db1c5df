// Package rtpsender contains a RTP send context.
package rtpsender

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/goraop/internal/sockio"
	"github.com/bluenviron/goraop/pkg/blockq"
)

const (
	headerSize = 12

	// MaxVectors is the maximum number of buffers of a datagram, header included.
	MaxVectors = 16

	defaultMTU = 1280
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// BuffersWriter writes a datagram made of multiple buffers.
// It returns sockio.ErrWouldBlock when the socket buffer is full.
type BuffersWriter interface {
	WriteBuffers(bufs [][]byte) (int, error)
}

// Sender is a RTP send context.
// It drains a queue of audio frames into RTP packets.
type Sender struct {
	// destination of packets.
	Writer BuffersWriter

	// payload type.
	PayloadType uint8

	// size of a frame in bytes.
	FrameSize int

	// maximum size of a datagram.
	// It defaults to 1280.
	MTU int

	// SSRC of packets.
	// It defaults to a random value.
	SSRC *uint32

	// initial sequence number of packets.
	// It defaults to a random value.
	InitialSequenceNumber *uint16

	// initial timestamp of packets.
	// It defaults to 0.
	InitialTimestamp *uint32

	sequenceNumber uint16
	timestamp      uint32
	ssrc           uint32
	payloadSize    int
	hdr            []byte
	vecs           [][]byte
}

// Initialize initializes a Sender.
func (s *Sender) Initialize() error {
	if s.FrameSize <= 0 {
		return fmt.Errorf("invalid frame size: %d", s.FrameSize)
	}

	if s.PayloadType > 127 {
		return fmt.Errorf("invalid payload type: %d", s.PayloadType)
	}

	if s.MTU == 0 {
		s.MTU = defaultMTU
	}

	s.payloadSize = (s.MTU - headerSize) / s.FrameSize * s.FrameSize
	if s.payloadSize <= 0 {
		return fmt.Errorf("MTU %d is too small for frame size %d", s.MTU, s.FrameSize)
	}

	if s.SSRC == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		s.SSRC = &v
	}
	s.ssrc = *s.SSRC

	if s.InitialSequenceNumber == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		v2 := uint16(v)
		s.InitialSequenceNumber = &v2
	}
	s.sequenceNumber = *s.InitialSequenceNumber

	if s.InitialTimestamp != nil {
		s.timestamp = *s.InitialTimestamp
	}

	s.hdr = make([]byte, headerSize)
	s.vecs = make([][]byte, 0, MaxVectors)

	return nil
}

// PayloadSize returns the maximum payload size of a packet.
func (s *Sender) PayloadSize() int {
	return s.payloadSize
}

// SequenceNumber returns the sequence number of the next packet.
func (s *Sender) SequenceNumber() uint16 {
	return s.sequenceNumber
}

// Timestamp returns the timestamp of the next packet.
func (s *Sender) Timestamp() uint32 {
	return s.timestamp
}

// Send drains the queue into packets.
// At least one packet is sent if the queue contains a whole frame,
// then packets are sent as long as the queue contains a full payload.
// Data is removed from the queue only after it has been sent.
// When the socket buffer is full, Send returns without error and
// the remaining data stays in the queue.
func (s *Sender) Send(q *blockq.Queue) (int, error) {
	sent := 0

	for {
		n, err := s.sendPacket(q)
		if err != nil {
			if errors.Is(err, sockio.ErrWouldBlock) {
				return sent, nil
			}
			return sent, err
		}

		if n == 0 {
			return sent, nil
		}

		sent++

		if q.Len() < s.payloadSize {
			return sent, nil
		}
	}
}

func (s *Sender) sendPacket(q *blockq.Queue) (int, error) {
	chunks := q.Chunks(MaxVectors-1, s.payloadSize)

	n := 0
	for _, c := range chunks {
		n += len(c)
	}

	// send whole frames only
	excess := n % s.FrameSize
	n -= excess

	for excess > 0 {
		last := chunks[len(chunks)-1]
		if len(last) > excess {
			chunks[len(chunks)-1] = last[:len(last)-excess]
			break
		}
		excess -= len(last)
		chunks = chunks[:len(chunks)-1]
	}

	if n == 0 {
		return 0, nil
	}

	h := rtp.Header{
		Version:        2,
		PayloadType:    s.PayloadType,
		SequenceNumber: s.sequenceNumber,
		Timestamp:      s.timestamp,
		SSRC:           s.ssrc,
	}

	_, err := h.MarshalTo(s.hdr)
	if err != nil {
		return 0, err
	}

	s.vecs = append(s.vecs[:0], s.hdr)
	s.vecs = append(s.vecs, chunks...)

	_, err = s.Writer.WriteBuffers(s.vecs)
	if err != nil {
		return 0, err
	}

	q.Drop(n)
	s.timestamp += uint32(n / s.FrameSize)
	s.sequenceNumber++

	return n, nil
}
