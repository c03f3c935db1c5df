package rtpsender

import (
	"bytes"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/goraop/internal/sockio"
	"github.com/bluenviron/goraop/pkg/blockq"
)

type dummyWriter struct {
	datagrams [][]byte
	vecCounts []int
	err       error
}

func (w *dummyWriter) WriteBuffers(bufs [][]byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.datagrams = append(w.datagrams, bytes.Join(bufs, nil))
	w.vecCounts = append(w.vecCounts, len(bufs))
	return len(w.datagrams[len(w.datagrams)-1]), nil
}

func uint16Ptr(v uint16) *uint16 {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func newSender(t *testing.T, w BuffersWriter, mtu int) *Sender {
	s := &Sender{
		Writer:                w,
		PayloadType:           10,
		FrameSize:             4,
		MTU:                   mtu,
		SSRC:                  uint32Ptr(0x9dbb7812),
		InitialSequenceNumber: uint16Ptr(0xfffe),
		InitialTimestamp:      uint32Ptr(0xfffffff0),
	}
	err := s.Initialize()
	require.NoError(t, err)
	return s
}

func TestSend(t *testing.T) {
	w := &dummyWriter{}
	s := newSender(t, w, 12+16)
	require.Equal(t, 16, s.PayloadSize())

	var q blockq.Queue
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push([]byte{byte(i), byte(i), byte(i), byte(i)}))
	}

	n, err := s.Send(&q)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 8, q.Len())

	require.Len(t, w.datagrams, 2)

	var pkt rtp.Packet
	err = pkt.Unmarshal(w.datagrams[0])
	require.NoError(t, err)
	require.Equal(t, uint8(2), pkt.Version)
	require.Equal(t, uint8(10), pkt.PayloadType)
	require.Equal(t, uint16(0xfffe), pkt.SequenceNumber)
	require.Equal(t, uint32(0xfffffff0), pkt.Timestamp)
	require.Equal(t, uint32(0x9dbb7812), pkt.SSRC)
	require.Equal(t, []byte{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, pkt.Payload)
	require.Equal(t, 5, w.vecCounts[0])

	err = pkt.Unmarshal(w.datagrams[1])
	require.NoError(t, err)
	require.Equal(t, uint16(0xffff), pkt.SequenceNumber)
	require.Equal(t, uint32(0xfffffff4), pkt.Timestamp)

	require.Equal(t, uint16(0), s.SequenceNumber())
	require.Equal(t, uint32(0xfffffff8), s.Timestamp())

	// a partial payload is sent when explicitly requested
	n, err = s.Send(&q)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, q.Len())
	require.Equal(t, uint32(0xfffffffa), s.Timestamp())
}

func TestSendWholeFrames(t *testing.T) {
	w := &dummyWriter{}
	s := newSender(t, w, 1280)

	var q blockq.Queue
	require.NoError(t, q.Push([]byte{1, 2, 3, 4, 5, 6}))
	require.NoError(t, q.Push([]byte{7}))

	n, err := s.Send(&q)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 3, q.Len())

	var pkt rtp.Packet
	err = pkt.Unmarshal(w.datagrams[0])
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, pkt.Payload)
	require.Equal(t, uint32(0xfffffff1), s.Timestamp())

	// not enough data for a frame
	var q2 blockq.Queue
	require.NoError(t, q2.Push([]byte{1, 2}))
	n, err = s.Send(&q2)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestSendMaxVectors(t *testing.T) {
	w := &dummyWriter{}
	s := newSender(t, w, 1280)

	var q blockq.Queue
	for i := 0; i < 40; i++ {
		require.NoError(t, q.Push([]byte{1, 2, 3, 4}))
	}

	_, err := s.Send(&q)
	require.NoError(t, err)

	require.Equal(t, MaxVectors, w.vecCounts[0])
	require.Len(t, w.datagrams[0], 12+(MaxVectors-1)*4)
}

func TestSendWouldBlock(t *testing.T) {
	w := &dummyWriter{err: sockio.ErrWouldBlock}
	s := newSender(t, w, 1280)

	var q blockq.Queue
	require.NoError(t, q.Push([]byte{1, 2, 3, 4}))

	n, err := s.Send(&q)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 4, q.Len())
	require.Equal(t, uint16(0xfffe), s.SequenceNumber())
	require.Equal(t, uint32(0xfffffff0), s.Timestamp())

	w.err = nil
	n, err = s.Send(&q)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, q.Len())
}

func TestSendError(t *testing.T) {
	w := &dummyWriter{err: bytes.ErrTooLarge}
	s := newSender(t, w, 1280)

	var q blockq.Queue
	require.NoError(t, q.Push([]byte{1, 2, 3, 4}))

	_, err := s.Send(&q)
	require.ErrorIs(t, err, bytes.ErrTooLarge)
	require.Equal(t, 4, q.Len())
}

func TestInitializeErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		s    Sender
	}{
		{"frame size", Sender{FrameSize: 0}},
		{"payload type", Sender{FrameSize: 4, PayloadType: 200}},
		{"mtu", Sender{FrameSize: 4, MTU: 14}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Error(t, ca.s.Initialize())
		})
	}
}
