package raop

import (
	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/bits"
)

const (
	// FrameSize is the size of a frame of 16-bit stereo samples.
	FrameSize = 4

	// HeaderSize is the size of the header that precedes encoded samples.
	HeaderSize = 16

	subHeaderSize = 7
)

// placeholder of the RTP header, after the interleaved frame header.
var rtpPlaceholder = [HeaderSize - 4]byte{0xF0, 0xFF}

// encodeFrames packs all complete frames of raw, 16-bit little-endian stereo samples,
// into an uncompressed ALAC frame.
// It returns the ALAC frame and the number of consumed bytes.
func encodeFrames(raw []byte) ([]byte, int) {
	frames := len(raw) / FrameSize

	w := bits.NewWriter(subHeaderSize + frames*FrameSize + 1)

	w.WriteBits(1, 3) // channels, stereo
	w.WriteBits(0, 4)
	w.WriteBits(0, 8)
	w.WriteBits(0, 4)
	w.WriteBits(1, 1) // has size
	w.WriteBits(0, 2)
	w.WriteBits(1, 1) // not compressed
	w.WriteBits(uint64(frames), 32)

	for i := range frames {
		f := raw[i*FrameSize:]
		w.WriteBits(uint64(f[1]), 8)
		w.WriteBits(uint64(f[0]), 8)
		w.WriteBits(uint64(f[3]), 8)
		w.WriteBits(uint64(f[2]), 8)
	}

	return w.Bytes(), frames * FrameSize
}

// encodeSample encodes samples into a packet for the data connection.
// The ALAC frame is encrypted, the header is not.
func encodeSample(raw []byte, key *sessionKey) ([]byte, int, error) {
	alac, n := encodeFrames(raw)

	payload := make([]byte, len(rtpPlaceholder)+len(alac))
	copy(payload, rtpPlaceholder[:])
	copy(payload[len(rtpPlaceholder):], alac)

	buf, err := base.InterleavedFrame{
		Channel: 0,
		Payload: payload,
	}.Marshal()
	if err != nil {
		return nil, 0, err
	}

	key.encrypt(buf[HeaderSize:])

	return buf, n, nil
}
