package rtpreceiver

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
)

const headerSize = 12

// errors.
var (
	ErrBadPacketSize        = errors.New("bad RTP packet size")
	ErrUnsupportedVersion   = errors.New("unsupported RTP version")
	ErrPaddingUnsupported   = errors.New("RTP padding is not supported")
	ErrExtensionUnsupported = errors.New("RTP header extensions are not supported")
)

// Decode decodes a RTP packet and checks that its payload is made of whole frames.
// The returned payload points into buf.
func Decode(buf []byte, frameSize int) (*rtp.Header, []byte, error) {
	if len(buf) < headerSize {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadPacketSize, len(buf))
	}

	if v := buf[0] >> 6; v != 2 {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	if buf[0]&0x20 != 0 {
		return nil, nil, ErrPaddingUnsupported
	}

	if buf[0]&0x10 != 0 {
		return nil, nil, ErrExtensionUnsupported
	}

	var h rtp.Header
	n, err := h.Unmarshal(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrBadPacketSize, err)
	}

	payload := buf[n:]

	if frameSize > 0 && len(payload)%frameSize != 0 {
		return nil, nil, fmt.Errorf("%w: payload of %d bytes is not a multiple of %d",
			ErrBadPacketSize, len(payload), frameSize)
	}

	return &h, payload, nil
}

// TimestampDelta returns the difference between an actual and an expected timestamp,
// choosing the direction with the smaller magnitude across the 32-bit wraparound.
func TimestampDelta(expected uint32, actual uint32) int64 {
	return int64(int32(actual - expected))
}
