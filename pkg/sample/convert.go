package sample

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/g711"
)

func swap16(in []byte) []byte {
	out := make([]byte, len(in)&^1)
	for i := 0; i+1 < len(in); i += 2 {
		out[i], out[i+1] = in[i+1], in[i]
	}
	return out
}

// FromS16LE converts host 16-bit little endian samples into the given format.
func FromS16LE(dst Format, in []byte) ([]byte, error) {
	if len(in)%2 != 0 {
		return nil, fmt.Errorf("odd buffer length (%d)", len(in))
	}

	switch dst {
	case FormatS16LE:
		return append([]byte(nil), in...), nil

	case FormatS16BE:
		return swap16(in), nil

	case FormatULAW:
		return g711.Mulaw(swap16(in)).Marshal()

	case FormatALAW:
		return g711.Alaw(swap16(in)).Marshal()

	case FormatU8:
		out := make([]byte, len(in)/2)
		for i := range out {
			out[i] = in[i*2+1] ^ 0x80
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported format: %v", dst)
}

// ToS16LE converts samples of the given format into host 16-bit little endian samples.
func ToS16LE(src Format, in []byte) ([]byte, error) {
	switch src {
	case FormatS16LE:
		if len(in)%2 != 0 {
			return nil, fmt.Errorf("odd buffer length (%d)", len(in))
		}
		return append([]byte(nil), in...), nil

	case FormatS16BE:
		if len(in)%2 != 0 {
			return nil, fmt.Errorf("odd buffer length (%d)", len(in))
		}
		return swap16(in), nil

	case FormatULAW:
		var raw g711.Mulaw
		raw.Unmarshal(in)
		return swap16(raw), nil

	case FormatALAW:
		var raw g711.Alaw
		raw.Unmarshal(in)
		return swap16(raw), nil

	case FormatU8:
		out := make([]byte, len(in)*2)
		for i, v := range in {
			out[i*2+1] = v ^ 0x80
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported format: %v", src)
}
