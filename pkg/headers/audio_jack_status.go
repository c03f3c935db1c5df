package headers

import (
	"fmt"
	"strings"
)

// AudioJackType is the type of an audio jack.
type AudioJackType int

// audio jack types.
const (
	AudioJackTypeUnknown AudioJackType = iota
	AudioJackTypeAnalog
	AudioJackTypeDigital
)

// String implements fmt.Stringer.
func (t AudioJackType) String() string {
	switch t {
	case AudioJackTypeAnalog:
		return "analog"

	case AudioJackTypeDigital:
		return "digital"
	}
	return "unknown"
}

// AudioJackStatus is an Audio-Jack-Status header,
// sent by AirPlay receivers in response to SETUP.
type AudioJackStatus struct {
	Connected bool
	Type      AudioJackType
}

// Unmarshal decodes an Audio-Jack-Status header.
func (h *AudioJackStatus) Unmarshal(v string) error {
	if v == "" {
		return fmt.Errorf("value not provided")
	}

	*h = AudioJackStatus{}

	for _, part := range strings.Split(v, ";") {
		k, val, _ := strings.Cut(strings.TrimSpace(part), "=")

		switch k {
		case "connected":
			h.Connected = true

		case "disconnected":
			h.Connected = false

		case "type":
			switch val {
			case "analog":
				h.Type = AudioJackTypeAnalog

			case "digital":
				h.Type = AudioJackTypeDigital

			default:
				return fmt.Errorf("invalid audio jack type (%v)", val)
			}
		}
	}

	return nil
}

// Marshal encodes an Audio-Jack-Status header.
func (h AudioJackStatus) Marshal() string {
	ret := "disconnected"
	if h.Connected {
		ret = "connected"
	}
	if h.Type != AudioJackTypeUnknown {
		ret += "; type=" + h.Type.String()
	}
	return ret
}
