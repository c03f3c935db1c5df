package headers

import (
	"fmt"
	"strconv"
	"strings"
)

// TransportProtocol is a transport protocol.
type TransportProtocol int

// transport protocols.
const (
	TransportProtocolUDP TransportProtocol = iota
	TransportProtocolTCP
)

// TransportMode is a transport mode.
type TransportMode int

const (
	// TransportModePlay is the "play" transport mode
	TransportModePlay TransportMode = iota

	// TransportModeRecord is the "record" transport mode
	TransportModeRecord
)

// String implements fmt.Stringer.
func (tm TransportMode) String() string {
	switch tm {
	case TransportModePlay:
		return "play"

	case TransportModeRecord:
		return "record"
	}
	return "unknown"
}

// Transport is a Transport header.
type Transport struct {
	// protocol of the stream
	Protocol TransportProtocol

	// whether delivery is unicast
	Unicast bool

	// (optional) interleaved frame ids
	InterleavedIDs *[2]int

	// (optional) mode
	Mode *TransportMode

	// (optional) server port
	ServerPort *int

	// (optional) AirPlay control port
	ControlPort *int

	// (optional) AirPlay timing port
	TimingPort *int
}

func parsePorts(val string) (*[2]int, error) {
	ports := strings.Split(val, "-")
	if len(ports) == 2 {
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		port2, err := strconv.ParseUint(ports[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		return &[2]int{int(port1), int(port2)}, nil
	}

	if len(ports) == 1 {
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ports (%v)", val)
		}

		return &[2]int{int(port1), int(port1)}, nil
	}

	return nil, fmt.Errorf("invalid ports (%v)", val)
}

func parsePort(val string) (*int, error) {
	ports, err := parsePorts(val)
	if err != nil {
		return nil, err
	}
	return &ports[0], nil
}

// Unmarshal decodes a Transport header.
func (h *Transport) Unmarshal(v string) error {
	if v == "" {
		return fmt.Errorf("value not provided")
	}

	*h = Transport{}

	parts := strings.Split(v, ";")

	switch parts[0] {
	case "RTP/AVP", "RTP/AVP/UDP":
		h.Protocol = TransportProtocolUDP

	case "RTP/AVP/TCP":
		h.Protocol = TransportProtocolTCP

	default:
		return fmt.Errorf("invalid protocol (%v)", v)
	}

	for _, t := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(t), "=")
		var err error

		switch key {
		case "unicast":
			h.Unicast = true

		case "interleaved":
			h.InterleavedIDs, err = parsePorts(val)

		case "server_port":
			h.ServerPort, err = parsePort(val)

		case "control_port":
			h.ControlPort, err = parsePort(val)

		case "timing_port":
			h.TimingPort, err = parsePort(val)

		case "mode":
			str := strings.ToLower(strings.Trim(val, "\""))

			switch str {
			case "play":
				v := TransportModePlay
				h.Mode = &v

			case "record", "receive":
				v := TransportModeRecord
				h.Mode = &v

			default:
				err = fmt.Errorf("invalid transport mode: '%s'", str)
			}
		}

		// ignore non-standard keys

		if err != nil {
			return err
		}
	}

	return nil
}

// Marshal encodes a Transport header.
func (h Transport) Marshal() string {
	var rets []string

	if h.Protocol == TransportProtocolUDP {
		rets = append(rets, "RTP/AVP/UDP")
	} else {
		rets = append(rets, "RTP/AVP/TCP")
	}

	if h.Unicast {
		rets = append(rets, "unicast")
	}

	if h.InterleavedIDs != nil {
		ports := *h.InterleavedIDs
		rets = append(rets, "interleaved="+strconv.FormatInt(int64(ports[0]), 10)+"-"+strconv.FormatInt(int64(ports[1]), 10))
	}

	if h.Mode != nil {
		rets = append(rets, "mode="+h.Mode.String())
	}

	if h.ServerPort != nil {
		rets = append(rets, "server_port="+strconv.FormatInt(int64(*h.ServerPort), 10))
	}

	if h.ControlPort != nil {
		rets = append(rets, "control_port="+strconv.FormatInt(int64(*h.ControlPort), 10))
	}

	if h.TimingPort != nil {
		rets = append(rets, "timing_port="+strconv.FormatInt(int64(*h.TimingPort), 10))
	}

	return strings.Join(rets, ";")
}
