// Package sdp contains a SDP encoder and a lenient SDP decoder for audio sessions.
package sdp

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bluenviron/goraop/pkg/sample"
)

// Header is the first line of every session description.
const Header = "v=0"

// errors.
var (
	ErrInvalidHeader = errors.New("invalid header")
	ErrMissingData   = errors.New("missing data")
)

// Info contains the informations extracted from a session description.
type Info struct {
	// session identity, used to deduplicate announcements
	Origin string

	// optional session name
	SessionName string

	// destination address
	Address net.IP

	// destination port
	Port int

	// RTP payload type, or sample.PayloadInvalid
	Payload uint8

	// sample specification
	Spec sample.Spec
}

// UDPAddr returns the destination address.
func (i Info) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: i.Address, Port: i.Port}
}

// parseSampleSpec parses "<format>/<rate>[/<channels>]".
func parseSampleSpec(v string) (sample.Spec, bool) {
	parts := strings.Split(strings.TrimSpace(v), "/")
	if len(parts) != 2 && len(parts) != 3 {
		return sample.Spec{}, false
	}

	f, ok := sample.FormatFromName(parts[0])
	if !ok {
		return sample.Spec{}, false
	}

	rate, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return sample.Spec{}, false
	}

	channels := uint64(1)
	if len(parts) == 3 {
		channels, err = strconv.ParseUint(parts[2], 10, 8)
		if err != nil {
			return sample.Spec{}, false
		}
	}

	s := sample.Spec{
		Format:   f,
		Rate:     uint32(rate),
		Channels: uint8(channels),
	}

	return s, s.Valid()
}

// parseMedia parses "audio <port> RTP/AVP <payload>".
func parseMedia(v string) (int, uint8, bool, error) {
	fields := strings.Fields(v)
	if len(fields) != 4 || fields[0] != "audio" || fields[2] != "RTP/AVP" {
		return 0, 0, false, nil
	}

	port, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil || port <= 0 || port > 0xFFFF {
		return 0, 0, false, fmt.Errorf("invalid port: '%s'", fields[1])
	}

	payload, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil || payload < 0 || payload > 127 {
		return 0, 0, false, fmt.Errorf("invalid payload type: '%s'", fields[3])
	}

	return int(port), uint8(payload), true, nil
}

// Parse decodes a session description.
// A goodbye announcement only needs to carry the origin.
func Parse(text string, goodbye bool) (*Info, error) {
	text = strings.ToValidUTF8(text, "")

	lines := strings.Split(text, "\n")
	if strings.TrimSuffix(lines[0], "\r") != Header {
		return nil, ErrInvalidHeader
	}

	info := &Info{
		Payload: sample.PayloadInvalid,
	}
	hasOrigin := false
	specValid := false

	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			continue
		}

		if len(line) <= 2 {
			return nil, fmt.Errorf("line too short: '%s'", line)
		}

		switch {
		case strings.HasPrefix(line, "o="):
			info.Origin = line[2:]
			hasOrigin = true

		case strings.HasPrefix(line, "s="):
			info.SessionName = line[2:]

		case strings.HasPrefix(line, "c=IN IP4 "), strings.HasPrefix(line, "c=IN IP6 "):
			addr := strings.TrimSpace(line[len("c=IN IP4 "):])

			// strip TTL and count
			addr, _, _ = strings.Cut(addr, "/")

			ip := net.ParseIP(addr)
			if ip == nil {
				return nil, fmt.Errorf("invalid address: '%s'", addr)
			}

			if (ip.To4() != nil) != strings.HasPrefix(line, "c=IN IP4 ") {
				return nil, fmt.Errorf("address family mismatch: '%s'", line)
			}

			info.Address = ip

		case strings.HasPrefix(line, "m=audio "):
			if info.Payload <= 127 {
				continue
			}

			port, payload, ok, err := parseMedia(line[2:])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			info.Port = port
			info.Payload = payload

			if spec, ok := sample.SpecFromPayload(payload); ok {
				info.Spec = spec
				specValid = true
			}

		case strings.HasPrefix(line, "a=rtpmap:"):
			if info.Payload > 127 {
				continue
			}

			ptStr, format, ok := strings.Cut(line[len("a=rtpmap:"):], " ")
			if !ok {
				continue
			}

			pt, err := strconv.ParseUint(ptStr, 10, 8)
			if err != nil || uint8(pt) != info.Payload {
				continue
			}

			if spec, ok := parseSampleSpec(format); ok {
				info.Spec = spec
				specValid = true
			}
		}
	}

	if !hasOrigin {
		return nil, fmt.Errorf("%w: origin", ErrMissingData)
	}

	if !goodbye {
		switch {
		case info.Address == nil:
			return nil, fmt.Errorf("%w: address", ErrMissingData)

		case info.Payload > 127 || info.Port == 0:
			return nil, fmt.Errorf("%w: media", ErrMissingData)

		case !specValid:
			return nil, fmt.Errorf("%w: sample spec", ErrMissingData)
		}
	}

	return info, nil
}
