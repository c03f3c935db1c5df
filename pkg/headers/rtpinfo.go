package headers

import (
	"fmt"
	"strconv"
	"strings"
)

// RTPInfo is a RTP-Info header.
// AirPlay receivers expect a single entry without URL.
type RTPInfo struct {
	SequenceNumber uint16
	RTPTime        uint32
}

// Unmarshal decodes a RTP-Info header.
func (h *RTPInfo) Unmarshal(v string) error {
	if v == "" {
		return fmt.Errorf("value not provided")
	}

	var hasSeq, hasTime bool

	for _, kv := range strings.Split(v, ";") {
		k, val, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return fmt.Errorf("unable to parse key-value (%v)", kv)
		}

		switch k {
		case "seq":
			vi, err := strconv.ParseUint(val, 10, 16)
			if err != nil {
				return err
			}
			h.SequenceNumber = uint16(vi)
			hasSeq = true

		case "rtptime":
			vi, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return err
			}
			h.RTPTime = uint32(vi)
			hasTime = true

		case "url":

		default:
			return fmt.Errorf("invalid key: %v", k)
		}
	}

	if !hasSeq || !hasTime {
		return fmt.Errorf("seq or rtptime missing (%v)", v)
	}

	return nil
}

// Marshal encodes a RTP-Info header.
func (h RTPInfo) Marshal() string {
	return "seq=" + strconv.FormatUint(uint64(h.SequenceNumber), 10) +
		";rtptime=" + strconv.FormatUint(uint64(h.RTPTime), 10)
}
