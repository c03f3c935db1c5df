// Package sample contains audio sample formats and their RTP payload types.
package sample

import (
	"fmt"
)

// Format is a sample format.
type Format int

// formats.
const (
	FormatInvalid Format = iota
	FormatU8
	FormatALAW
	FormatULAW
	FormatS16LE
	FormatS16BE
)

var formatLabels = map[Format]string{
	FormatU8:    "u8",
	FormatALAW:  "aLaw",
	FormatULAW:  "uLaw",
	FormatS16LE: "s16le",
	FormatS16BE: "s16be",
}

// String implements fmt.Stringer.
func (f Format) String() string {
	if l, ok := formatLabels[f]; ok {
		return l
	}
	return "invalid"
}

// Size returns the size in bytes of a single sample.
func (f Format) Size() int {
	switch f {
	case FormatU8, FormatALAW, FormatULAW:
		return 1

	case FormatS16LE, FormatS16BE:
		return 2
	}
	return 0
}

// Spec is a sample specification.
type Spec struct {
	Format   Format
	Rate     uint32
	Channels uint8
}

// Valid checks whether the specification is usable.
func (s Spec) Valid() bool {
	return s.Format.Size() != 0 &&
		s.Rate > 0 && s.Rate <= 48000*8 &&
		s.Channels > 0 && s.Channels <= 32
}

// FrameSize returns the size in bytes of a frame, that is a sample for every channel.
func (s Spec) FrameSize() int {
	return s.Format.Size() * int(s.Channels)
}

// BytesPerSecond returns the byte rate.
func (s Spec) BytesPerSecond() int {
	return s.FrameSize() * int(s.Rate)
}

// String implements fmt.Stringer.
func (s Spec) String() string {
	return fmt.Sprintf("%s %dch %dHz", s.Format, s.Channels, s.Rate)
}

// PayloadDynamic is the payload type used for specifications
// without a static payload type.
const PayloadDynamic = 127

// PayloadInvalid is the payload type used when no payload type is known.
const PayloadInvalid = 255

var staticPayloads = []struct {
	payload uint8
	spec    Spec
}{
	{0, Spec{Format: FormatULAW, Rate: 8000, Channels: 1}},
	{8, Spec{Format: FormatALAW, Rate: 8000, Channels: 1}},
	{10, Spec{Format: FormatS16BE, Rate: 44100, Channels: 2}},
	{11, Spec{Format: FormatS16BE, Rate: 44100, Channels: 1}},
}

// PayloadFromSpec returns the static payload type of a specification,
// or PayloadDynamic.
func PayloadFromSpec(s Spec) uint8 {
	for _, e := range staticPayloads {
		if e.spec == s {
			return e.payload
		}
	}
	return PayloadDynamic
}

// SpecFromPayload returns the specification of a static payload type.
func SpecFromPayload(payload uint8) (Spec, bool) {
	for _, e := range staticPayloads {
		if e.payload == payload {
			return e.spec, true
		}
	}
	return Spec{}, false
}

var formatNames = map[Format]string{
	FormatS16BE: "L16",
	FormatU8:    "L8",
	FormatALAW:  "PCMA",
	FormatULAW:  "PCMU",
}

// FormatName returns the RTP encoding name of a format.
// Formats that cannot be sent on the wire return false.
func FormatName(f Format) (string, bool) {
	n, ok := formatNames[f]
	return n, ok
}

// FormatFromName returns the format of a RTP encoding name.
func FormatFromName(name string) (Format, bool) {
	for f, n := range formatNames {
		if n == name {
			return f, true
		}
	}
	return FormatInvalid, false
}

// WireFormat returns the format used on the wire for a given format.
// Host-order 16-bit samples are sent in network order.
func WireFormat(f Format) Format {
	if f == FormatS16LE {
		return FormatS16BE
	}
	return f
}
