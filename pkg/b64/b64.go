// Package b64 contains the base64 variant used in AirPlay headers and SDP attributes,
// that omits trailing padding.
package b64

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEncoding is returned when decoding malformed input.
var ErrInvalidEncoding = errors.New("invalid base64 encoding")

// Encode encodes buf with the standard alphabet and strips trailing padding.
func Encode(buf []byte) string {
	return strings.TrimRight(base64.StdEncoding.EncodeToString(buf), "=")
}

// Decode decodes a string produced by Encode.
// Padded input is accepted too.
func Decode(s string) ([]byte, error) {
	buf, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return buf, nil
}
