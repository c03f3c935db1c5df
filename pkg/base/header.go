package base

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/bluenviron/goraop/pkg/headerlist"
)

const (
	headerMaxEntryCount  = 255
	headerMaxLineLength  = 2048
	headerContinuationCh = ' '
)

// IsHeaderContinuation checks whether a line continues the value of the previous header.
func IsHeaderContinuation(line string) bool {
	return len(line) > 0 && line[0] == headerContinuationCh
}

// ParseHeaderLine splits a "Name: value" line.
// The field value may be preceded by any amount of spaces.
func ParseHeaderLine(line string) (string, string, error) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("invalid header line '%s'", line)
	}

	return line[:i], strings.TrimLeft(line[i+1:], " "), nil
}

func readHeader(rb *bufio.Reader) (*headerlist.HeaderList, error) {
	h := headerlist.New()
	last := ""

	for {
		line, err := readLine(rb, headerMaxLineLength)
		if err != nil {
			return nil, err
		}

		if line == "" {
			return h, nil
		}

		if last != "" && IsHeaderContinuation(line) {
			h.Append(last, line[1:])
			continue
		}

		if h.Len() >= headerMaxEntryCount {
			return nil, fmt.Errorf("headers count exceeds %d", headerMaxEntryCount)
		}

		name, value, err := ParseHeaderLine(line)
		if err != nil {
			return nil, err
		}

		h.Put(name, value)
		last = name
	}
}

// ReadLine reads a single line of the control channel, without terminator.
func ReadLine(rb *bufio.Reader) (string, error) {
	return readLine(rb, headerMaxLineLength)
}
