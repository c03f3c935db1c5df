package base

import (
	"bufio"
	"fmt"
	"strings"
)

func readBytesLimited(rb *bufio.Reader, delim byte, n int) ([]byte, error) {
	for i := 1; i <= n; i++ {
		byts, err := rb.Peek(i)
		if err != nil {
			return nil, err
		}

		if byts[len(byts)-1] == delim {
			rb.Discard(len(byts)) //nolint:errcheck
			return byts, nil
		}
	}
	return nil, fmt.Errorf("buffer length exceeds %d", n)
}

// readLine reads a line terminated by "\n" and strips the terminator and an optional "\r".
func readLine(rb *bufio.Reader, n int) (string, error) {
	byts, err := readBytesLimited(rb, '\n', n)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(byts[:len(byts)-1]), "\r"), nil
}
