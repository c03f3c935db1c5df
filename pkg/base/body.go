package base

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/bluenviron/goraop/pkg/headerlist"
)

const (
	maxContentLength = 128 * 1024
)

func readBody(h *headerlist.HeaderList, rb *bufio.Reader) ([]byte, error) {
	cls, ok := h.Get("Content-Length")
	if !ok {
		return nil, nil
	}

	cl, err := strconv.ParseInt(cls, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid Content-Length")
	}

	if cl > maxContentLength {
		return nil, fmt.Errorf("Content-Length exceeds %d (it's %d)",
			maxContentLength, cl)
	}

	buf := make([]byte, cl)
	_, err = io.ReadFull(rb, buf)
	if err != nil {
		return nil, err
	}

	return buf, nil
}
