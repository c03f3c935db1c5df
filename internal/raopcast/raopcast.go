// Package raopcast contains the raopcast application.
package raopcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bluenviron/goraop/pkg/sample"
)

// Run runs the configured mode until ctx is canceled or the stream ends.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	switch config.Mode {
	case ModeRAOP:
		return runRAOP(ctx, config, logger)

	case ModeBroadcast:
		return runBroadcast(ctx, config, logger)

	case ModeListen:
		return runListen(ctx, config, logger)
	}

	return fmt.Errorf("invalid mode: '%s'", config.Mode)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// convert converts samples between formats, passing through 16-bit little endian samples.
func convert(from sample.Format, to sample.Format, in []byte) ([]byte, error) {
	if from == to {
		return in, nil
	}

	pcm, err := sample.ToS16LE(from, in)
	if err != nil {
		return nil, err
	}

	return sample.FromS16LE(to, pcm)
}

// readFrames reads up to len(buf) bytes, truncated to whole frames.
// It returns io.EOF when no complete frame is available.
func readFrames(r io.Reader, buf []byte, frameSize int) (int, error) {
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil:

	case io.ErrUnexpectedEOF:
		err = nil

	default:
		return 0, err
	}

	n = n / frameSize * frameSize
	if n == 0 {
		return 0, io.EOF
	}

	return n, err
}

// pacer keeps the output rate of a stream close to its real time rate.
type pacer struct {
	bytesPerSecond int
	timeNow        func() time.Time

	start time.Time
	sent  int64
}

func (p *pacer) delay(n int) time.Duration {
	now := p.timeNow()
	if p.start.IsZero() {
		p.start = now
	}

	p.sent += int64(n)
	target := p.start.Add(time.Duration(p.sent * int64(time.Second) / int64(p.bytesPerSecond)))

	return target.Sub(now)
}

// wait accounts n bytes and waits until they are due.
func (p *pacer) wait(ctx context.Context, n int) error {
	d := p.delay(n)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
