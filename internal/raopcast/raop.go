package raopcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bluenviron/goraop/pkg/headers"
	"github.com/bluenviron/goraop/pkg/raop"
	"github.com/bluenviron/goraop/pkg/sample"
)

const (
	raopFramesPerPacket = 352
	raopWriteTimeout    = 10 * time.Second
)

func runRAOP(ctx context.Context, config *Config, logger *slog.Logger) error {
	in, err := openInput(config.Audio.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	connected := make(chan net.Conn, 1)
	closed := make(chan error, 1)

	c := &raop.Client{
		Logger: logger,
		OnConnection: func(nconn net.Conn) {
			connected <- nconn
		},
		OnClosed: func(err error) {
			select {
			case closed <- err:
			default:
			}
		},
		OnJackStatus: func(s headers.AudioJackStatus) {
			logger.Info("receiver audio jack", "status", s.Marshal())
		},
	}

	err = c.Connect(config.RAOP.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	var dataConn net.Conn

	select {
	case dataConn = <-connected:
	case err = <-closed:
		return err
	case <-ctx.Done():
		return nil
	}

	logger.Info("streaming to AirPlay receiver", "host", config.RAOP.Host)

	err = c.SetVolume(uint32(*config.RAOP.Volume * raop.VolumeNorm))
	if err != nil {
		return err
	}

	spec := config.AudioSpec()
	frameSize := spec.FrameSize()
	buf := make([]byte, raopFramesPerPacket*frameSize)
	p := &pacer{
		bytesPerSecond: spec.BytesPerSecond(),
		timeNow:        time.Now,
	}

	for {
		n, err := readFrames(in, buf, frameSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("end of input")
				return c.Flush()
			}
			return err
		}

		pcm, err := convert(spec.Format, sample.FormatS16LE, buf[:n])
		if err != nil {
			return err
		}

		pkt, _, err := c.EncodeSample(pcm)
		if err != nil {
			return err
		}

		err = dataConn.SetWriteDeadline(time.Now().Add(raopWriteTimeout))
		if err != nil {
			return err
		}

		_, err = dataConn.Write(pkt)
		if err != nil {
			return err
		}

		select {
		case err = <-closed:
			return err
		default:
		}

		err = p.wait(ctx, n)
		if err != nil {
			return nil
		}
	}
}
