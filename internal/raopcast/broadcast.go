package raopcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bluenviron/goraop/internal/sockio"
	"github.com/bluenviron/goraop/pkg/blockq"
	"github.com/bluenviron/goraop/pkg/multicast"
	"github.com/bluenviron/goraop/pkg/ntp"
	"github.com/bluenviron/goraop/pkg/rtpsender"
	"github.com/bluenviron/goraop/pkg/sample"
	"github.com/bluenviron/goraop/pkg/sap"
	"github.com/bluenviron/goraop/pkg/sdp"
)

// broadcaster sends a RTP stream to a multicast group and announces it with SAP.
type broadcaster struct {
	config *Config
	logger *slog.Logger

	inSpec   sample.Spec
	wireSpec sample.Spec
	rtpConn  *net.UDPConn
	sapConn  *net.UDPConn
	sap      *sap.Context
	sender   *rtpsender.Sender
	queue    *blockq.Queue
}

func (b *broadcaster) initialize() error {
	iface, err := interfaceByName(b.config.Broadcast.Interface)
	if err != nil {
		return err
	}

	opts := multicast.Options{
		Interface: iface,
		TTL:       b.config.Broadcast.TTL,
		Loop:      b.config.Broadcast.Loop,
	}

	dest := &net.UDPAddr{
		IP:   net.ParseIP(b.config.Broadcast.Destination),
		Port: b.config.Broadcast.Port,
	}

	b.rtpConn, err = multicast.Open("udp", nil, dest, opts)
	if err != nil {
		return fmt.Errorf("unable to open RTP socket: %w", err)
	}

	b.sapConn, err = multicast.Open("udp", nil, &net.UDPAddr{
		IP:   net.ParseIP(b.config.Broadcast.SAPAddress),
		Port: sap.DefaultPort,
	}, opts)
	if err != nil {
		b.rtpConn.Close()
		return fmt.Errorf("unable to open SAP socket: %w", err)
	}

	b.inSpec = b.config.AudioSpec()
	b.wireSpec = b.inSpec
	b.wireSpec.Format = sample.WireFormat(b.inSpec.Format)
	payload := sample.PayloadFromSpec(b.wireSpec)

	clock := &ntp.Clock{
		Server: b.config.Broadcast.NTPServer,
		Logger: b.logger,
	}
	if b.config.Broadcast.NTPServer != "" {
		err = clock.Sync()
		if err != nil {
			b.logger.Warn("unable to synchronize clock, using the local one", "err", err)
		}
	}

	source := b.rtpConn.LocalAddr().(*net.UDPAddr).IP

	text, err := sdp.Announcement{
		Source:      source,
		Destination: dest.IP,
		Name:        b.config.Broadcast.Name,
		Port:        dest.Port,
		Payload:     payload,
		Spec:        b.wireSpec,
		Time:        clock.Now(),
	}.Marshal()
	if err != nil {
		b.close()
		return err
	}

	b.sap = &sap.Context{
		Conn:   b.sapConn,
		SDP:    string(text),
		Logger: b.logger,
	}
	err = b.sap.Initialize()
	if err != nil {
		b.close()
		return err
	}

	b.sender = &rtpsender.Sender{
		Writer:      &sockio.Writer{Conn: b.rtpConn},
		PayloadType: payload,
		FrameSize:   b.wireSpec.FrameSize(),
		MTU:         b.config.Broadcast.MTU,
	}
	err = b.sender.Initialize()
	if err != nil {
		b.close()
		return err
	}

	b.queue = &blockq.Queue{
		MaxLength: b.wireSpec.BytesPerSecond(),
	}

	b.logger.Info("broadcasting",
		"destination", dest.String(),
		"spec", b.wireSpec.String(),
		"payload", payload)

	return nil
}

func (b *broadcaster) close() {
	b.rtpConn.Close()
	b.sapConn.Close()
}

func (b *broadcaster) runSAP(ctx context.Context) {
	t := time.NewTicker(b.config.Broadcast.SAPInterval)
	defer t.Stop()

	for {
		b.sap.Send(false) //nolint:errcheck

		select {
		case <-t.C:
		case <-ctx.Done():
			b.sap.Send(true) //nolint:errcheck
			return
		}
	}
}

// push converts and queues local samples, then sends as many packets as possible.
func (b *broadcaster) push(in []byte) error {
	wire, err := convert(b.inSpec.Format, b.wireSpec.Format, in)
	if err != nil {
		return err
	}

	err = b.queue.Push(wire)
	if err != nil {
		if !errors.Is(err, blockq.ErrFull) {
			return err
		}
		b.logger.Warn("send queue is full, discarding samples")
	}

	_, err = b.sender.Send(b.queue)
	return err
}

func runBroadcast(ctx context.Context, config *Config, logger *slog.Logger) error {
	in, err := openInput(config.Audio.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	b := &broadcaster{
		config: config,
		logger: logger,
	}
	err = b.initialize()
	if err != nil {
		return err
	}
	defer b.close()

	sapCtx, sapCancel := context.WithCancel(ctx)
	sapDone := make(chan struct{})
	go func() {
		defer close(sapDone)
		b.runSAP(sapCtx)
	}()
	defer func() {
		sapCancel()
		<-sapDone
	}()

	frameSize := b.inSpec.FrameSize()
	buf := make([]byte, b.sender.PayloadSize()/b.wireSpec.FrameSize()*frameSize)
	p := &pacer{
		bytesPerSecond: b.inSpec.BytesPerSecond(),
		timeNow:        time.Now,
	}

	for {
		n, err := readFrames(in, buf, frameSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("end of input")
				return nil
			}
			return err
		}

		err = b.push(buf[:n])
		if err != nil {
			return err
		}

		err = p.wait(ctx, n)
		if err != nil {
			return nil
		}
	}
}
