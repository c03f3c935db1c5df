package raopcast

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/bluenviron/goraop/internal/sockio"
	"github.com/bluenviron/goraop/pkg/blockq"
	"github.com/bluenviron/goraop/pkg/multicast"
	"github.com/bluenviron/goraop/pkg/readbuffer"
	"github.com/bluenviron/goraop/pkg/rtpreceiver"
	"github.com/bluenviron/goraop/pkg/sample"
	"github.com/bluenviron/goraop/pkg/sap"
	"github.com/bluenviron/goraop/pkg/sdp"
)

// listener follows SAP announcements and plays the first matching session.
type listener struct {
	config *Config
	logger *slog.Logger
	out    io.Writer
	cookie uint32

	// called to open the RTP socket of a session.
	openConn func(info *sdp.Info) (*net.UDPConn, error)

	mutex   sync.Mutex
	current *stream
	wg      sync.WaitGroup
}

func (l *listener) initialize() {
	id := uuid.New()
	l.cookie = binary.BigEndian.Uint32(id[:4])

	if l.openConn == nil {
		l.openConn = l.openMulticast
	}
}

func (l *listener) openMulticast(info *sdp.Info) (*net.UDPConn, error) {
	iface, err := interfaceByName(l.config.Listen.Interface)
	if err != nil {
		return nil, err
	}

	conn, err := multicast.Open("udp", nil, info.UDPAddr(), multicast.Options{
		Interface: iface,
		Join:      true,
		Loop:      true,
	})
	if err != nil {
		return nil, err
	}

	if l.config.Listen.ReadBufferSize != 0 {
		err = readbuffer.SetReadBuffer(conn, l.config.Listen.ReadBufferSize)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// handleAnnouncement processes a SAP packet.
func (l *listener) handleAnnouncement(pkt *sap.Packet) {
	info, err := sdp.Parse(pkt.Payload, pkt.Goodbye)
	if err != nil {
		l.logger.Warn("invalid session description", "err", err)
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if pkt.Goodbye {
		if l.current != nil && l.current.info.Origin == info.Origin {
			l.logger.Info("session ended", "origin", info.Origin)
			l.current.close()
			l.current = nil
		}
		return
	}

	if l.current != nil {
		if l.current.info.Origin != info.Origin {
			l.logger.Debug("ignoring session, another one is playing", "origin", info.Origin)
		}
		return
	}

	if l.config.Listen.Name != "" && info.SessionName != l.config.Listen.Name {
		l.logger.Debug("ignoring session", "name", info.SessionName)
		return
	}

	conn, err := l.openConn(info)
	if err != nil {
		l.logger.Warn("unable to open RTP socket", "err", err)
		return
	}

	s := &stream{
		info:   info,
		conn:   conn,
		out:    l.out,
		logger: l.logger,
	}
	err = s.initialize(l.config.Listen.MaxQueue, l.cookie)
	if err != nil {
		conn.Close()
		l.logger.Warn("unable to start session", "err", err)
		return
	}

	l.logger.Info("playing session",
		"name", info.SessionName,
		"address", info.UDPAddr().String(),
		"spec", info.Spec.String())

	l.current = s
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		s.run()
	}()
}

func (l *listener) close() {
	l.mutex.Lock()
	if l.current != nil {
		l.current.close()
		l.current = nil
	}
	l.mutex.Unlock()

	l.wg.Wait()
}

// stream receives a RTP session and writes its samples as 16-bit little endian.
type stream struct {
	info   *sdp.Info
	conn   *net.UDPConn
	out    io.Writer
	logger *slog.Logger

	receiver *rtpreceiver.Receiver
	session  *rtpreceiver.Session
	buf      []byte
}

func (s *stream) initialize(maxQueue int, cookie uint32) error {
	reader := &sockio.Reader{Conn: s.conn}
	err := reader.Initialize()
	if err != nil {
		return err
	}

	frameSize := s.info.Spec.FrameSize()

	s.receiver = &rtpreceiver.Receiver{
		Reader:    reader,
		FrameSize: frameSize,
		Logger:    s.logger,
	}
	s.receiver.Initialize()

	s.session = &rtpreceiver.Session{
		Queue:     &blockq.Queue{MaxLength: maxQueue},
		FrameSize: frameSize,
		Cookie:    cookie,
		Logger:    s.logger,
	}
	err = s.session.Initialize()
	if err != nil {
		return err
	}

	s.buf = make([]byte, 4096/frameSize*frameSize)
	return nil
}

func (s *stream) close() {
	s.conn.Close()
}

func (s *stream) run() {
	for {
		pkt, err := s.receiver.Read()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("RTP receive failed", "err", err)
			}
			return
		}

		_, err = s.session.Push(pkt)
		if err != nil {
			s.logger.Warn("unable to queue RTP payload", "err", err)
			return
		}

		err = s.drain()
		if err != nil {
			s.logger.Warn("unable to write samples", "err", err)
			return
		}
	}
}

// drain writes all queued samples into the output.
func (s *stream) drain() error {
	for {
		n, err := s.session.Queue.Read(s.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		pcm, err := convert(s.info.Spec.Format, sample.FormatS16LE, s.buf[:n])
		if err != nil {
			return err
		}

		_, err = s.out.Write(pcm)
		if err != nil {
			return err
		}
	}
}

func runListen(ctx context.Context, config *Config, logger *slog.Logger) error {
	out, err := openOutput(config.Audio.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	iface, err := interfaceByName(config.Listen.Interface)
	if err != nil {
		return err
	}

	sapConn, err := multicast.Open("udp", nil, &net.UDPAddr{
		IP:   net.ParseIP(config.Listen.SAPAddress),
		Port: sap.DefaultPort,
	}, multicast.Options{
		Interface: iface,
		Join:      true,
		Loop:      true,
	})
	if err != nil {
		return err
	}
	defer sapConn.Close()

	sapCtx := &sap.Context{
		Conn:   sapConn,
		Logger: logger,
	}
	err = sapCtx.Initialize()
	if err != nil {
		return err
	}

	l := &listener{
		config: config,
		logger: logger,
		out:    out,
	}
	l.initialize()
	defer l.close()

	go func() {
		<-ctx.Done()
		sapConn.Close()
	}()

	logger.Info("waiting for announcements", "address", config.Listen.SAPAddress)

	for {
		pkt, err := sapCtx.Recv()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		l.handleAnnouncement(pkt)
	}
}
