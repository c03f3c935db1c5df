// Package sap contains a Session Announcement Protocol (RFC2974) sender and receiver.
package sap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	// DefaultPort is the SAP port.
	DefaultPort = 9875

	// MIMEType is the payload type of announcements.
	MIMEType = "application/sdp"

	version = 1
)

// DefaultAddress is the SAP group for IPv4 global scope announcements.
var DefaultAddress = net.IPv4(224, 0, 0, 56)

// errors.
var (
	ErrPacketTooShort      = errors.New("SAP packet too short")
	ErrUnsupportedVersion  = errors.New("unsupported SAP version")
	ErrEncryptedPacket     = errors.New("encrypted SAP is not supported")
	ErrCompressedPacket    = errors.New("compressed SAP is not supported")
	ErrInvalidPayloadStart = errors.New("invalid SDP header")
)

var mimeTypeBytes = append([]byte(MIMEType), 0)

var sdpHeaders = []string{"v=0\n", "v=0\r\n"}

// Packet is a SAP packet.
type Packet struct {
	// whether the session is being deleted
	Goodbye bool

	// message identifier hash
	MsgIDHash uint16

	// originating source, 4 or 16 bytes
	Origin net.IP

	// authentication data, a multiple of 4 bytes
	AuthData []byte

	// SDP text
	Payload string
}

func (p Packet) origin() []byte {
	if ip4 := p.Origin.To4(); ip4 != nil {
		return ip4
	}
	return p.Origin.To16()
}

func (p Packet) header() ([]byte, error) {
	origin := p.origin()
	if origin == nil {
		return nil, fmt.Errorf("invalid origin: %v", p.Origin)
	}

	if len(p.AuthData)%4 != 0 || len(p.AuthData)/4 > 0xFF {
		return nil, fmt.Errorf("invalid authentication data length: %d", len(p.AuthData))
	}

	v := uint32(version) << 29
	if len(origin) == net.IPv6len {
		v |= 1 << 28
	}
	if p.Goodbye {
		v |= 1 << 26
	}
	v |= uint32(len(p.AuthData)/4) << 16
	v |= uint32(p.MsgIDHash)

	buf := make([]byte, 4, 4+len(origin)+len(p.AuthData))
	binary.BigEndian.PutUint32(buf, v)
	buf = append(buf, origin...)
	buf = append(buf, p.AuthData...)
	return buf, nil
}

// buffers returns the packet as a list of buffers, that can be sent as a single datagram.
func (p Packet) buffers() ([][]byte, error) {
	hdr, err := p.header()
	if err != nil {
		return nil, err
	}

	return [][]byte{hdr, mimeTypeBytes, []byte(p.Payload)}, nil
}

// Marshal encodes a Packet.
func (p Packet) Marshal() ([]byte, error) {
	bufs, err := p.buffers()
	if err != nil {
		return nil, err
	}
	return bytes.Join(bufs, nil), nil
}

// Unmarshal decodes a Packet.
// The payload is filtered from invalid UTF-8 sequences.
func (p *Packet) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return ErrPacketTooShort
	}

	v := binary.BigEndian.Uint32(buf)

	if (v >> 29) != version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v>>29)
	}

	if (v>>25)&1 != 0 {
		return ErrEncryptedPacket
	}

	if (v>>24)&1 != 0 {
		return ErrCompressedPacket
	}

	originLen := net.IPv4len
	if (v>>28)&1 != 0 {
		originLen = net.IPv6len
	}

	authLen := int((v>>16)&0xFF) * 4

	k := 4 + originLen + authLen
	if len(buf) < k {
		return fmt.Errorf("%w (authentication data)", ErrPacketTooShort)
	}

	p.Goodbye = (v>>26)&1 != 0
	p.MsgIDHash = uint16(v)
	p.Origin = net.IP(append([]byte(nil), buf[4:4+originLen]...))
	p.AuthData = nil
	if authLen != 0 {
		p.AuthData = append([]byte(nil), buf[4+originLen:k]...)
	}

	payload := buf[k:]

	switch {
	case bytes.HasPrefix(payload, mimeTypeBytes):
		payload = payload[len(mimeTypeBytes):]

	case !hasSDPHeader(payload):
		return ErrInvalidPayloadStart
	}

	p.Payload = strings.ToValidUTF8(string(payload), "")
	return nil
}

func hasSDPHeader(b []byte) bool {
	for _, h := range sdpHeaders {
		if bytes.HasPrefix(b, []byte(h)) {
			return true
		}
	}
	return false
}
