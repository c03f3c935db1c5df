package sap

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSDP = "v=0\r\n" +
	"o=- 3575013317 0 IN IP4 192.168.1.2\r\n" +
	"s=test\r\n" +
	"c=IN IP4 224.0.0.56\r\n" +
	"t=3575013317 0\r\n" +
	"m=audio 46000 RTP/AVP 10\r\n"

var casesPacket = []struct {
	name string
	pkt  Packet
	byts []byte
}{
	{
		"announce ipv4",
		Packet{
			MsgIDHash: 0x1234,
			Origin:    net.IPv4(192, 168, 1, 2).To4(),
			Payload:   "v=0\n",
		},
		append([]byte{
			0x20, 0x00, 0x12, 0x34,
			192, 168, 1, 2,
		}, append([]byte("application/sdp\x00"), "v=0\n"...)...),
	},
	{
		"goodbye ipv6",
		Packet{
			Goodbye:   true,
			MsgIDHash: 0xabcd,
			Origin:    net.ParseIP("fe80::1"),
			Payload:   "v=0\n",
		},
		append([]byte{
			0x34, 0x00, 0xab, 0xcd,
			0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1,
		}, append([]byte("application/sdp\x00"), "v=0\n"...)...),
	},
	{
		"authentication data",
		Packet{
			MsgIDHash: 1,
			Origin:    net.IPv4(10, 0, 0, 1).To4(),
			AuthData:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
			Payload:   "v=0\n",
		},
		append([]byte{
			0x20, 0x02, 0x00, 0x01,
			10, 0, 0, 1,
			1, 2, 3, 4, 5, 6, 7, 8,
		}, append([]byte("application/sdp\x00"), "v=0\n"...)...),
	},
}

func TestPacketMarshal(t *testing.T) {
	for _, ca := range casesPacket {
		t.Run(ca.name, func(t *testing.T) {
			byts, err := ca.pkt.Marshal()
			require.NoError(t, err)
			require.Equal(t, ca.byts, byts)
		})
	}
}

func TestPacketUnmarshal(t *testing.T) {
	for _, ca := range casesPacket {
		t.Run(ca.name, func(t *testing.T) {
			var pkt Packet
			err := pkt.Unmarshal(ca.byts)
			require.NoError(t, err)
			require.Equal(t, ca.pkt, pkt)
		})
	}
}

func TestPacketUnmarshalSDPHeader(t *testing.T) {
	buf := append([]byte{0x20, 0x00, 0x00, 0x01, 127, 0, 0, 1}, testSDP...)

	var pkt Packet
	err := pkt.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, testSDP, pkt.Payload)
	require.False(t, pkt.Goodbye)
}

func TestPacketUnmarshalInvalidUTF8(t *testing.T) {
	buf := append([]byte{0x20, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "application/sdp\x00v=0\ns=a\xffb\n"...)

	var pkt Packet
	err := pkt.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, "v=0\ns=ab\n", pkt.Payload)
}

func TestPacketUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts []byte
		err  error
	}{
		{
			"too short",
			[]byte{0x20, 0x00, 0x00},
			ErrPacketTooShort,
		},
		{
			"version",
			append([]byte{0x40, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "v=0\n"...),
			ErrUnsupportedVersion,
		},
		{
			"encrypted",
			append([]byte{0x22, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "v=0\n"...),
			ErrEncryptedPacket,
		},
		{
			"compressed",
			append([]byte{0x21, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "v=0\n"...),
			ErrCompressedPacket,
		},
		{
			"missing origin",
			[]byte{0x30, 0x00, 0x00, 0x01, 127, 0, 0, 1},
			ErrPacketTooShort,
		},
		{
			"missing authentication data",
			[]byte{0x20, 0x02, 0x00, 0x01, 127, 0, 0, 1, 1, 2, 3, 4},
			ErrPacketTooShort,
		},
		{
			"invalid payload",
			append([]byte{0x20, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "text/plain\x00v=0\n"...),
			ErrInvalidPayloadStart,
		},
		{
			"truncated mime type",
			append([]byte{0x20, 0x00, 0x00, 0x01, 127, 0, 0, 1}, "application/sdp"...),
			ErrInvalidPayloadStart,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var pkt Packet
			err := pkt.Unmarshal(ca.byts)
			require.ErrorIs(t, err, ca.err)
		})
	}
}

func TestPacketMarshalErrors(t *testing.T) {
	_, err := Packet{Origin: nil}.Marshal()
	require.Error(t, err)

	_, err = Packet{Origin: net.IPv4(1, 2, 3, 4), AuthData: []byte{1, 2}}.Marshal()
	require.Error(t, err)
}
