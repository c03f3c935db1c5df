package sdp

import (
	"fmt"
	"net"
	"strconv"

	psdp "github.com/pion/sdp/v3"
)

// RAOP audio format parameters: frames per packet, compatible version,
// bit depth, history mult, initial history, k modifier, channels,
// max run, max frame bytes, average bit rate, sample rate.
const raopFmtp = "96 4096 0 16 40 10 14 2 255 0 0 44100"

// RAOPAnnounce is the session description sent with the ANNOUNCE request
// of an AirPlay handshake.
type RAOPAnnounce struct {
	// session id, a decimal number
	SessionID string

	// local address of the control connection
	LocalIP net.IP

	// address of the receiver
	Host net.IP

	// AES key wrapped with RSA-OAEP, in base64 without padding
	RSAAESKey string

	// AES IV in base64 without padding
	AESIV string
}

// Marshal encodes the session description.
func (a RAOPAnnounce) Marshal() ([]byte, error) {
	sid, err := strconv.ParseUint(a.SessionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid session id '%s'", a.SessionID)
	}

	if a.LocalIP == nil || a.Host == nil {
		return nil, fmt.Errorf("addresses not provided")
	}

	sd := &psdp.SessionDescription{
		Origin: psdp.Origin{
			Username:       "iTunes",
			SessionID:      sid,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    addressType(a.LocalIP),
			UnicastAddress: a.LocalIP.String(),
		},
		SessionName: "iTunes",
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: addressType(a.Host),
			Address:     &psdp.Address{Address: a.Host.String()},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*psdp.MediaDescription{
			{
				MediaName: psdp.MediaName{
					Media:   "audio",
					Port:    psdp.RangedPort{Value: 0},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"96"},
				},
				Attributes: []psdp.Attribute{
					psdp.NewAttribute("rtpmap", "96 AppleLossless"),
					psdp.NewAttribute("fmtp", raopFmtp),
					psdp.NewAttribute("rsaaeskey", a.RSAAESKey),
					psdp.NewAttribute("aesiv", a.AESIV),
				},
			},
		},
	}

	return sd.Marshal()
}
