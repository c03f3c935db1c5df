package sdp

import (
	"fmt"
	"net"
	"strconv"
	"time"

	psdp "github.com/pion/sdp/v3"

	"github.com/bluenviron/goraop/pkg/ntp"
	"github.com/bluenviron/goraop/pkg/sample"
)

// DefaultUsername is the origin username used when none is provided.
const DefaultUsername = "-"

func addressType(ip net.IP) string {
	if ip.To4() != nil {
		return "IP4"
	}
	return "IP6"
}

// Announcement describes a multicast audio session.
type Announcement struct {
	// origin username.
	// It defaults to DefaultUsername.
	Username string

	// source address
	Source net.IP

	// destination address
	Destination net.IP

	// session name
	Name string

	// destination port
	Port int

	// RTP payload type
	Payload uint8

	// sample specification
	Spec sample.Spec

	// creation time, used as session id and start time.
	// It defaults to the current time.
	Time time.Time
}

// Marshal encodes the announcement.
func (a Announcement) Marshal() ([]byte, error) {
	if (a.Source.To4() != nil) != (a.Destination.To4() != nil) {
		return nil, fmt.Errorf("source and destination belong to different address families")
	}

	name, ok := sample.FormatName(sample.WireFormat(a.Spec.Format))
	if !ok {
		return nil, fmt.Errorf("unsupported sample format: %v", a.Spec.Format)
	}

	if a.Username == "" {
		a.Username = DefaultUsername
	}
	if a.Name == "" {
		a.Name = "-"
	}
	if a.Time.IsZero() {
		a.Time = time.Now()
	}

	ntpTime := ntp.Seconds(a.Time)
	at := addressType(a.Destination)
	pt := strconv.FormatUint(uint64(a.Payload), 10)

	sd := &psdp.SessionDescription{
		Origin: psdp.Origin{
			Username:       a.Username,
			SessionID:      ntpTime,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    at,
			UnicastAddress: a.Source.String(),
		},
		SessionName: psdp.SessionName(a.Name),
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: at,
			Address:     &psdp.Address{Address: a.Destination.String()},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: ntpTime, StopTime: 0}},
		},
		Attributes: []psdp.Attribute{
			psdp.NewPropertyAttribute("recvonly"),
		},
		MediaDescriptions: []*psdp.MediaDescription{
			{
				MediaName: psdp.MediaName{
					Media:   "audio",
					Port:    psdp.RangedPort{Value: a.Port},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{pt},
				},
				Attributes: []psdp.Attribute{
					psdp.NewAttribute("rtpmap", pt+" "+name+"/"+
						strconv.FormatUint(uint64(a.Spec.Rate), 10)+"/"+
						strconv.FormatUint(uint64(a.Spec.Channels), 10)),
					psdp.NewAttribute("type", "broadcast"),
				},
			},
		},
	}

	return sd.Marshal()
}
