// Package multicast contains a function to open UDP sockets
// that send to or receive from multicast groups.
package multicast

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Options are the options of Open.
type Options struct {
	// interface used to send and receive multicast traffic.
	// It defaults to the system default.
	Interface *net.Interface

	// TTL (IPv4) or hop limit (IPv6) of outgoing packets.
	// It defaults to 1.
	TTL int

	// whether outgoing multicast packets are looped back to local listeners.
	Loop bool

	// whether to bind to the remote port and join the remote group.
	// Receivers need this, senders don't.
	Join bool
}

type packetConn interface {
	SetMulticastTTL(int) error
	SetMulticastLoopback(bool) error
	SetMulticastInterface(*net.Interface) error
	JoinGroup(*net.Interface, net.Addr) error
}

type ipv4Conn struct {
	*ipv4.PacketConn
}

type ipv6Conn struct {
	*ipv6.PacketConn
}

func (c ipv6Conn) SetMulticastTTL(v int) error {
	return c.SetMulticastHopLimit(v)
}

func resolveNetwork(network string, remote *net.UDPAddr) (string, error) {
	switch network {
	case "udp4", "udp6":
		return network, nil

	case "udp", "":
		if remote.IP.To4() != nil {
			return "udp4", nil
		}
		return "udp6", nil
	}

	return "", fmt.Errorf("unsupported network: %s", network)
}

// Open opens a UDP socket.
// Without Join, the socket is connected to remote and local is used as source address.
// With Join, the socket is bound to the port of remote on local, or on the wildcard address,
// and joins the group of remote if it is a multicast address.
// IPv4 and IPv6 are handled in the same way.
func Open(network string, local *net.UDPAddr, remote *net.UDPAddr, opts Options) (*net.UDPConn, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote address not provided")
	}

	network, err := resolveNetwork(network, remote)
	if err != nil {
		return nil, err
	}

	if opts.TTL == 0 {
		opts.TTL = 1
	}

	var conn *net.UDPConn

	if opts.Join {
		bind := &net.UDPAddr{Port: remote.Port}
		if local != nil {
			bind.IP = local.IP
		}
		conn, err = net.ListenUDP(network, bind)
	} else {
		conn, err = net.DialUDP(network, local, remote)
	}
	if err != nil {
		return nil, err
	}

	if !remote.IP.IsMulticast() {
		return conn, nil
	}

	var pc packetConn
	if network == "udp4" {
		pc = ipv4Conn{ipv4.NewPacketConn(conn)}
	} else {
		pc = ipv6Conn{ipv6.NewPacketConn(conn)}
	}

	err = configure(pc, remote, opts)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	return conn, nil
}

func configure(pc packetConn, remote *net.UDPAddr, opts Options) error {
	err := pc.SetMulticastTTL(opts.TTL)
	if err != nil {
		return err
	}

	err = pc.SetMulticastLoopback(opts.Loop)
	if err != nil {
		return err
	}

	if opts.Interface != nil {
		err = pc.SetMulticastInterface(opts.Interface)
		if err != nil {
			return err
		}
	}

	if opts.Join {
		err = pc.JoinGroup(opts.Interface, &net.UDPAddr{IP: remote.IP})
		if err != nil {
			return err
		}
	}

	return nil
}
