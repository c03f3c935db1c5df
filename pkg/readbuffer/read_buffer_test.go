package readbuffer

import (
	"net"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetReadBuffer(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux only")
	}

	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer pc.Close() //nolint:errcheck

	err = SetReadBuffer(pc, 10000)
	require.NoError(t, err)

	v, err := ReadBuffer(pc)
	require.NoError(t, err)
	require.Equal(t, 10000, v)
}
