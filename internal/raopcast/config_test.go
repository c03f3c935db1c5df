package raopcast

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/goraop/pkg/sample"
)

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig([]byte("mode: broadcast\n"))
	require.NoError(t, err)

	require.Equal(t, "info", config.Logging.Level)
	require.Equal(t, slog.LevelInfo, config.GetSlogLevel())
	require.Equal(t, sample.Spec{
		Format:   sample.FormatS16LE,
		Rate:     44100,
		Channels: 2,
	}, config.AudioSpec())
	require.Equal(t, "-", config.Audio.Input)
	require.Equal(t, BroadcastConfig{
		Destination: "224.0.0.56",
		Port:        46000,
		SAPAddress:  "224.0.0.56",
		SAPInterval: 5 * time.Second,
		TTL:         1,
		MTU:         1280,
	}, config.Broadcast)
}

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(
		"mode: raop\n" +
			"logging:\n" +
			"  level: DEBUG\n" +
			"audio:\n" +
			"  format: s16be\n" +
			"  input: in.raw\n" +
			"raop:\n" +
			"  host: '[fe80::1]:7000'\n" +
			"  volume: 0.5\n"))
	require.NoError(t, err)

	require.Equal(t, slog.LevelDebug, config.GetSlogLevel())
	require.Equal(t, sample.FormatS16BE, config.AudioSpec().Format)
	require.Equal(t, "in.raw", config.Audio.Input)
	require.Equal(t, "[fe80::1]:7000", config.RAOP.Host)
	require.Equal(t, 0.5, *config.RAOP.Volume)
}

func TestParseConfigListen(t *testing.T) {
	config, err := ParseConfig([]byte(
		"mode: listen\n" +
			"audio:\n" +
			"  format: alaw\n" +
			"listen:\n" +
			"  name: kitchen\n"))
	require.NoError(t, err)

	require.Equal(t, sample.FormatALAW, config.AudioSpec().Format)
	require.Equal(t, ListenConfig{
		SAPAddress: "224.0.0.56",
		Name:       "kitchen",
		MaxQueue:   1 << 20,
	}, config.Listen)
}

func TestParseConfigErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		conf string
	}{
		{"invalid yaml", "mode: [\n"},
		{"missing mode", "logging:\n  level: info\n"},
		{"invalid mode", "mode: play\n"},
		{"invalid level", "mode: listen\nlogging:\n  level: trace\n"},
		{"invalid format", "mode: listen\naudio:\n  format: f32le\n"},
		{"raop missing host", "mode: raop\n"},
		{"raop invalid volume", "mode: raop\nraop:\n  host: speaker\n  volume: 2\n"},
		{"raop invalid rate", "mode: raop\naudio:\n  rate: 48000\nraop:\n  host: speaker\n"},
		{"broadcast invalid destination", "mode: broadcast\nbroadcast:\n  destination: nowhere\n"},
		{"broadcast invalid port", "mode: broadcast\nbroadcast:\n  port: 70000\n"},
		{"broadcast invalid ttl", "mode: broadcast\nbroadcast:\n  ttl: 300\n"},
		{"broadcast invalid mtu", "mode: broadcast\nbroadcast:\n  mtu: 10\n"},
		{"broadcast invalid interval", "mode: broadcast\nbroadcast:\n  sap_interval: -1s\n"},
		{"listen invalid address", "mode: listen\nlisten:\n  sap_address: nowhere\n"},
		{"listen invalid read buffer", "mode: listen\nlisten:\n  read_buffer_size: -1\n"},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(ca.conf))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raopcast.yaml")
	err := os.WriteFile(path, []byte("mode: listen\n"), 0o644)
	require.NoError(t, err)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ModeListen, config.Mode)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
