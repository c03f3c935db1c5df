package raopcast

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bluenviron/goraop/pkg/raop"
	"github.com/bluenviron/goraop/pkg/sample"
	"github.com/bluenviron/goraop/pkg/sap"
)

// modes.
const (
	ModeRAOP      = "raop"
	ModeBroadcast = "broadcast"
	ModeListen    = "listen"
)

const (
	defaultRTPPort     = 46000
	defaultSAPInterval = 5 * time.Second
	defaultMTU         = 1280
	defaultMaxQueue    = 1 << 20
)

// Config is the configuration of raopcast.
type Config struct {
	Mode      string          `yaml:"mode"`
	Logging   LoggingConfig   `yaml:"logging"`
	Audio     AudioConfig     `yaml:"audio"`
	RAOP      RAOPConfig      `yaml:"raop"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Listen    ListenConfig    `yaml:"listen"`
}

// LoggingConfig is the logging section.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AudioConfig describes the local audio stream.
type AudioConfig struct {
	Format   string `yaml:"format"`
	Rate     uint32 `yaml:"rate"`
	Channels uint8  `yaml:"channels"`

	// file to read from, "-" is standard input
	Input string `yaml:"input"`

	// file to write to, "-" is standard output
	Output string `yaml:"output"`
}

// RAOPConfig is the section of the raop mode.
type RAOPConfig struct {
	// receiver address, host[:port]
	Host string `yaml:"host"`

	// linear volume between 0 and 1
	Volume *float64 `yaml:"volume"`
}

// BroadcastConfig is the section of the broadcast mode.
type BroadcastConfig struct {
	Destination string        `yaml:"destination"`
	Port        int           `yaml:"port"`
	SAPAddress  string        `yaml:"sap_address"`
	SAPInterval time.Duration `yaml:"sap_interval"`
	Interface   string        `yaml:"interface"`
	TTL         int           `yaml:"ttl"`
	Loop        bool          `yaml:"loop"`
	Name        string        `yaml:"name"`
	MTU         int           `yaml:"mtu"`
	NTPServer   string        `yaml:"ntp_server"`
}

// ListenConfig is the section of the listen mode.
type ListenConfig struct {
	SAPAddress string `yaml:"sap_address"`
	Interface  string `yaml:"interface"`

	// only follow sessions with this name
	Name string `yaml:"name"`

	// size of the socket read buffer, 0 keeps the system default
	ReadBufferSize int `yaml:"read_buffer_size"`

	MaxQueue int `yaml:"max_queue"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	if c.Audio.Format == "" {
		c.Audio.Format = sample.FormatS16LE.String()
	}
	if _, ok := formatFromString(c.Audio.Format); !ok {
		return fmt.Errorf("invalid audio format: %s", c.Audio.Format)
	}
	if c.Audio.Rate == 0 {
		c.Audio.Rate = 44100
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 2
	}
	if c.Audio.Input == "" {
		c.Audio.Input = "-"
	}
	if c.Audio.Output == "" {
		c.Audio.Output = "-"
	}

	switch c.Mode {
	case ModeRAOP:
		return c.validateRAOP()

	case ModeBroadcast:
		return c.validateBroadcast()

	case ModeListen:
		return c.validateListen()
	}

	return fmt.Errorf("invalid mode: '%s' (must be one of: %v)", c.Mode,
		[]string{ModeRAOP, ModeBroadcast, ModeListen})
}

func (c *Config) validateRAOP() error {
	if _, _, err := raop.SplitHost(c.RAOP.Host); err != nil {
		return fmt.Errorf("invalid raop host: %w", err)
	}

	if c.RAOP.Volume == nil {
		v := 1.0
		c.RAOP.Volume = &v
	}
	if *c.RAOP.Volume < 0 || *c.RAOP.Volume > 1 {
		return fmt.Errorf("invalid raop volume: %v (must be between 0 and 1)", *c.RAOP.Volume)
	}

	if c.Audio.Rate != 44100 || c.Audio.Channels != 2 {
		return fmt.Errorf("raop mode requires 44100Hz stereo audio")
	}

	return nil
}

func (c *Config) validateBroadcast() error {
	spec := c.AudioSpec()
	if !spec.Valid() {
		return fmt.Errorf("invalid audio specification: %v", spec)
	}

	if _, ok := sample.FormatName(sample.WireFormat(spec.Format)); !ok {
		return fmt.Errorf("audio format %v cannot be broadcast", spec.Format)
	}

	if c.Broadcast.Destination == "" {
		c.Broadcast.Destination = sap.DefaultAddress.String()
	}
	if net.ParseIP(c.Broadcast.Destination) == nil {
		return fmt.Errorf("invalid destination: %s", c.Broadcast.Destination)
	}

	if c.Broadcast.Port == 0 {
		c.Broadcast.Port = defaultRTPPort
	}
	if c.Broadcast.Port < 0 || c.Broadcast.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1-65535)", c.Broadcast.Port)
	}

	if c.Broadcast.SAPAddress == "" {
		c.Broadcast.SAPAddress = c.Broadcast.Destination
	}
	if net.ParseIP(c.Broadcast.SAPAddress) == nil {
		return fmt.Errorf("invalid sap_address: %s", c.Broadcast.SAPAddress)
	}

	if c.Broadcast.SAPInterval == 0 {
		c.Broadcast.SAPInterval = defaultSAPInterval
	}
	if c.Broadcast.SAPInterval < 0 {
		return fmt.Errorf("invalid sap_interval: %v", c.Broadcast.SAPInterval)
	}

	if c.Broadcast.TTL == 0 {
		c.Broadcast.TTL = 1
	}
	if c.Broadcast.TTL < 0 || c.Broadcast.TTL > 255 {
		return fmt.Errorf("invalid ttl: %d (must be between 1-255)", c.Broadcast.TTL)
	}

	if c.Broadcast.MTU == 0 {
		c.Broadcast.MTU = defaultMTU
	}
	if c.Broadcast.MTU <= 12+spec.FrameSize() {
		return fmt.Errorf("invalid mtu: %d", c.Broadcast.MTU)
	}

	return nil
}

func (c *Config) validateListen() error {
	if c.Listen.SAPAddress == "" {
		c.Listen.SAPAddress = sap.DefaultAddress.String()
	}
	if net.ParseIP(c.Listen.SAPAddress) == nil {
		return fmt.Errorf("invalid sap_address: %s", c.Listen.SAPAddress)
	}

	if c.Listen.ReadBufferSize < 0 {
		return fmt.Errorf("invalid read_buffer_size: %d", c.Listen.ReadBufferSize)
	}

	if c.Listen.MaxQueue == 0 {
		c.Listen.MaxQueue = defaultMaxQueue
	}
	if c.Listen.MaxQueue < 0 {
		return fmt.Errorf("invalid max_queue: %d", c.Listen.MaxQueue)
	}

	return nil
}

// AudioSpec returns the specification of the local audio stream.
func (c *Config) AudioSpec() sample.Spec {
	f, _ := formatFromString(c.Audio.Format)
	return sample.Spec{
		Format:   f,
		Rate:     c.Audio.Rate,
		Channels: c.Audio.Channels,
	}
}

// GetSlogLevel returns the log level.
func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func formatFromString(s string) (sample.Format, bool) {
	for f := sample.FormatU8; f <= sample.FormatS16BE; f++ {
		if strings.EqualFold(f.String(), s) {
			return f, true
		}
	}
	return sample.FormatInvalid, false
}

func interfaceByName(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil //nolint:nilnil
	}
	return net.InterfaceByName(name)
}
