package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/ble/protocol"
)

// Config holds all application configuration. It is built once at startup
// and passed down to both roles.
type Config struct {
	Protocol  ProtocolConfig `yaml:"protocol"`
	Client    ClientConfig   `yaml:"client"`
	Server    ServerConfig   `yaml:"server"`
	LogLevel  string         `yaml:"log_level"`
	TracePath string         `yaml:"trace_path"` // empty disables the transition trace
}

// ProtocolConfig holds the values both sides must agree on.
type ProtocolConfig struct {
	ServiceUUID  string `yaml:"service_uuid"`
	CharUUID     string `yaml:"char_uuid"`
	ExpectedText string `yaml:"expected_text"`
}

// ClientConfig holds settings for the writing side.
type ClientConfig struct {
	TargetAddress string        `yaml:"target_address"`
	Message       string        `yaml:"message"`
	ScanDuration  time.Duration `yaml:"scan_duration"`
}

// ServerConfig holds settings for the subscribing side.
type ServerConfig struct {
	ScanDuration time.Duration `yaml:"scan_duration"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gatt-welcome")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Protocol: ProtocolConfig{
			ServiceUUID:  "12345678-1234-5678-1234-56789abcdef0",
			CharUUID:     "abcdefab-1234-5678-1234-56789abcdef0",
			ExpectedText: "WELCOME",
		},
		Client: ClientConfig{
			TargetAddress: "AA:BB:CC:DD:EE:FF",
			Message:       "Hello from client!",
			ScanDuration:  10 * time.Second,
		},
		Server: ServerConfig{
			ScanDuration: 5 * time.Second,
			WaitTimeout:  30 * time.Second,
			PollInterval: time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in trace_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.TracePath = expandTilde(cfg.TracePath)

	return cfg, nil
}

// Validate checks the config for invalid values. UUIDs and the target
// address are rewritten to their canonical forms.
func (c *Config) Validate() error {
	svc, err := uuid.Parse(c.Protocol.ServiceUUID)
	if err != nil {
		return fmt.Errorf("protocol.service_uuid: %w", err)
	}
	c.Protocol.ServiceUUID = svc.String()

	char, err := uuid.Parse(c.Protocol.CharUUID)
	if err != nil {
		return fmt.Errorf("protocol.char_uuid: %w", err)
	}
	c.Protocol.CharUUID = char.String()

	if c.Protocol.ExpectedText == "" {
		return fmt.Errorf("protocol.expected_text must not be empty")
	}
	if len(c.Protocol.ExpectedText) > protocol.MaxPayloadBytes {
		return fmt.Errorf("protocol.expected_text must be at most %d bytes, got %d", protocol.MaxPayloadBytes, len(c.Protocol.ExpectedText))
	}

	mac, err := bluetooth.ParseMAC(ble.NormalizeAddress(c.Client.TargetAddress))
	if err != nil {
		return fmt.Errorf("client.target_address: %w", err)
	}
	c.Client.TargetAddress = ble.NormalizeAddress(mac.String())

	if c.Client.Message == "" {
		return fmt.Errorf("client.message must not be empty")
	}
	if len(c.Client.Message) > protocol.MaxPayloadBytes {
		return fmt.Errorf("client.message must be at most %d bytes, got %d", protocol.MaxPayloadBytes, len(c.Client.Message))
	}

	if c.Client.ScanDuration <= 0 {
		return fmt.Errorf("client.scan_duration must be > 0")
	}
	if c.Server.ScanDuration <= 0 {
		return fmt.Errorf("server.scan_duration must be > 0")
	}
	if c.Server.WaitTimeout <= 0 {
		return fmt.Errorf("server.wait_timeout must be > 0")
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("server.poll_interval must be > 0")
	}
	if c.Server.PollInterval > c.Server.WaitTimeout {
		return fmt.Errorf("server.poll_interval (%s) must not exceed server.wait_timeout (%s)", c.Server.PollInterval, c.Server.WaitTimeout)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// MaxPolls returns how many times the server checks for the expected
// message before giving up.
func (s ServerConfig) MaxPolls() int {
	n := int(s.WaitTimeout / s.PollInterval)
	if n < 1 {
		return 1
	}
	return n
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

const defaultConfigHeader = `# gatt-welcome configuration
#
# protocol values must match on both sides of the exchange.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path written, or "" if the file was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultConfigHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
