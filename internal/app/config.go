package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pksalink/internal/domain"
	"pksalink/internal/relay"
)

const (
	defaultRequestTimeout   = 60  // seconds
	defaultHandshakeTimeout = 10  // seconds
	defaultPollInterval     = 250 // milliseconds
	defaultLogLevel         = "INFO"
	defaultAppName          = "pksalink"
)

// Logging is the logging configuration.
type Logging struct {
	// Level is one of ERROR, WARNING, INFO or DEBUG.
	Level string
}

func (l *Logging) validate() error {
	lvl := strings.ToUpper(l.Level)
	switch lvl {
	case "ERROR", "WARNING", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", l.Level)
	}
	l.Level = lvl
	return nil
}

// Config is the client configuration.
type Config struct {
	// RelayURL is the relay WebSocket endpoint. It must use wss, except on
	// loopback hosts used for local development.
	RelayURL string

	// RequestTimeout is the default request expiry in seconds, used until
	// the relay declares its own.
	RequestTimeout int

	// HandshakeTimeout bounds connecting and waiting for the relay's
	// connected frame, in seconds.
	HandshakeTimeout int

	// PollInterval is how often exchanges look for relay answers, in
	// milliseconds.
	PollInterval int

	// SharedSecret enables key escrow when set: login session keys are
	// sealed under it and sent to the relay operator's signer.
	SharedSecret string

	// Debug traces every frame. It overrides Logging.Level.
	Debug bool

	// Home is where the session file lives. Defaults to ~/.pksalink.
	Home string

	App     *domain.AppMetadata
	Logging *Logging
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	if err := cfg.FixupAndValidate(); err != nil {
		panic(err)
	}
	return cfg
}

// FixupAndValidate applies defaults to config entries and validates them.
func (c *Config) FixupAndValidate() error {
	if c.RelayURL == "" {
		c.RelayURL = relay.DefaultURL
	}
	if err := validateRelayURL(c.RelayURL); err != nil {
		return err
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RequestTimeout < 0 || c.HandshakeTimeout < 0 || c.PollInterval < 0 {
		return errors.New("config: timeouts and intervals must be positive")
	}
	if c.App == nil {
		c.App = &domain.AppMetadata{}
	}
	if c.App.Name == "" {
		c.App.Name = defaultAppName
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Debug {
		c.Logging.Level = "DEBUG"
	}
	return c.Logging.validate()
}

// RelayConfig converts the relay settings for relay.NewManager.
func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		URL:              c.RelayURL,
		RequestTimeout:   time.Duration(c.RequestTimeout) * time.Second,
		HandshakeTimeout: time.Duration(c.HandshakeTimeout) * time.Second,
		PollInterval:     time.Duration(c.PollInterval) * time.Millisecond,
	}
}

// RelayHost returns the host part of RelayURL.
func (c *Config) RelayHost() string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func validateRelayURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: RelayURL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("config: RelayURL '%v' has no host", raw)
	}
	switch u.Scheme {
	case "wss":
		return nil
	case "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
	}
	return fmt.Errorf("config: RelayURL '%v' must use wss", raw)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: unknown keys %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
