package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/resolve"
	"github.com/lteconn/lteconn-go/pkg/tlsstream"
)

// DefaultConnectTimeout bounds Runtime.Connect when the profile sets none.
const DefaultConnectTimeout = 30 * time.Second

// Config is a connection profile.
type Config struct {
	// Address is "host:port" or a DNS-SD instance ("Name._svc._tcp.local").
	Address string `yaml:"address"`

	// PeerVerify is "enabled", "optional" or "disabled".
	PeerVerify tlsstream.PeerVerification `yaml:"peer_verify"`

	// SecurityTags reference provisioned credential sets, in order.
	SecurityTags []uint32 `yaml:"security_tags"`

	// ServerName overrides the name verified against the peer certificate.
	ServerName string `yaml:"server_name"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CloseTimeout   time.Duration `yaml:"close_timeout"`

	// CredentialsDir holds one subdirectory per security tag.
	CredentialsDir string `yaml:"credentials_dir"`

	// LogFile receives CBOR protocol events. Empty disables the file log.
	LogFile string `yaml:"log_file"`

	// LogMaxSize rotates LogFile once it exceeds this many bytes. Zero
	// disables rotation.
	LogMaxSize int64 `yaml:"log_max_size"`

	Link LinkConfig `yaml:"link"`
	MDNS MDNSConfig `yaml:"mdns"`
}

// LinkConfig tunes physical link handling.
type LinkConfig struct {
	AttachTimeout time.Duration      `yaml:"attach_timeout"`
	Backoff       link.BackoffConfig `yaml:"backoff"`
}

// MDNSConfig tunes DNS-SD resolution.
type MDNSConfig struct {
	Interface     string        `yaml:"interface"`
	BrowseTimeout time.Duration `yaml:"browse_timeout"`
}

// LoadError describes a profile that could not be loaded.
type LoadError struct {
	// File is the profile path, empty when parsing from memory.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse parses and validates a profile.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{
			Message: "invalid profile",
			Cause:   err,
		}
	}

	return &cfg, nil
}

// Load reads and parses the profile at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrMissingAddress     = errors.New("address is required")
	ErrMissingCredentials = errors.New("security_tags require credentials_dir or a credential store")
	ErrNegativeDuration   = errors.New("durations must not be negative")
	ErrInvalidJitter      = errors.New("link.backoff.jitter must be within [0, 1]")
	ErrNegativeLogSize    = errors.New("log_max_size must not be negative")
)

// Validate checks the profile for consistency.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrMissingAddress
	}
	if !resolve.IsServiceInstance(c.Address) {
		host, port, err := net.SplitHostPort(c.Address)
		if err != nil {
			return fmt.Errorf("%w %q: %v", resolve.ErrInvalidAddress, c.Address, err)
		}
		if host == "" {
			return fmt.Errorf("%w %q: missing host", resolve.ErrInvalidAddress, c.Address)
		}
		if n, err := strconv.Atoi(port); err == nil && (n <= 0 || n > 0xffff) {
			return fmt.Errorf("%w %q: port out of range", resolve.ErrInvalidAddress, c.Address)
		}
	}

	for _, d := range []time.Duration{
		c.ConnectTimeout,
		c.CloseTimeout,
		c.Link.AttachTimeout,
		c.Link.Backoff.Initial,
		c.Link.Backoff.Max,
		c.MDNS.BrowseTimeout,
	} {
		if d < 0 {
			return ErrNegativeDuration
		}
	}

	if j := c.Link.Backoff.Jitter; j < 0 || j > 1 {
		return ErrInvalidJitter
	}
	if c.LogMaxSize < 0 {
		return ErrNegativeLogSize
	}

	return nil
}

func (c *Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}
