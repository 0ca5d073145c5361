package config

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// PlatformAndroidEmulator is the platform whose loopback is the host's 10.0.2.2.
const PlatformAndroidEmulator = "android-emulator"

const emulatorHostAlias = "10.0.2.2"

// Config holds runtime settings for the API client.
type Config struct {
	BaseURL         string        `env:"API_URL"`
	Platform        string        `env:"API_PLATFORM"`
	RequestTimeout  time.Duration `env:"API_REQUEST_TIMEOUT"`
	RefreshTimeout  time.Duration `env:"API_REFRESH_TIMEOUT"`
	TokenDB         string        `env:"API_TOKEN_DB"`
	TokenPassphrase string        `env:"API_TOKEN_PASSPHRASE"`
	Debug           bool          `env:"API_DEBUG"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://localhost:3000"
	c.Platform = ""
	c.RequestTimeout = 30 * time.Second
	c.RefreshTimeout = 10 * time.Second
	c.TokenDB = "apiclient.db"
	c.TokenPassphrase = ""
	c.Debug = false
}

// LoadConfig builds a Config from defaults, the JSON file named in args, the
// environment and finally the flags in args. Later sources take precedence.
// args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid base URL %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("config: refresh timeout must be positive, got %s", c.RefreshTimeout)
	}
	return nil
}

// ResolvedBaseURL is BaseURL as seen from the configured platform: on the
// Android emulator a loopback host is rewritten to the host machine alias,
// keeping the port.
func (c *Config) ResolvedBaseURL() string {
	if c.Platform != PlatformAndroidEmulator {
		return c.BaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
	default:
		return c.BaseURL
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(emulatorHostAlias, port)
	} else {
		u.Host = emulatorHostAlias
	}
	return u.String()
}
