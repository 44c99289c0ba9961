package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables applied on top of the config file.
const (
	EnvBaseURL = "LIBRARYCHAT_BASE_URL"
	EnvUser    = "LIBRARYCHAT_USER"
)

// Config represents ~/.librarychat/config.toml.
type Config struct {
	DefaultUser string       `toml:"default_user"`
	LogLevel    string       `toml:"log_level"`
	Server      ServerConfig `toml:"server"`
	HTTP        HTTPConfig   `toml:"http"`
	Room        RoomConfig   `toml:"room"`
	Keys        KeysConfig   `toml:"keys"`
	Style       Style        `toml:"style"`
}

// ServerConfig locates the chat service.
type ServerConfig struct {
	BaseURL string `toml:"base_url"`
}

// HTTPConfig tunes the REST client. RateLimit is requests per second; zero
// disables limiting. BreakerFailures is the number of consecutive failures
// that open the circuit; zero disables the breaker.
type HTTPConfig struct {
	Timeout         Duration `toml:"timeout"`
	RateLimit       float64  `toml:"rate_limit"`
	RateBurst       int      `toml:"rate_burst"`
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerTimeout  Duration `toml:"breaker_timeout"`
}

// RoomConfig tunes an open chat room.
type RoomConfig struct {
	PageSize   int      `toml:"page_size"`
	TypingPoll Duration `toml:"typing_poll"`
	TypingIdle Duration `toml:"typing_idle"`
}

// KeysConfig names the response object keys of the mutating endpoints.
type KeysConfig struct {
	Send   string `toml:"send"`
	Delete string `toml:"delete"`
	Update string `toml:"update"`
}

// Duration is a time.Duration written as a Go duration string ("700ms").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{BaseURL: "http://localhost:8088/"},
		HTTP: HTTPConfig{
			Timeout:         Duration{30 * time.Second},
			RateBurst:       1,
			BreakerFailures: 5,
			BreakerTimeout:  Duration{30 * time.Second},
		},
		Room: RoomConfig{
			PageSize:   10,
			TypingPoll: Duration{700 * time.Millisecond},
			TypingIdle: Duration{1500 * time.Millisecond},
		},
		Keys: KeysConfig{
			Send:   "message",
			Delete: "msgId",
			Update: "message",
		},
		Style: DefaultStyle(),
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads path over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	cfg.SetDefaults()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides fields from LIBRARYCHAT_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv(EnvUser); v != "" {
		c.DefaultUser = v
	}
}

// SetDefaults fills zero fields from Default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.HTTP.Timeout.Duration == 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = d.HTTP.RateBurst
	}
	if c.HTTP.BreakerTimeout.Duration == 0 {
		c.HTTP.BreakerTimeout = d.HTTP.BreakerTimeout
	}
	if c.Room.PageSize == 0 {
		c.Room.PageSize = d.Room.PageSize
	}
	if c.Room.TypingPoll.Duration == 0 {
		c.Room.TypingPoll = d.Room.TypingPoll
	}
	if c.Room.TypingIdle.Duration == 0 {
		c.Room.TypingIdle = d.Room.TypingIdle
	}
	if c.Keys.Send == "" {
		c.Keys.Send = d.Keys.Send
	}
	if c.Keys.Delete == "" {
		c.Keys.Delete = d.Keys.Delete
	}
	if c.Keys.Update == "" {
		c.Keys.Update = d.Keys.Update
	}
	c.Style = c.Style.Merge(d.Style)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q: must be an http(s) URL", c.Server.BaseURL)
	}
	if c.HTTP.Timeout.Duration < 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative, got %g", c.HTTP.RateLimit)
	}
	if c.Room.PageSize < 1 || c.Room.PageSize > 500 {
		return fmt.Errorf("room.page_size must be 1-500, got %d", c.Room.PageSize)
	}
	if c.Room.TypingPoll.Duration < 100*time.Millisecond {
		return fmt.Errorf("room.typing_poll must be at least 100ms, got %s", c.Room.TypingPoll)
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	return nil
}
