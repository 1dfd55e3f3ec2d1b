// Package config provides configuration management for FlashSim.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds the FlashSim server configuration.
type Config struct {
	// Server settings
	Addr     string `json:"addr"`
	WebAddr  string `json:"web_addr"`
	Password string `json:"password,omitempty"`

	// Emulation. A nil Seed seeds sampling from the clock.
	Databases     int    `json:"databases"`
	ServerVersion int    `json:"server_version"`
	Seed          *int64 `json:"seed,omitempty"`

	// Logging
	LogLevel string `json:"log_level"`

	// Performance
	MaxClients  int      `json:"max_clients"`
	ReadTimeout Duration `json:"read_timeout"`

	// Introspection
	CDCCapacity int `json:"cdc_capacity"`
	HotKeysTopN int `json:"hotkeys_top_n"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:          ":6379",
		WebAddr:       ":8080",
		Databases:     16,
		ServerVersion: 7,
		LogLevel:      "info",
		MaxClients:    10000,
		ReadTimeout:   0, // No timeout
		CDCCapacity:   4096,
		HotKeysTopN:   100,
	}
}

// Load loads configuration from a JSON file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: addr is required")
	case c.Databases < 1:
		return fmt.Errorf("config: databases must be positive, got %d", c.Databases)
	case c.ServerVersion < 1:
		return fmt.Errorf("config: server_version must be positive, got %d", c.ServerVersion)
	case c.MaxClients < 0:
		return fmt.Errorf("config: max_clients must not be negative, got %d", c.MaxClients)
	case c.ReadTimeout < 0:
		return fmt.Errorf("config: read_timeout must not be negative, got %s", c.ReadTimeout)
	case c.LogLevel != "debug" && c.LogLevel != "info":
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Duration is a time.Duration that reads either a Go duration string
// ("5s") or integer nanoseconds from JSON and writes the string form.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(v)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("config: invalid duration %s", b)
	}
	return nil
}
