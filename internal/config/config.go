// Package config loads rounds configuration from file, environment, and
// flags, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DataDir is where local state lives. Defaults to ~/.rounds.
	DataDir string `mapstructure:"data_dir"`

	// Backend selects local persistence: "json" or "sqlite".
	Backend string `mapstructure:"backend"`

	// RemoteURL is the sync server base URL. Empty disables sync.
	RemoteURL string `mapstructure:"remote_url"`

	// RemoteTransport selects "http" or "ws".
	RemoteTransport string `mapstructure:"remote_transport"`

	// Debounce is the autosync debounce window.
	Debounce time.Duration `mapstructure:"debounce"`

	// PullInterval is how often the daemon pulls remote state.
	PullInterval time.Duration `mapstructure:"pull_interval"`

	// DeleteDetection propagates local deletions to the remote.
	DeleteDetection bool `mapstructure:"delete_detection"`

	// DefaultSection is where new patients land.
	DefaultSection string `mapstructure:"default_section"`

	// ListenAddr is the serve command's bind address.
	ListenAddr string `mapstructure:"listen_addr"`

	// LogFile, when set, routes daemon logs there with rotation.
	LogFile string `mapstructure:"log_file"`

	// Seed loads the demo roster on first run.
	Seed bool `mapstructure:"seed"`
}

// Load reads configuration. cfgFile overrides the default search path
// (~/.config/rounds/config.yaml, then ./rounds.yaml). Environment variables
// use the ROUNDS_ prefix, e.g. ROUNDS_REMOTE_URL.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("data_dir", filepath.Join(home, ".rounds"))
	v.SetDefault("backend", "json")
	v.SetDefault("remote_url", "")
	v.SetDefault("remote_transport", "http")
	v.SetDefault("debounce", 1200*time.Millisecond)
	v.SetDefault("pull_interval", 30*time.Second)
	v.SetDefault("delete_detection", true)
	v.SetDefault("default_section", "A")
	v.SetDefault("listen_addr", ":8721")
	v.SetDefault("log_file", "")
	v.SetDefault("seed", true)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".config", "rounds"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROUNDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Absence of the default file is fine; an explicit file that is
		// missing or broken is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("backend must be json or sqlite, got %q", c.Backend)
	}
	switch c.RemoteTransport {
	case "http", "ws":
	default:
		return fmt.Errorf("remote_transport must be http or ws, got %q", c.RemoteTransport)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.PullInterval <= 0 {
		return fmt.Errorf("pull_interval must be positive, got %s", c.PullInterval)
	}
	return nil
}
