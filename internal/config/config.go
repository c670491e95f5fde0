package config

import "time"

// Config holds the bot configuration. Credentials are intentionally absent
// from the file surface; they come from the environment only.
type Config struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`

	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`

	// Throttle is the mandatory pause after every outbound frame; the
	// remote server rate-limits aggressively.
	Throttle time.Duration `mapstructure:"throttle" yaml:"throttle"`
	// OutboundQueueSize bounds the outbound frame queue.
	OutboundQueueSize int `mapstructure:"outbound_queue_size" yaml:"outbound_queue_size"`

	// Rooms are auto-joined once the server confirms the login name.
	Rooms []string `mapstructure:"rooms" yaml:"rooms"`
	// Avatar is the avatar id claimed after connecting, 0 to skip.
	Avatar int `mapstructure:"avatar" yaml:"avatar"`

	PluginPrefixes []string `mapstructure:"plugin_prefixes" yaml:"plugin_prefixes"`
	CaseSensitive  bool     `mapstructure:"case_sensitive" yaml:"case_sensitive"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	// StatusAddr enables the operator HTTP surface when non-empty.
	StatusAddr string `mapstructure:"status_addr" yaml:"status_addr"`
	// Console enables the interactive stdin console.
	Console bool `mapstructure:"console" yaml:"console"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:              "localhost",
		Port:              "8000",
		LoginURL:          "https://play.pokemonshowdown.com/action.php",
		Throttle:          600 * time.Millisecond,
		OutboundQueueSize: 128,
		Rooms:             []string{"lobby"},
		PluginPrefixes:    []string{"."},
		DatabasePath:      "wirebot.db",
		Console:           true,
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != "" {
		c.Port = other.Port
	}
	if other.LoginURL != "" {
		c.LoginURL = other.LoginURL
	}
	if other.Throttle != 0 {
		c.Throttle = other.Throttle
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.StatusAddr != "" {
		c.StatusAddr = other.StatusAddr
	}
}
