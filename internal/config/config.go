package config

import (
	"fmt"
	"time"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for the listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ProviderConfig configures one vendor adapter. APIKeyEnv names the
// environment variable read on every call; APIKey is a literal fallback.
type ProviderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
}

// TruncationConfig bounds tool results sent back to the model
type TruncationConfig struct {
	MaxChars  int `mapstructure:"max_chars"`
	MaxTokens int `mapstructure:"max_tokens"`
}

// StreamConfig tunes stream handling
type StreamConfig struct {
	// IdleTimeout aborts a stream silent for this long; 0 disables
	IdleTimeout         time.Duration `mapstructure:"idle_timeout"`
	StrictToolArguments bool          `mapstructure:"strict_tool_arguments"`
	MaxFrameBytes       int           `mapstructure:"max_frame_bytes"`
}

// HTTPConfig configures the shared outbound transport
type HTTPConfig struct {
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout"`
	IdleConnTimeout       time.Duration `mapstructure:"idle_conn_timeout"`
	MaxIdleConns          int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `mapstructure:"max_idle_conns_per_host"`
}

// TokenizerConfig selects the tiktoken encoding; empty uses the heuristic
type TokenizerConfig struct {
	Encoding string `mapstructure:"encoding"`
}

// RedisConfig holds Redis configuration. An empty Addr disables the model
// list cache.
type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	ModelCacheTTL time.Duration `mapstructure:"model_cache_ttl"`
}

// Config holds all service configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	// Provider names the active adapter
	Provider  string                    `mapstructure:"provider"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`

	Truncation TruncationConfig `mapstructure:"truncation"`
	Stream     StreamConfig     `mapstructure:"stream"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Tokenizer  TokenizerConfig  `mapstructure:"tokenizer"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

// ActiveProvider returns the configuration of the selected adapter
func (c Config) ActiveProvider() (ProviderConfig, bool) {
	pc, ok := c.Providers[c.Provider]
	return pc, ok
}

// Validate checks settings that have no usable default
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Provider == "" {
		return fmt.Errorf("no provider selected")
	}
	if _, ok := c.ActiveProvider(); !ok {
		return fmt.Errorf("provider %q has no configuration", c.Provider)
	}
	if c.Stream.IdleTimeout < 0 {
		return fmt.Errorf("negative stream idle timeout %s", c.Stream.IdleTimeout)
	}
	return nil
}
