package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment overrides, e.g. LLM_BRIDGE_SERVER_PORT
const EnvPrefix = "LLM_BRIDGE"

// Loader reads Config from an optional YAML file plus the environment
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for configPath. An empty path loads defaults
// and environment overrides only.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
	}
	return &Loader{v: v, path: configPath}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("provider", "openai")
	v.SetDefault("providers.openai.base_url", "http://localhost:1234/v1")
	v.SetDefault("providers.openai.model", "")
	v.SetDefault("providers.openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("providers.gemini.api_key", "")

	v.SetDefault("truncation.max_chars", 30000)
	v.SetDefault("truncation.max_tokens", 8000)

	v.SetDefault("stream.idle_timeout", "0s")
	v.SetDefault("stream.strict_tool_arguments", false)
	v.SetDefault("stream.max_frame_bytes", 4<<20)

	v.SetDefault("http.dial_timeout", "10s")
	v.SetDefault("http.tls_handshake_timeout", "10s")
	v.SetDefault("http.response_header_timeout", "120s")
	v.SetDefault("http.idle_conn_timeout", "90s")
	v.SetDefault("http.max_idle_conns", 100)
	v.SetDefault("http.max_idle_conns_per_host", 10)

	v.SetDefault("tokenizer.encoding", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.model_cache_ttl", "5m")
}

// Load reads and validates the configuration
func (l *Loader) Load() (Config, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (Config, error) {
	c, err := NewLoader(configPath).Load()
	if err != nil {
		return c, err
	}
	logger.Info("loaded config",
		zap.String("path", configPath),
		zap.String("provider", c.Provider),
		zap.String("addr", c.Server.Addr()))
	return c, nil
}

// MustLoadConfig loads configuration and panics if there's an error
func MustLoadConfig(configPath string) Config {
	c, err := LoadConfig(configPath)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return c
}
