package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Filename  string                   `mapstructure:"-"`
	Server    ServerConfig             `mapstructure:"server"`
	Proxy     ProxyConfig              `mapstructure:"proxy"`
	Logging   LoggingConfig            `mapstructure:"logging"`
	Routing   RoutingConfig            `mapstructure:"routing"`
	Providers map[string]ProviderEntry `mapstructure:"providers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     string        `mapstructure:"max_body_size"` // human-readable, e.g. "2MB"
	RequestLogging  bool          `mapstructure:"request_logging"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProxyConfig holds upstream connection pool tuning
type ProxyConfig struct {
	MaxConnsPerOrigin int           `mapstructure:"max_conns_per_origin"`
	IdleConnTimeout   time.Duration `mapstructure:"idle_conn_timeout"`
	MaxIdleTime       time.Duration `mapstructure:"max_idle_time"`
	EarlyRecycle      time.Duration `mapstructure:"early_recycle"`
	TLSSessionCache   int           `mapstructure:"tls_session_cache"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	StreamBufferSize  int           `mapstructure:"stream_buffer_size"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"` // default per-provider permit count
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Theme      string `mapstructure:"theme"`
	LogDir     string `mapstructure:"log_dir"`
	FileOutput bool   `mapstructure:"file_output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// RoutingConfig is the model slot table plus the fallback switch
type RoutingConfig struct {
	FallbackToDefault bool                 `mapstructure:"fallback_to_default"`
	Slots             map[string]SlotEntry `mapstructure:"slots"`
}

// SlotEntry maps an alias to a provider/model pair
type SlotEntry struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	Reasoning bool   `mapstructure:"reasoning"`
}

// ProviderEntry is one upstream provider as written in the config file.
// Timeout accepts Go duration syntax or bare milliseconds.
type ProviderEntry struct {
	BaseURL       string   `mapstructure:"base_url"`
	CredentialEnv string   `mapstructure:"credential_env"`
	AuthHeader    string   `mapstructure:"auth_header"`
	AllowedFields []string `mapstructure:"allowed_fields"`
	CacheControl  string   `mapstructure:"cache_control"`
	StreamAdapter string   `mapstructure:"stream_adapter"`
	Timeout       string   `mapstructure:"timeout"`
	MaxRetries    *int     `mapstructure:"max_retries"`
	MaxConcurrent int      `mapstructure:"max_concurrent"`
}
