package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultPort = 19817
	DefaultHost = "localhost"

	DefaultMaxBodySize = "10MB"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    15 * time.Minute, // streamed completions are slow
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     DefaultMaxBodySize,
			RequestLogging:  true,
		},
		Proxy: ProxyConfig{
			MaxConnsPerOrigin: 50,
			IdleConnTimeout:   60 * time.Second,
			MaxIdleTime:       300 * time.Second,
			EarlyRecycle:      10 * time.Second,
			TLSSessionCache:   100,
			ConnectTimeout:    10 * time.Second,
			StreamBufferSize:  8 * 1024,
			MaxConcurrent:     25,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			LogDir:     "./logs",
			FileOutput: false,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Routing: RoutingConfig{
			FallbackToDefault: false,
			Slots:             map[string]SlotEntry{},
		},
		Providers: map[string]ProviderEntry{},
	}
}

// Load loads configuration from file and environment variables
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix("SKYRIMNET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if the config file doesn't exist unless one was named
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("SKYRIMNET_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = viper.ConfigFileUsed()

	return config, nil
}

// Watch re-reads the config file on change and hands the fresh Config to
// onChange. Only the routing table is meant to be hot-swapped; server and
// provider changes need a restart.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		fresh := DefaultConfig()
		if err := viper.Unmarshal(fresh); err != nil {
			return
		}
		fresh.Filename = viper.ConfigFileUsed()
		onChange(fresh)
	})
	viper.WatchConfig()
}
