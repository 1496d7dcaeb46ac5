package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/prizevote/go/clients/voting_api_client"
	"github.com/mcdev12/prizevote/go/internal/voting/events"
	"github.com/mcdev12/prizevote/go/internal/voting/poller"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL  string        `yaml:"base_url"`
		Token    string        `yaml:"token"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Poller struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poller"`
	Gateway struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"gateway"`
	Events struct {
		Enabled   bool                   `yaml:"enabled"`
		JetStream events.JetStreamConfig `yaml:"jetstream"`
	} `yaml:"events"`
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = voting_api_client.DefaultBaseURL
	cfg.API.Timeout = 30 * time.Second
	cfg.Poller.Interval = poller.DefaultInterval
	cfg.Gateway.Port = "8082"
	cfg.Gateway.AllowedOrigins = []string{"*"}
	cfg.Events.JetStream = events.DefaultJetStreamConfig()
	cfg.LogLevel = zerolog.InfoLevel.String()
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or whole seconds ("3").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(config)

	if config.Poller.Interval <= 0 {
		config.Poller.Interval = poller.DefaultInterval
	}
	return config, nil
}

func applyEnv(config *Config) {
	config.API.BaseURL = getEnv("VOTING_API_URL", config.API.BaseURL)
	config.API.Token = getEnv("VOTING_API_TOKEN", config.API.Token)
	config.API.Username = getEnv("VOTING_USERNAME", config.API.Username)
	config.API.Password = getEnv("VOTING_PASSWORD", config.API.Password)
	config.Poller.Interval = getEnvAsDuration("POLL_INTERVAL", config.Poller.Interval)
	config.Gateway.Port = getEnv("GATEWAY_PORT", config.Gateway.Port)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.Events.Enabled = true
		config.Events.JetStream.URL = natsURL
	}
}
