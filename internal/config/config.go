// Package config provides configuration for the agent chat client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names.
const (
	TransportSSE = "sse"
	TransportWS  = "ws"
)

// Config holds the client configuration.
type Config struct {
	// Backend settings
	BackendURL string `yaml:"backend_url"`
	Transport  string `yaml:"transport"`
	WSURL      string `yaml:"ws_url"`
	SessionID  string `yaml:"session_id"`

	// UI bridge; 0 disables it
	UIPort int `yaml:"ui_port"`

	// Timeouts; a zero request timeout leaves streams unbounded
	RequestTimeout       time.Duration `yaml:"-"`
	RequestTimeoutMs     int           `yaml:"request_timeout_ms"`
	WSHandshakeTimeout   time.Duration `yaml:"-"`
	WSHandshakeTimeoutMs int           `yaml:"ws_handshake_timeout_ms"`

	// Timeline store
	TimelineDSN string `yaml:"timeline_dsn"`

	// Cache invalidation; empty RedisURL keeps invalidation in process
	RedisURL     string `yaml:"redis_url"`
	RedisChannel string `yaml:"redis_channel"`

	// Interrupt auto-decision policy file; empty means always ask
	InterruptPolicyFile string `yaml:"interrupt_policy_file"`
}

// Load loads configuration from the YAML file named by AGENTCHAT_CONFIG, if
// any, and then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := &Config{
		BackendURL:  "http://localhost:8000/api",
		Transport:   TransportSSE,
		WSURL:       "ws://localhost:8000/ws",
		TimelineDSN: ":memory:",

		WSHandshakeTimeoutMs: 10000,
	}

	if path := os.Getenv("AGENTCHAT_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.BackendURL = getEnv("BACKEND_URL", cfg.BackendURL)
	cfg.Transport = getEnv("TRANSPORT", cfg.Transport)
	cfg.WSURL = getEnv("WS_URL", cfg.WSURL)
	cfg.SessionID = getEnv("SESSION_ID", cfg.SessionID)
	cfg.UIPort = getEnvInt("UI_PORT", cfg.UIPort)
	cfg.RequestTimeoutMs = getEnvInt("REQUEST_TIMEOUT_MS", cfg.RequestTimeoutMs)
	cfg.WSHandshakeTimeoutMs = getEnvInt("WS_HANDSHAKE_TIMEOUT_MS", cfg.WSHandshakeTimeoutMs)
	cfg.TimelineDSN = getEnv("TIMELINE_DSN", cfg.TimelineDSN)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisChannel = getEnv("REDIS_CHANNEL", cfg.RedisChannel)
	cfg.InterruptPolicyFile = getEnv("INTERRUPT_POLICY_FILE", cfg.InterruptPolicyFile)

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	cfg.WSHandshakeTimeout = time.Duration(cfg.WSHandshakeTimeoutMs) * time.Millisecond

	if cfg.Transport != TransportSSE && cfg.Transport != TransportWS {
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
