package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	DNC       DNCConfig       `yaml:"dnc" mapstructure:"dnc"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    struct {
		Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
		Burst          int     `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LLMConfig contains hosted evaluator (Ollama) configuration
type LLMConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EngineConfig contains compliance engine configuration
type EngineConfig struct {
	// SessionTTL bounds how long an idle call session is kept before eviction.
	SessionTTL time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
}

// DatabaseConfig contains alert store configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// DNCConfig contains Do-Not-Call registry cache configuration
type DNCConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	Events          struct {
		BroadcastAlerts   bool `yaml:"broadcast_alerts" mapstructure:"broadcast_alerts"`
		BroadcastSessions bool `yaml:"broadcast_sessions" mapstructure:"broadcast_sessions"`
		BroadcastSystem   bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			Endpoint: "http://localhost:11434",
			Model:    "llama3.2:1b",
			Timeout:  60 * time.Second,
		},
		Engine: EngineConfig{
			SessionTTL: 4 * time.Hour,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			DatabaseURL:     "postgres://localhost:5432/callwarden?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		DNC: DNCConfig{
			Enabled:  false,
			RedisURL: "redis://localhost:6379/0",
			TTL:      24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
		},
	}
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerSec = 20
	cfg.Server.RateLimit.Burst = 40
	cfg.WebSocket.Events.BroadcastAlerts = true
	cfg.WebSocket.Events.BroadcastSessions = true
	cfg.WebSocket.Events.BroadcastSystem = true
	return cfg
}
