package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Sentence  SentenceConfig  `yaml:"sentence" mapstructure:"sentence"`
	Spine     SpineConfig     `yaml:"spine" mapstructure:"spine"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Security  SecurityConfig  `yaml:"security" mapstructure:"security"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// RulesConfig selects and configures the rule-table provider
type RulesConfig struct {
	Provider string         `yaml:"provider" mapstructure:"provider"` // file or postgres
	Dir      string         `yaml:"dir" mapstructure:"dir"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains the Postgres rule store configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url" mapstructure:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// SentenceConfig carries the sentence-boundary patterns; empty values fall
// back to the documented defaults
type SentenceConfig struct {
	BoundaryPattern string `yaml:"boundary_pattern" mapstructure:"boundary_pattern"`
	StopPattern     string `yaml:"stop_pattern" mapstructure:"stop_pattern"`
}

// SpineConfig carries the optional spine-words pattern
type SpineConfig struct {
	WordsPattern string `yaml:"words_pattern" mapstructure:"words_pattern"`
}

// CacheConfig contains the engine memoization cache and the optional Redis
// result cache
type CacheConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Size    int         `yaml:"size" mapstructure:"size"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig contains the distributed result cache configuration
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	URL            string        `yaml:"url" mapstructure:"url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// SecurityConfig contains request guardrails
type SecurityConfig struct {
	RateLimit struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
		Burst          int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// WebSocketConfig contains the event hub configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	Events          struct {
		BroadcastPreprocess  bool `yaml:"broadcast_preprocess" mapstructure:"broadcast_preprocess"`
		BroadcastReloads     bool `yaml:"broadcast_reloads" mapstructure:"broadcast_reloads"`
		BroadcastSystem      bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
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
			MaxBodyBytes: 1 << 20, // 1 MiB of report text
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Rules: RulesConfig{
			Provider: "file",
			Dir:      "data/rules",
			Database: DatabaseConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				ConnMaxIdleTime: 30 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1000,
			Redis: RedisConfig{
				Enabled:        false,
				URL:            "redis://localhost:6379/0",
				KeyPrefix:      "radprep",
				DefaultTTL:     time.Hour,
				MaxConnections: 10,
				MinIdleConns:   2,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
		},
	}
	cfg.Logging.File.Path = "logs/radprep.log"
	cfg.Logging.File.MaxSize = 100 // MB
	cfg.Logging.File.MaxAge = 30   // days
	cfg.Logging.File.Compress = true
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMin = 300
	cfg.Security.RateLimit.Burst = 30
	cfg.WebSocket.Events.BroadcastPreprocess = true
	cfg.WebSocket.Events.BroadcastReloads = true
	cfg.WebSocket.Events.BroadcastSystem = true
	cfg.WebSocket.Events.BroadcastConnections = true
	return cfg
}
