package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// Config represents the full server configuration.
type Config struct {
	Server    ServerSettings    `yaml:"server"`
	Game      GameSettings      `yaml:"game"`
	Heartbeat HeartbeatSettings `yaml:"heartbeat"`
	Cleanup   CleanupSettings   `yaml:"cleanup"`
}

// ServerSettings contains server-wide settings.
type ServerSettings struct {
	Port            string        `yaml:"port" envconfig:"PORT" required:"true"`
	Host            string        `yaml:"host" envconfig:"HOST" required:"true"`
	ReadTimeout     time.Duration `yaml:"readTimeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Secrets
	AdminAPIKey   string `yaml:"adminApiKey" envconfig:"ADMIN_API_KEY"`
	SessionSecret string `yaml:"sessionSecret" envconfig:"SESSION_SECRET" required:"true"`

	// CORS
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// HTTP rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit" envconfig:"RATE_LIMIT" default:"10"`
	RateLimitBurst int     `yaml:"rateLimitBurst" envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Request / connection limits
	MaxRequestSize       int64 `yaml:"maxRequestSize" envconfig:"MAX_REQUEST_SIZE" default:"1048576"` // 1MB
	MaxMessageSize       int64 `yaml:"maxMessageSize" envconfig:"MAX_MESSAGE_SIZE" default:"131072"`  // 128KiB
	MaxBufferedBytes     int64 `yaml:"maxBufferedBytes" envconfig:"MAX_BUFFERED_BYTES" default:"1048576"`
	MaxConnectionsPerIP  int   `yaml:"maxConnectionsPerIP" envconfig:"MAX_CONNECTIONS_PER_IP" default:"1"`
	RapidConnectAttempts int   `yaml:"rapidConnectAttempts" default:"3"`

	RapidConnectWindow time.Duration `yaml:"rapidConnectWindow" default:"60s"`

	// Monitoring
	LogLevel  string `yaml:"logLevel" envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT" default:"json"`
}

// GameSettings contains room and round defaults.
type GameSettings struct {
	MinRoomSize       int           `yaml:"minRoomSize"`
	MaxRoomSize       int           `yaml:"maxRoomSize"`
	InviteCodeLength  int           `yaml:"inviteCodeLength"`
	MaxRoomLifetime   time.Duration `yaml:"maxRoomLifetime"`
	StartCountdown    time.Duration `yaml:"startCountdown"`
	ResultsDelay      time.Duration `yaml:"resultsDelay"`
	DefaultDifficulty string        `yaml:"defaultDifficulty"`
}

// HeartbeatSettings controls connection liveness probing.
type HeartbeatSettings struct {
	Interval  time.Duration `yaml:"interval" envconfig:"HEARTBEAT_INTERVAL" default:"30s"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"HEARTBEAT_TIMEOUT" default:"10s"`
	MaxMissed int           `yaml:"maxMissed" envconfig:"HEARTBEAT_MAX_MISSED" default:"3"`
}

// CleanupSettings controls the periodic sweep service.
type CleanupSettings struct {
	Interval            time.Duration `yaml:"interval" envconfig:"CLEANUP_INTERVAL" default:"5m"`
	InactiveUserTimeout time.Duration `yaml:"inactiveUserTimeout" default:"5m"`
	EmptyRoomTimeout    time.Duration `yaml:"emptyRoomTimeout" default:"10m"`
	TTLWarningWindow    time.Duration `yaml:"ttlWarningWindow" default:"5m"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Port:            "", // Must be set via env
			Host:            "",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,

			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"https://flags.games",
				"https://www.flags.games",
			},

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize:       1048576,
			MaxMessageSize:       131072,
			MaxBufferedBytes:     1048576,
			MaxConnectionsPerIP:  1,
			RapidConnectAttempts: 3,
			RapidConnectWindow:   60 * time.Second,

			LogLevel:  "info",
			LogFormat: "json",
		},
		Game: GameSettings{
			MinRoomSize:       2,
			MaxRoomSize:       5,
			InviteCodeLength:  6,
			MaxRoomLifetime:   4 * time.Hour,
			StartCountdown:    5 * time.Second,
			ResultsDelay:      3 * time.Second,
			DefaultDifficulty: "easy",
		},
		Heartbeat: HeartbeatSettings{
			Interval:  30 * time.Second,
			Timeout:   10 * time.Second,
			MaxMissed: 3,
		},
		Cleanup: CleanupSettings{
			Interval:            5 * time.Minute,
			InactiveUserTimeout: 5 * time.Minute,
			EmptyRoomTimeout:    10 * time.Minute,
			TTLWarningWindow:    5 * time.Minute,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Required fields
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}
	if c.Server.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET environment variable must be set")
	}

	if c.Game.MinRoomSize < 2 {
		return fmt.Errorf("minRoomSize must be at least 2")
	}
	if c.Game.MaxRoomSize < c.Game.MinRoomSize {
		return fmt.Errorf("maxRoomSize cannot be less than minRoomSize")
	}
	if c.Game.InviteCodeLength < 4 {
		return fmt.Errorf("inviteCodeLength must be at least 4")
	}
	if c.Game.MaxRoomLifetime <= 0 {
		return fmt.Errorf("maxRoomLifetime must be positive")
	}

	if c.Server.MaxConnectionsPerIP < 1 || c.Server.MaxConnectionsPerIP > 5 {
		return fmt.Errorf("maxConnectionsPerIP must be between 1 and 5")
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("maxMessageSize must be positive")
	}
	if c.Server.MaxBufferedBytes <= 0 {
		return fmt.Errorf("maxBufferedBytes must be positive")
	}

	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.Heartbeat.Timeout <= 0 || c.Heartbeat.Timeout >= c.Heartbeat.Interval {
		return fmt.Errorf("heartbeat timeout must be positive and shorter than the interval")
	}
	if c.Heartbeat.MaxMissed < 1 {
		return fmt.Errorf("heartbeat maxMissed must be at least 1")
	}

	if c.Cleanup.Interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}
	if c.Cleanup.TTLWarningWindow >= c.Game.MaxRoomLifetime {
		return fmt.Errorf("ttlWarningWindow must be shorter than maxRoomLifetime")
	}

	return nil
}
