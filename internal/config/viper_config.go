package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("server")
	v.SetConfigType("yaml")

	// Add config paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/flags-games")
	}

	// Enable environment variable binding
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables
	// These allow both FLAGS_SERVER_PORT and PORT to work
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.adminapikey", "ADMIN_API_KEY")
	v.BindEnv("server.sessionsecret", "SESSION_SECRET")
	v.BindEnv("server.loglevel", "LOG_LEVEL")
	v.BindEnv("server.logformat", "LOG_FORMAT")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("server.maxmessagesize", "MAX_MESSAGE_SIZE")
	v.BindEnv("server.maxconnectionsperip", "MAX_CONNECTIONS_PER_IP")
	v.BindEnv("heartbeat.interval", "HEARTBEAT_INTERVAL")
	v.BindEnv("heartbeat.timeout", "HEARTBEAT_TIMEOUT")
	v.BindEnv("heartbeat.maxmissed", "HEARTBEAT_MAX_MISSED")
	v.BindEnv("cleanup.interval", "CLEANUP_INTERVAL")

	// Server defaults
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "15s")
	v.SetDefault("server.idletimeout", "60s")
	v.SetDefault("server.shutdowntimeout", "30s")
	v.SetDefault("server.allowedorigins", []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"https://flags.games",
		"https://www.flags.games",
	})

	// Rate limiting defaults
	v.SetDefault("server.ratelimit", 10.0)
	v.SetDefault("server.ratelimitburst", 20)

	// Request / connection limits
	v.SetDefault("server.maxrequestsize", 1048576)  // 1MB
	v.SetDefault("server.maxmessagesize", 131072)   // 128KiB
	v.SetDefault("server.maxbufferedbytes", 1048576)
	v.SetDefault("server.maxconnectionsperip", 1)
	v.SetDefault("server.rapidconnectattempts", 3)
	v.SetDefault("server.rapidconnectwindow", "60s")

	// Monitoring defaults
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "json")

	// Game defaults
	v.SetDefault("game.minroomsize", 2)
	v.SetDefault("game.maxroomsize", 5)
	v.SetDefault("game.invitecodelength", 6)
	v.SetDefault("game.maxroomlifetime", "4h")
	v.SetDefault("game.startcountdown", "5s")
	v.SetDefault("game.resultsdelay", "3s")
	v.SetDefault("game.defaultdifficulty", "easy")

	// Heartbeat defaults
	v.SetDefault("heartbeat.interval", "30s")
	v.SetDefault("heartbeat.timeout", "10s")
	v.SetDefault("heartbeat.maxmissed", 3)

	// Cleanup defaults
	v.SetDefault("cleanup.interval", "5m")
	v.SetDefault("cleanup.inactiveusertimeout", "5m")
	v.SetDefault("cleanup.emptyroomtimeout", "10m")
	v.SetDefault("cleanup.ttlwarningwindow", "5m")

	// Try to read config file (it's optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if strings.Contains(err.Error(), "no such file or directory") {
				// File doesn't exist, continue with defaults
			} else {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
		// Config file not found; continue with env vars and defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
