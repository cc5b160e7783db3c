package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultProgramID is the identity the pool program runs under unless overridden.
const DefaultProgramID = "69Qd1B33Uo7PR2JzfC7finFDaccts85pdpoCSMYbNf8K"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Store        string
	SQLitePath   string
	PostgresDSN  string
	ProgramID    string
	EventsOut    string
	MetricsOut   string
	LogLevel     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", "sqlite")
	v.SetDefault("sqlite-path", "./data/poolvault.db")
	v.SetDefault("program-id", DefaultProgramID)
	v.SetDefault("events-out", "")
	v.SetDefault("metrics-out", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Store:        strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		SQLitePath:   v.GetString("sqlite-path"),
		PostgresDSN:  v.GetString("pg-dsn"),
		ProgramID:    strings.TrimSpace(v.GetString("program-id")),
		EventsOut:    v.GetString("events-out"),
		MetricsOut:   v.GetString("metrics-out"),
		LogLevel:     v.GetString("log-level"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}

	return cfg, nil
}
