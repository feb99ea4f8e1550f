package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const VERSION = "1.0"

type Config struct {
	Mongo      MongoConfig
	SMTP       SMTPConfig
	Worker     WorkerConfig
	Dispatcher DispatcherConfig

	// DayBoundaryTZ is the timezone used to derive the date_key for
	// per-account daily counters.
	DayBoundaryTZ string
	LogLevel      string
	Version       string
}

type MongoConfig struct {
	URI    string
	DBName string
}

type SMTPConfig struct {
	// StartTLS upgrades the SMTP connection opportunistically when true.
	StartTLS bool
}

type WorkerConfig struct {
	BatchSize              int
	ReservationLockSeconds int
}

type DispatcherConfig struct {
	TickSeconds int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	// Try to load .env file but don't require it
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("SMTP_STARTTLS", true)
	v.SetDefault("DEFAULT_RESERVATION_LOCK_SECONDS", 30)
	v.SetDefault("DEFAULT_WORKER_BATCH_SIZE", 20)
	v.SetDefault("DISPATCHER_TICK_SECONDS", 15)
	v.SetDefault("DAY_BOUNDARY_TZ", "UTC")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("VERSION", VERSION)

	// Load environment file if specified
	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if the env file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Validate required configuration
	if v.GetString("MONGO_URI") == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if v.GetString("DB_NAME") == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}

	config := &Config{
		Mongo: MongoConfig{
			URI:    v.GetString("MONGO_URI"),
			DBName: v.GetString("DB_NAME"),
		},
		SMTP: SMTPConfig{
			StartTLS: v.GetBool("SMTP_STARTTLS"),
		},
		Worker: WorkerConfig{
			BatchSize:              v.GetInt("DEFAULT_WORKER_BATCH_SIZE"),
			ReservationLockSeconds: v.GetInt("DEFAULT_RESERVATION_LOCK_SECONDS"),
		},
		Dispatcher: DispatcherConfig{
			TickSeconds: v.GetInt("DISPATCHER_TICK_SECONDS"),
		},
		DayBoundaryTZ: v.GetString("DAY_BOUNDARY_TZ"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Version:       v.GetString("VERSION"),
	}

	return config, nil
}
