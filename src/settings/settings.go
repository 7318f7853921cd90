package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Arguments struct {
	// The file path to the datafiles
	DataDir string
	LogDir  string

	// Optional .env file applied before the environment
	ConfigFile string

	// YAML schema used by the load command
	SchemaFile string

	// Debug turns on development logging
	Debug bool

	// Strongly verbose logging
	Verbose bool

	// Journal rotation size and retention
	JournalMaxBytes      int64
	JournalRetentionDays int
}

var (
	instance *Arguments
	once     sync.Once
	mu       sync.RWMutex
)

// Environment variables that override the defaults
const (
	EnvDataDir              = "SYNDR_DATA_DIR"
	EnvLogDir               = "SYNDR_LOG_DIR"
	EnvSchemaFile           = "SYNDR_SCHEMA"
	EnvDebug                = "SYNDR_DEBUG"
	EnvVerbose              = "SYNDR_VERBOSE"
	EnvJournalMaxBytes      = "SYNDR_JOURNAL_MAX_BYTES"
	EnvJournalRetentionDays = "SYNDR_JOURNAL_RETENTION_DAYS"
)

func defaults() *Arguments {
	return &Arguments{
		DataDir:              "./datafiles",
		LogDir:               "./logs",
		ConfigFile:           ".env",
		JournalMaxBytes:      10 * 1024 * 1024,
		JournalRetentionDays: 7,
	}
}

// GetSettings returns the process wide settings
func GetSettings() *Arguments {
	once.Do(func() {
		mu.Lock()
		instance = defaults()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Load resets the settings to their defaults, applies the .env file if it
// exists, then the SYNDR_* environment variables.
func Load(envFile string) (*Arguments, error) {
	args := defaults()
	if envFile != "" {
		args.ConfigFile = envFile
	}

	if _, err := os.Stat(args.ConfigFile); err == nil {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(args.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", args.ConfigFile, err)
		}
	}

	if err := applyEnvironment(args); err != nil {
		return nil, err
	}

	GetSettings()
	mu.Lock()
	instance = args
	mu.Unlock()
	return args, nil
}

func applyEnvironment(args *Arguments) error {
	if v, ok := os.LookupEnv(EnvDataDir); ok {
		args.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvLogDir); ok {
		args.LogDir = v
	}
	if v, ok := os.LookupEnv(EnvSchemaFile); ok {
		args.SchemaFile = v
	}
	if v, ok := os.LookupEnv(EnvDebug); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		args.Debug = b
	}
	if v, ok := os.LookupEnv(EnvVerbose); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvVerbose, err)
		}
		args.Verbose = b
	}
	if v, ok := os.LookupEnv(EnvJournalMaxBytes); ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvJournalMaxBytes, err)
		}
		args.JournalMaxBytes = n
	}
	if v, ok := os.LookupEnv(EnvJournalRetentionDays); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvJournalRetentionDays, err)
		}
		args.JournalRetentionDays = n
	}
	return nil
}
