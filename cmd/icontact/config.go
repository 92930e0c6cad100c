package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the process streams the CLI talks to.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config bound to the process streams.
func DefaultConfig() Config {
	return Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Settings is the resolved CLI configuration. Precedence is flags, then
// ICONTACT_* environment variables (including those from a .env file),
// then the config file, then defaults.
type Settings struct {
	APIKey       string
	SharedSecret string
	Username     string
	Password     string
	BaseURL      string

	AppID     string
	V2BaseURL string

	Retries     int
	Backoff     time.Duration
	Timeout     time.Duration
	RateLimit   float64
	SessionFile string
	SessionKey  string

	LogLevel  string
	LogFormat string
	LogFile   string

	ConfigFile string
}

const envPrefix = "ICONTACT"

func applyDefaults(v *viper.Viper) {
	v.SetDefault("base-url", "http://api.icontact.com/icp/core/api/v1.0/")
	v.SetDefault("v2-base-url", "https://app.icontact.com/icp")
	v.SetDefault("retries", 5)
	v.SetDefault("backoff", time.Second)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("rate-limit", 0.0)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// loadSettings resolves the configuration. configFile, when set, replaces
// the search of ~/.icontact and the working directory. envFile is loaded
// into the environment first; a missing file is not an error.
func loadSettings(v *viper.Viper, flags *pflag.FlagSet, configFile, envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	applyDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".icontact"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
		for key, name := range map[string]string{
			"log.level":  "log-level",
			"log.format": "log-format",
			"log.file":   "log-file",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Settings{
		APIKey:       v.GetString("api-key"),
		SharedSecret: v.GetString("shared-secret"),
		Username:     v.GetString("username"),
		Password:     v.GetString("password"),
		BaseURL:      v.GetString("base-url"),
		AppID:        v.GetString("app-id"),
		V2BaseURL:    v.GetString("v2-base-url"),
		Retries:      v.GetInt("retries"),
		Backoff:      v.GetDuration("backoff"),
		Timeout:      v.GetDuration("timeout"),
		RateLimit:    v.GetFloat64("rate-limit"),
		SessionFile:  v.GetString("session-file"),
		SessionKey:   v.GetString("session-key"),
		LogLevel:     v.GetString("log.level"),
		LogFormat:    v.GetString("log.format"),
		LogFile:      v.GetString("log.file"),
		ConfigFile:   v.ConfigFileUsed(),
	}, nil
}
