// Package config loads coremgr settings from flags, COREMGR_* environment
// variables and an optional coremgr.{yaml,json,toml} file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/affinity"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/process"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/session"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/tail"
)

const (
	EnvPrefix  = "COREMGR"
	ConfigName = "coremgr"
)

type Config struct {
	ProcessName         string        `mapstructure:"processName"`
	CmdlineMatch        string        `mapstructure:"cmdlineMatch"`
	FallbackGameDir     string        `mapstructure:"fallbackGameDir"`
	LogFile             string        `mapstructure:"logFile"`
	ReservedCores       int           `mapstructure:"reservedCores"`
	ProcessPollInterval time.Duration `mapstructure:"processPollInterval"`
	TailPollInterval    time.Duration `mapstructure:"tailPollInterval"`
	MaxLineLength       int           `mapstructure:"maxLineLength"`
	RestoreOnExit       bool          `mapstructure:"restoreOnExit"`
	HealthAddress       string        `mapstructure:"healthAddress"`
	MetricsAddress      string        `mapstructure:"metricsAddress"`
	LogLevel            string        `mapstructure:"logLevel"`
	LoggerName          string        `mapstructure:"loggerName"`
	ProcfsPath          string        `mapstructure:"procfsPath"`
}

// setDefault registers a key with its default and its COREMGR_SNAKE_CASE
// environment variable.
func setDefault(v *viper.Viper, key string, value any) {
	v.SetDefault(key, value)
	_ = v.BindEnv(key, EnvKey(key))
}

func setDefaults(v *viper.Viper) {
	setDefault(v, "processName", process.DefaultNameMatch)
	setDefault(v, "cmdlineMatch", process.DefaultCmdlineMatch)
	setDefault(v, "fallbackGameDir", session.DefaultFallbackGameDir)
	setDefault(v, "logFile", "")
	setDefault(v, "reservedCores", affinity.DefaultReservedCores)
	setDefault(v, "processPollInterval", process.DefaultPollInterval)
	setDefault(v, "tailPollInterval", tail.DefaultPollInterval)
	setDefault(v, "maxLineLength", marker.DefaultMaxLineLength)
	setDefault(v, "restoreOnExit", false)
	setDefault(v, "healthAddress", "")
	setDefault(v, "metricsAddress", "")
	setDefault(v, "logLevel", "info")
	setDefault(v, "loggerName", "pretty")
	setDefault(v, "procfsPath", process.DefaultProcfsPath)
}

// LoadConfig reads configuration from configDir (if non-empty), the
// environment and flags. A missing config file is not an error.
func LoadConfig(configDir string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(FlagKey(f.Name), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	if configDir != "" {
		v.AddConfigPath(configDir)
		v.SetConfigName(ConfigName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// FlagKey maps a kebab-case flag name to its config key, e.g.
// "reserved-cores" to "reservedCores".
func FlagKey(name string) string {
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func (c Config) Validate() error {
	var errs []error
	if c.ProcessPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("processPollInterval must be positive, got %s", c.ProcessPollInterval))
	}
	if c.TailPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("tailPollInterval must be positive, got %s", c.TailPollInterval))
	}
	if c.ReservedCores < 0 {
		errs = append(errs, fmt.Errorf("reservedCores must not be negative, got %d", c.ReservedCores))
	}
	if c.MaxLineLength < 1 {
		errs = append(errs, fmt.Errorf("maxLineLength must be at least 1, got %d", c.MaxLineLength))
	}
	return errors.Join(errs...)
}

// Matcher builds the process matcher.
func (c Config) Matcher() process.Matcher {
	return process.Matcher{Name: c.ProcessName, Cmdline: c.CmdlineMatch}
}

// Session builds the driver configuration.
func (c Config) Session() session.Config {
	return session.Config{
		FallbackGameDir:     c.FallbackGameDir,
		LogFile:             c.LogFile,
		ProcessPollInterval: c.ProcessPollInterval,
		TailPollInterval:    c.TailPollInterval,
		MaxLineLength:       c.MaxLineLength,
		RestoreOnExit:       c.RestoreOnExit,
	}
}

// EnvKey maps a config key to its environment variable, e.g. "logFile" to
// "COREMGR_LOG_FILE".
func EnvKey(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	b.WriteByte('_')
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
