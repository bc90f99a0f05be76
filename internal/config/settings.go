package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Settings holds the runtime configuration of every command.
// Secrets (SMTP password, Telegram bot tokens) are not part of it: they live in the OS keyring.
type Settings struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr is the HTTP listen address of the serve command.
	Addr string `koanf:"addr"`
	// DatabasePath points to the SQLite file.
	DatabasePath string `koanf:"database_path"`
	// Language is the ISO 639-1 code used for messages and feed summaries.
	Language string `koanf:"language"`
	// DefaultGroups are created on first start.
	DefaultGroups []string `koanf:"default_groups"`

	// MorningHour is the local hour from which the daily digest may be sent.
	MorningHour int `koanf:"morning_hour"`
	// CheckInterval is the scheduler tick.
	CheckInterval time.Duration `koanf:"check_interval"`
	// ReminderTrigger is an optional ISO8601 duration for calendar alarms (e.g. "-P1D").
	ReminderTrigger string `koanf:"reminder_trigger"`

	SMTPHost string `koanf:"smtp_host"`
	SMTPPort int    `koanf:"smtp_port"`
	SMTPUser string `koanf:"smtp_user"`
	SMTPFrom string `koanf:"smtp_from"`

	// WhatsAppBridgeURL is the endpoint of an external WhatsApp sender. Empty means links only.
	WhatsAppBridgeURL string `koanf:"whatsapp_bridge_url"`
	// TelegramAPIBase can be pointed at a stub in tests.
	TelegramAPIBase string `koanf:"telegram_api_base"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() *Settings {
	return &Settings{
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		Addr:            DefaultAddr,
		DatabasePath:    DefaultDatabasePath,
		Language:        DefaultLanguage,
		DefaultGroups:   append([]string(nil), DefaultGroups...),
		MorningHour:     DefaultMorningHour,
		CheckInterval:   DefaultCheckInterval,
		ReminderTrigger: DefaultReminderTrigger,
		SMTPPort:        DefaultSMTPPort,
		TelegramAPIBase: TelegramAPIBase,
	}
}

// Load builds Settings by layering sources.
// Order of precedence (low -> high):
//  1. Defaults()
//  2. YAML file given by path, or by BIRTHDAY_CONFIG when path is empty
//  3. .env file in the working directory (only fills unset variables)
//  4. environment variables with the BIRTHDAY_ prefix
func Load(_ context.Context, path string) (*Settings, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(DotEnvFile)

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrLoadConfig, err)
		}
	}

	// BIRTHDAY_SMTP_HOST -> smtp_host
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLoadConfig, err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	var errs []error

	if s.Addr == "" {
		errs = append(errs, errors.New(ErrAddrRequired))
	}
	if s.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}

	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of: debug, info, warn, error; got %q", s.LogLevel))
	}

	switch s.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be one of: json, text; got %q", s.LogFormat))
	}

	if !slices.Contains(SupportedLanguages, s.Language) {
		errs = append(errs, fmt.Errorf("language must be one of: %s; got %q",
			strings.Join(SupportedLanguages, ", "), s.Language))
	}

	if s.MorningHour < 0 || s.MorningHour > 23 {
		errs = append(errs, fmt.Errorf("morning_hour must be between 0 and 23, got %d", s.MorningHour))
	}
	if s.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("check_interval must be positive, got %s", s.CheckInterval))
	}
	if s.SMTPPort < MinPort || s.SMTPPort > MaxPort {
		errs = append(errs, fmt.Errorf("smtp_port must be between %d and %d, got %d", MinPort, MaxPort, s.SMTPPort))
	}

	return errors.Join(errs...)
}

// SMTPEnabled reports whether enough is configured to attempt email delivery.
func (s *Settings) SMTPEnabled() bool {
	return s.SMTPHost != "" && s.SMTPFrom != ""
}
