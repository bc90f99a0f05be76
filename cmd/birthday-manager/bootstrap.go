package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tartampluch/birthday-manager/internal/app"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/credentials"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/feed"
	"github.com/tartampluch/birthday-manager/internal/locale"
	"github.com/tartampluch/birthday-manager/internal/metrics"
	"github.com/tartampluch/birthday-manager/internal/notify"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// env is everything a command needs once settings are loaded.
type env struct {
	settings *config.Settings
	logger   *slog.Logger
	db       *store.DB
	svc      *app.Service
	loc      *locale.Localizer
	secrets  *credentials.Store
	metrics  *metrics.Manager

	closers []io.Closer
}

// open loads settings, configures logging and opens the migrated database.
// withLogFile additionally tees logs into the user cache directory.
func (c *cli) open(ctx context.Context, clock engine.Clock, withLogFile bool) (*env, error) {
	settings, err := config.Load(ctx, c.configPath)
	if err != nil {
		return nil, err
	}
	if c.lang != "" {
		settings.Language = c.lang
	}
	if c.debug {
		settings.LogLevel = "debug"
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &env{
		settings: settings,
		secrets:  credentials.New(),
		metrics:  metrics.NewManager(metrics.WithConstLabels(map[string]string{config.MetricLabelVersion: config.Version})),
	}

	logger, logFile := setupLogging(settings, c.debug, c.stderr, withLogFile)
	e.logger = logger
	if logFile != nil {
		e.closers = append(e.closers, logFile)
	}

	db, err := store.Open(store.DefaultConfig(settings.DatabasePath), logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.db = db
	e.closers = append(e.closers, db)

	if _, err := db.Migrate(ctx); err != nil {
		e.Close()
		return nil, err
	}
	if err := db.SeedGroups(ctx, settings.DefaultGroups); err != nil {
		e.Close()
		return nil, err
	}

	cat, err := locale.Load()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.loc = cat.Localizer(settings.Language)
	e.svc = app.New(db, clock, e.metrics, e.loc.Tag())
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

func (e *env) composer() *notify.Composer {
	return notify.NewComposer(e.loc)
}

// dispatcher wires every channel kind. Secrets are resolved per send.
func (e *env) dispatcher() *notify.Dispatcher {
	client := newHTTPClient()
	s := e.settings
	return notify.NewDispatcher(e.db, e.metrics,
		&notify.WhatsAppChannel{Client: client, BridgeURL: s.WhatsAppBridgeURL},
		notify.NewEmailChannel(s, func() (string, error) { return e.secrets.SMTPPassword(s.SMTPUser) }),
		&notify.TelegramChannel{Client: client, APIBase: s.TelegramAPIBase, Tokens: e.secrets},
		&notify.WebhookChannel{Client: client},
	)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: config.HTTPTimeout}
}

func (e *env) feedGenerator() *feed.Generator {
	return &feed.Generator{
		FormatSummary: func(name string, age int) string {
			if age == 0 {
				return e.loc.Msg(config.TKeyEvtSummaryBirth, map[string]any{"Name": name})
			}
			return e.loc.Msg(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age})
		},
		ReminderTrigger: e.settings.ReminderTrigger,
		Refresh:         config.DefaultFeedRefresh,
	}
}

// setupLogging installs the default slog logger. Logs go to stderr so stdout
// stays usable for command output.
func setupLogging(s *config.Settings, debug bool, stderr io.Writer, withLogFile bool) (*slog.Logger, io.Closer) {
	writers := []io.Writer{stderr}
	var logFile *os.File

	if withLogFile {
		if logPath, err := getLogFilePath(); err == nil {
			// O_TRUNC resets logs on restart to prevent indefinite growth.
			f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
			if err == nil {
				writers = append(writers, f)
				logFile = f
			} else {
				_, _ = fmt.Fprintf(stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
			}
		}
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(s.LogLevel),
		AddSource: debug,
	}

	out := io.MultiWriter(writers...)
	var handler slog.Handler
	if s.LogFormat == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if logFile == nil {
		return logger, nil
	}
	return logger, logFile
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
