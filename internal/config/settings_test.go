package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tartampluch/birthday-manager/internal/config"
)

var settingsEnvVars = []string{
	"BIRTHDAY_CONFIG",
	"BIRTHDAY_ADDR",
	"BIRTHDAY_LANGUAGE",
	"BIRTHDAY_MORNING_HOUR",
	"BIRTHDAY_CHECK_INTERVAL",
	"BIRTHDAY_SMTP_HOST",
	"BIRTHDAY_SMTP_FROM",
	"BIRTHDAY_LOG_LEVEL",
}

func clearSettingsEnv() {
	for _, k := range settingsEnvVars {
		_ = os.Unsetenv(k)
	}
}

func TestSettingsLoader(t *testing.T) {
	convey.Convey("Given a settings loader", t, func() {
		ctx := context.Background()
		clearSettingsEnv()
		// Keep a developer's .env out of the picture.
		t.Chdir(t.TempDir())

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, config.DefaultAddr)
				convey.So(cfg.Language, convey.ShouldEqual, "de")
				convey.So(cfg.MorningHour, convey.ShouldEqual, 8)
				convey.So(cfg.CheckInterval, convey.ShouldEqual, config.DefaultCheckInterval)
				convey.So(cfg.DefaultGroups, convey.ShouldResemble, config.DefaultGroups)
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("BIRTHDAY_ADDR", ":9090")
			_ = os.Setenv("BIRTHDAY_LANGUAGE", "en")
			_ = os.Setenv("BIRTHDAY_MORNING_HOUR", "7")
			_ = os.Setenv("BIRTHDAY_CHECK_INTERVAL", "5m")
			_ = os.Setenv("BIRTHDAY_SMTP_HOST", "smtp.example.com")
			_ = os.Setenv("BIRTHDAY_SMTP_FROM", "bot@example.com")
			defer clearSettingsEnv()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Language, convey.ShouldEqual, "en")
				convey.So(cfg.MorningHour, convey.ShouldEqual, 7)
				convey.So(cfg.CheckInterval, convey.ShouldEqual, 5*time.Minute)
				convey.So(cfg.SMTPEnabled(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "birthday.yaml")
			content := "addr: \":7070\"\nlanguage: en\ndefault_groups:\n  - Family\n  - Club\nreminder_trigger: \"-P1D\"\n"
			convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)

			convey.Convey("Then the file values are applied", func() {
				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DefaultGroups, convey.ShouldResemble, []string{"Family", "Club"})
				convey.So(cfg.ReminderTrigger, convey.ShouldEqual, "-P1D")
			})

			convey.Convey("And env still wins over the file", func() {
				_ = os.Setenv("BIRTHDAY_ADDR", ":6060")
				defer clearSettingsEnv()

				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When a value is invalid", func() {
			_ = os.Setenv("BIRTHDAY_LOG_LEVEL", "chatty")
			defer clearSettingsEnv()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then loading fails with a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, config.ErrInvalidConfig)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
