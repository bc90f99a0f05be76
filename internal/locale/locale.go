// Package locale loads the embedded message catalogs.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/birthday-manager/internal/config"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".yaml"
)

// Catalog holds every embedded language.
type Catalog struct {
	bundle    *i18n.Bundle
	languages []string
	matcher   language.Matcher
}

// Load reads all locales/active.<lang>.yaml files.
func Load() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var langs []string
	var tags []language.Tag
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		tag, err := language.Parse(code)
		if code == "" || err != nil {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
		)
		langs = append(langs, code)
		tags = append(tags, tag)
	}

	if len(tags) == 0 {
		return nil, errors.New(config.ErrLocalesAccess)
	}

	return &Catalog{
		bundle:    bundle,
		languages: langs,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Languages lists the loaded ISO 639-1 codes.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.languages...)
}

// Localizer returns a translator for lang, falling back to the closest
// loaded language.
func (c *Catalog) Localizer(lang string) *Localizer {
	tag, _ := language.MatchStrings(c.matcher, lang)
	base, _ := tag.Base()
	return &Localizer{
		tag: language.Make(base.String()),
		l:   i18n.NewLocalizer(c.bundle, base.String()),
	}
}

// Localizer translates message keys for one language.
type Localizer struct {
	tag language.Tag
	l   *i18n.Localizer
}

// Tag is the resolved language.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Msg translates key with template data. A missing key returns the key itself.
func (l *Localizer) Msg(key string, data map[string]any) string {
	return l.localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// Plural translates key choosing the plural form for count.
func (l *Localizer) Plural(key string, count int, data map[string]any) string {
	return l.localize(&i18n.LocalizeConfig{MessageID: key, PluralCount: count, TemplateData: data})
}

func (l *Localizer) localize(cfg *i18n.LocalizeConfig) string {
	msg, err := l.l.Localize(cfg)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, cfg.MessageID,
			config.LogKeyError, err,
		)
		return cfg.MessageID
	}
	return msg
}
