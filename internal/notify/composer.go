// Package notify composes birthday messages and delivers them over the
// channels configured per group.
package notify

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/locale"
)

var templateStyles = []string{config.StyleFormal, config.StyleCasual, config.StyleFamily, config.StyleBusiness}

// Composer renders message bodies in one language.
type Composer struct {
	loc *locale.Localizer
}

// NewComposer binds a Composer to a localizer.
func NewComposer(loc *locale.Localizer) *Composer {
	return &Composer{loc: loc}
}

// Style returns s when it is a known template style, the default otherwise.
func Style(s string) string {
	if slices.Contains(templateStyles, s) {
		return s
	}
	return config.DefaultTemplateStyle
}

// DigestLine renders one celebrant. Newborns (age 0) get the line without age.
func (c *Composer) DigestLine(r engine.Ranked) string {
	name := displayName(r.Contact)
	if !r.Result.Dated || r.Result.TurningAge <= 0 {
		return c.loc.Msg(config.TKeyDigestLineNoAge, map[string]any{"Name": name})
	}
	return c.loc.Msg(config.TKeyDigestLine, map[string]any{"Name": name, "Age": r.Result.TurningAge})
}

// GroupDigest renders today's celebrants of a group with the group's template style.
func (c *Composer) GroupDigest(group, style string, today engine.Date, celebrants []engine.Ranked) string {
	lines := make([]string, 0, len(celebrants))
	for _, r := range celebrants {
		lines = append(lines, c.DigestLine(r))
	}
	return c.loc.Msg(config.TKeyTplGroupPrefix+Style(style), map[string]any{
		"Date":      today.String(),
		"Group":     group,
		"Birthdays": strings.Join(lines, "\n"),
	})
}

// Individual renders the single-person announcement for a style.
func (c *Composer) Individual(style string, r engine.Ranked) string {
	return c.loc.Msg(config.TKeyTplIndividualPrefix+Style(style), map[string]any{
		"Name": displayName(r.Contact),
		"Age":  r.Result.TurningAge,
	})
}

// Greeting is the personal congratulation prefilled in WhatsApp links.
func (c *Composer) Greeting(r engine.Ranked) string {
	return c.loc.Msg(config.TKeyWhatsAppPersonal, map[string]any{
		"Name": displayName(r.Contact),
		"Age":  r.Result.TurningAge,
	})
}

// Subject is the email subject of a group digest.
func (c *Composer) Subject(group string) string {
	return c.loc.Msg(config.TKeyDigestSubject, map[string]any{"Group": group})
}

// TestMessage is sent by the channel test endpoint.
func (c *Composer) TestMessage(group string, at time.Time) string {
	return c.loc.Msg(config.TKeyTestMessage, map[string]any{
		"Group": group,
		"Time":  at.Format(config.DateFormatDisplayTS),
	})
}

// WhatsAppLink builds a wa.me click-to-chat URL. Everything but digits is
// dropped from phone; an empty phone yields a link that lets the user pick the chat.
func WhatsAppLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	link := config.WhatsAppBaseURL + digits
	if text != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	}
	return link
}

func displayName(c engine.Contact) string {
	if strings.TrimSpace(c.DisplayName) == "" {
		return config.FallbackName
	}
	return c.DisplayName
}
