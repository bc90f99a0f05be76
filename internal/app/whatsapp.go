package app

import (
	"context"

	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/notify"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// WhatsAppEntry is a celebrant with a prefilled click-to-chat link.
type WhatsAppEntry struct {
	Person  store.Person `json:"person"`
	Age     int          `json:"age"`
	Message string       `json:"message"`
	// Announcement tells the person's group, in that group's template style.
	Announcement string `json:"announcement"`
	// Link is empty when the person has no phone number.
	Link string `json:"link,omitempty"`
}

// WhatsAppToday prepares a personal greeting for everyone celebrating today.
func (s *Service) WhatsAppToday(ctx context.Context, today engine.Date, c *notify.Composer) ([]WhatsAppEntry, error) {
	people, err := s.db.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	cfgs, err := s.db.ListChannelConfigs(ctx)
	if err != nil {
		return nil, err
	}
	styles := make(map[string]string, len(cfgs))
	for _, cfg := range cfgs {
		styles[cfg.GroupName] = cfg.TemplateStyle
	}

	out := []WhatsAppEntry{}
	for _, p := range people {
		r := engine.Ranked{Contact: ToContact(p)}
		r.Result = engine.Evaluate(r.Contact, today)
		if r.Result.Class != engine.ProximityToday {
			continue
		}

		e := WhatsAppEntry{
			Person:       p,
			Age:          r.Result.TurningAge,
			Message:      c.Greeting(r),
			Announcement: c.Individual(groupStyle(p.Groups, styles), r),
		}
		if p.Phone != "" {
			e.Link = notify.WhatsAppLink(p.Phone, e.Message)
		}
		out = append(out, e)
	}
	return out, nil
}

// groupStyle is the template style of the first group that has one.
func groupStyle(groups []string, styles map[string]string) string {
	for _, g := range groups {
		if st, ok := styles[g]; ok {
			return st
		}
	}
	return ""
}
