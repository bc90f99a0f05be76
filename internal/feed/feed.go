// Package feed renders birthdays as an iCalendar subscription.
package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
)

// SummaryFunc localizes an event title. age is the age reached in the event's
// year, 0 for the year of birth.
type SummaryFunc func(name string, age int) string

// Generator builds the calendar. The zero value is usable.
type Generator struct {
	// FormatSummary allows callers to inject localized strings.
	FormatSummary SummaryFunc
	// ReminderTrigger is an ISO8601 duration (e.g. "-P1D"); empty disables alarms.
	ReminderTrigger string
	// Refresh is advertised as REFRESH-INTERVAL.
	Refresh time.Duration
}

// Stats describes one generation run.
type Stats struct {
	Processed int
	Dated     int
	Today     int
	Events    int
}

// Generate returns the ICS bytes for contacts around today.
// Each datable contact gets events for the previous, current and next year,
// never before the year of birth. stamp becomes DTSTAMP.
func (g *Generator) Generate(ctx context.Context, contacts []engine.Contact, today engine.Date, stamp time.Time) ([]byte, Stats, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refresh := g.Refresh
	if refresh <= 0 {
		refresh = config.DefaultFeedRefresh
	}
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(refresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(stamp.UTC())

	var stats Stats
	for _, c := range contacts {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		stats.Processed++

		a, err := engine.ParseAnniversary(c.Anniversary)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompFeed,
				config.LogKeyName, c.DisplayName,
				config.LogKeyValue, c.Anniversary)
			continue
		}
		stats.Dated++

		if engine.DaysUntilNext(a, today) == 0 {
			stats.Today++
		}

		for _, e := range g.createEvents(c, a, today) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
			stats.Events++
		}
	}

	if len(cal.Children) == 0 {
		g.logSuccess(ctx, stats)
		return []byte(config.StubVCalendar), stats, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, Stats{}, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(ctx, stats)
	return buf.Bytes(), stats, nil
}

func (g *Generator) logSuccess(ctx context.Context, stats Stats) {
	slog.InfoContext(ctx, config.MsgFeedSuccess,
		config.LogKeyComponent, config.CompFeed,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.Processed),
			slog.Int(config.LogKeyFound, stats.Dated),
			slog.Int(config.LogKeyToday, stats.Today),
		),
	)
}

func (g *Generator) createEvents(c engine.Contact, a engine.Date, today engine.Date) []*ical.Event {
	uidBase := UID(c, a)

	var events []*ical.Event
	for _, y := range []int{today.Year - 1, today.Year, today.Year + 1} {
		if y < a.Year {
			continue
		}

		age := y - a.Year
		summary := g.summary(c.DisplayName, age)

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)

		dtStart := ical.NewProp(config.PropDTStart)
		dtStart.SetDate(engine.OccurrenceIn(a, y).Time(time.UTC))
		event.Props.Set(dtStart)

		if len(c.Groups) > 0 {
			event.Props.Set(categoriesProp(c.Groups))
		}
		if g.ReminderTrigger != "" {
			addAlarm(event, g.ReminderTrigger, summary)
		}
		events = append(events, event)
	}
	return events
}

func (g *Generator) summary(name string, age int) string {
	if name == "" {
		name = config.FallbackName
	}
	if g.FormatSummary != nil {
		return g.FormatSummary(name, age)
	}
	if age == 0 {
		return fmt.Sprintf(config.FallbackSummaryBirth, name)
	}
	return fmt.Sprintf(config.FallbackSummaryAge, name, age)
}

// addAlarm appends a DISPLAY alarm to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set the raw value, SetText would add VALUE=TEXT.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// categoriesProp joins groups as a CATEGORIES list. SetText would escape
// the separating commas and produce a single category.
func categoriesProp(groups []string) *ical.Prop {
	escaped := make([]string, len(groups))
	for i, g := range groups {
		escaped[i] = categoryEscaper.Replace(g)
	}
	prop := ical.NewProp(config.PropCategories)
	prop.Value = strings.Join(escaped, ",")
	return prop
}

var categoryEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\n", `\n`)

// UID derives a stable identifier from name and birthday, so a contact keeps
// its events across rebuilds even when its storage ID changes on re-import.
func UID(c engine.Contact, a engine.Date) string {
	input := fmt.Sprintf(config.FormatHashInput, c.DisplayName, a.String(), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}
