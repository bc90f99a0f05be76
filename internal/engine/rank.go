package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"
)

// Proximity buckets how soon an anniversary comes around again.
type Proximity int

const (
	ProximityUnknown Proximity = iota
	ProximityToday
	ProximityTomorrow
	ProximityWeek
	ProximityMonth
	ProximitySoon
	ProximityLater
)

var proximityNames = [...]string{
	ProximityUnknown:  "unknown",
	ProximityToday:    "today",
	ProximityTomorrow: "tomorrow",
	ProximityWeek:     "week",
	ProximityMonth:    "month",
	ProximitySoon:     "soon",
	ProximityLater:    "later",
}

func (p Proximity) String() string {
	if p < 0 || int(p) >= len(proximityNames) {
		return proximityNames[ProximityUnknown]
	}
	return proximityNames[p]
}

// MarshalText makes Proximity encode as its name in JSON.
func (p Proximity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (p *Proximity) UnmarshalText(b []byte) error {
	for i, name := range proximityNames {
		if name == string(b) {
			*p = Proximity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown proximity %q", b)
}

// Classify maps a day count to its bucket. Negative counts stand for an
// undatable anniversary.
func Classify(daysUntil int) Proximity {
	switch {
	case daysUntil < 0:
		return ProximityUnknown
	case daysUntil == 0:
		return ProximityToday
	case daysUntil == 1:
		return ProximityTomorrow
	case daysUntil <= 7:
		return ProximityWeek
	case daysUntil <= 30:
		return ProximityMonth
	case daysUntil <= 60:
		return ProximitySoon
	default:
		return ProximityLater
	}
}

// ProximityResult is computed per contact against one today and must not be
// reused once the date changes.
type ProximityResult struct {
	// Dated is false when the anniversary could not be parsed; the numeric
	// fields are then meaningless and Err holds the parse error.
	Dated bool

	Anniversary Date
	Next        Date
	DaysUntil   int
	CurrentAge  int
	TurningAge  int
	Class       Proximity

	Err error
}

// Evaluate computes the ProximityResult of c as of today.
func Evaluate(c Contact, today Date) ProximityResult {
	a, err := ParseAnniversary(c.Anniversary)
	if err != nil {
		return ProximityResult{Class: ProximityUnknown, DaysUntil: -1, Err: err}
	}

	days := DaysUntilNext(a, today)
	return ProximityResult{
		Dated:       true,
		Anniversary: a,
		Next:        NextOccurrence(a, today),
		DaysUntil:   days,
		CurrentAge:  CurrentAge(a, today),
		TurningAge:  TurningAge(a, today),
		Class:       Classify(days),
	}
}

// Ranked pairs a contact with its evaluation.
type Ranked struct {
	Contact Contact
	Result  ProximityResult
}

// RankByProximity evaluates every contact and orders them by days until the
// next occurrence. Undatable contacts go last. Equal keys keep input order.
// The input slice is not modified.
func RankByProximity(contacts []Contact, today Date) []Ranked {
	ranked := make([]Ranked, len(contacts))
	for i, c := range contacts {
		ranked[i] = Ranked{Contact: c, Result: Evaluate(c, today)}
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(sortKey(a.Result), sortKey(b.Result))
	})
	return ranked
}

func sortKey(r ProximityResult) int {
	if !r.Dated {
		return math.MaxInt
	}
	return r.DaysUntil
}

// WithinDays keeps the dated entries whose day count lies in [from, to].
func WithinDays(ranked []Ranked, from, to int) []Ranked {
	var out []Ranked
	for _, r := range ranked {
		if r.Result.Dated && r.Result.DaysUntil >= from && r.Result.DaysUntil <= to {
			out = append(out, r)
		}
	}
	return out
}

// TodayByGroup collects the entries celebrating today under each of their groups.
// A contact in several groups appears in each of them; ungrouped contacts are left out.
func TodayByGroup(ranked []Ranked) map[string][]Ranked {
	out := make(map[string][]Ranked)
	for _, r := range ranked {
		if r.Result.Class != ProximityToday {
			continue
		}
		for _, g := range r.Contact.Groups {
			out[g] = append(out[g], r)
		}
	}
	return out
}

// GroupByMonth buckets datable contacts by anniversary month, each bucket
// ordered by day of month. Undatable contacts are omitted.
func GroupByMonth(contacts []Contact) map[time.Month][]Contact {
	type dated struct {
		c Contact
		a Date
	}

	var all []dated
	for _, c := range contacts {
		if a, err := ParseAnniversary(c.Anniversary); err == nil {
			all = append(all, dated{c: c, a: a})
		}
	}
	slices.SortStableFunc(all, func(x, y dated) int {
		return cmp.Compare(x.a.Day, y.a.Day)
	})

	out := make(map[time.Month][]Contact)
	for _, d := range all {
		out[d.a.Month] = append(out[d.a.Month], d.c)
	}
	return out
}
