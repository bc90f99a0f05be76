package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// Callers read it once per logical operation and pass the resulting Date down.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// DateOf truncates t to its civil date in t's own location.
// It is June 15th in Tokyo even while UTC still reads June 14th.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current civil date according to c.
func Today(c Clock) Date {
	return DateOf(c.Now())
}
