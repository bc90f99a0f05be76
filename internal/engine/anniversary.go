package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tartampluch/birthday-manager/internal/config"
)

var (
	// ErrInvalidFormat reports input that is not a D.M.YYYY date.
	ErrInvalidFormat = errors.New(config.ErrDateFormat)

	// ErrOutOfRange reports well-formed input naming a day that does not exist.
	// It wraps ErrInvalidFormat so callers may test for either.
	ErrOutOfRange = fmt.Errorf("%s: %w", config.ErrDateRange, ErrInvalidFormat)
)

var anniversaryPattern = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)

// Date is a civil date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseAnniversary parses "D.M.YYYY" or "DD.MM.YYYY".
// Bounds are checked before any time value is built, so "31.02.1999" fails
// instead of rolling over into March.
func ParseAnniversary(input string) (Date, error) {
	m := anniversaryPattern.FindStringSubmatch(input)
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidFormat, input)
	}

	// The pattern only admits digits, Atoi cannot fail here.
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if year < 1 || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: %q", ErrOutOfRange, input)
	}
	if day < 1 || day > DaysIn(year, time.Month(month)) {
		return Date{}, fmt.Errorf("%w: %q", ErrOutOfRange, input)
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// String renders the canonical DD.MM.YYYY form.
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

// ISO formats d as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DaysSince returns the number of whole calendar days from other to d.
// Both ends are pinned to UTC midnight, so DST transitions cannot skew the count.
func (d Date) DaysSince(other Date) int {
	return int(d.Time(time.UTC).Sub(other.Time(time.UTC)).Hours()) / 24
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
