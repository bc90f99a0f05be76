package engine

import "time"

// OccurrenceIn returns the date on which a recurs in year.
// A February 29th anniversary is observed on February 28th in common years.
func OccurrenceIn(a Date, year int) Date {
	if a.Month == time.February && a.Day == 29 && !IsLeapYear(year) {
		return Date{Year: year, Month: time.February, Day: 28}
	}
	return Date{Year: year, Month: a.Month, Day: a.Day}
}

// NextOccurrence returns the first occurrence of a on or after today.
func NextOccurrence(a Date, today Date) Date {
	candidate := OccurrenceIn(a, today.Year)
	if candidate.Before(today) {
		candidate = OccurrenceIn(a, today.Year+1)
	}
	return candidate
}

// DaysUntilNext returns the whole days from today to the next occurrence of a.
// It is 0 when the anniversary falls on today and never exceeds 366.
func DaysUntilNext(a Date, today Date) int {
	return NextOccurrence(a, today).DaysSince(today)
}

// CurrentAge returns the completed years between a and today.
// The year's increment counts from the observed occurrence, so a Feb 29th
// anniversary ages on Feb 28th in common years. Origins after today yield 0.
func CurrentAge(a Date, today Date) int {
	age := today.Year - a.Year
	if today.Before(OccurrenceIn(a, today.Year)) {
		age--
	}
	return max(age, 0)
}

// TurningAge returns the age celebrated on the next occurrence:
// the age just reached when that occurrence is today, otherwise the one after.
// An origin that has not happened yet is its own next occurrence, at age 0.
func TurningAge(a Date, today Date) int {
	return max(NextOccurrence(a, today).Year-a.Year, 0)
}
