package rollup

import (
	"fmt"
	"time"
)

// DateType is the time granularity of an aggregate.
type DateType string

const (
	Week  DateType = "week"
	Month DateType = "month"
	Year  DateType = "year"
)

// DateTypes lists the granularities in output order.
var DateTypes = []DateType{Week, Month, Year}

// ParseDateType validates a granularity name.
func ParseDateType(s string) (DateType, error) {
	switch DateType(s) {
	case Week, Month, Year:
		return DateType(s), nil
	}
	return "", fmt.Errorf("unknown date type %q (want week, month or year)", s)
}

// Epoch is the origin of the week tiling. 1900-01-01 is a Monday, so weeks
// run Monday through Sunday.
var Epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// civilDate drops the time of day and keeps the wall-clock date of t.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysSinceEpoch counts calendar-date boundaries between Epoch and t.
func DaysSinceEpoch(t time.Time) int64 {
	return (civilDate(t).Unix() - Epoch.Unix()) / secondsPerDay
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// WeekEnd returns the Friday of the Monday-based week containing t.
func WeekEnd(t time.Time) time.Time {
	weeks := floorDiv(DaysSinceEpoch(t), 7)
	return Epoch.AddDate(0, 0, int(weeks*7+4))
}

// MonthEnd returns the last calendar day of t's month.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// YearEnd returns December 31 of t's year.
func YearEnd(t time.Time) time.Time {
	return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd dispatches on the granularity.
func PeriodEnd(dt DateType, t time.Time) time.Time {
	switch dt {
	case Week:
		return WeekEnd(t)
	case Month:
		return MonthEnd(t)
	default:
		return YearEnd(t)
	}
}
