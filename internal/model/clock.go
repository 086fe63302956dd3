package model

import (
	"fmt"
	"time"
)

// en-GB toLocaleDateString / toLocaleTimeString layouts.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)

// LocalDate renders t as DD/MM/YYYY in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(DateLayout)
}

// LocalTime renders t as HH:MM:SS in loc.
func LocalTime(t time.Time, loc *time.Location) string {
	return t.In(locOrUTC(loc)).Format(TimeLayout)
}

// ParseLocal joins a DD/MM/YYYY date and HH:MM:SS time back into an instant.
func ParseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, locOrUTC(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local timestamp %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
