package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by every dated entity.
const DateLayout = "2006-01-02"

// ParseClock converts an "HH:MM" wall clock string into minutes after midnight.
// "24:00" is accepted as the end of day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// Interval is a half-open [Start, End) range in minutes after midnight.
type Interval struct {
	Start int
	End   int
}

// NewInterval parses start and end clocks into an Interval. End must be after start.
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps applies half-open overlap arithmetic: touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// OnTheHour reports whether both ends fall on a whole hour.
func (i Interval) OnTheHour() bool {
	return i.Start%60 == 0 && i.End%60 == 0
}

// HourStarts lists the start clock of every hourly slot the interval touches.
func (i Interval) HourStarts() []string {
	var out []string
	for h := i.Start / 60; h*60 < i.End; h++ {
		out = append(out, FormatClock(h*60))
	}
	return out
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) overlap. Malformed
// clocks never overlap.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	a, err := NewInterval(aStart, aEnd)
	if err != nil {
		return false
	}
	b, err := NewInterval(bStart, bEnd)
	if err != nil {
		return false
	}
	return a.Overlaps(b)
}

// TimeWindow identifies an occupied [StartTime, EndTime) window on a court and date.
type TimeWindow struct {
	ID        string
	CourtID   string
	Date      string
	StartTime string
	EndTime   string
}

// HasTimeConflict reports whether candidate overlaps any existing window on the
// same court and date. Windows sharing the candidate's ID are ignored so an
// entity never conflicts with its own previous version.
func HasTimeConflict(candidate TimeWindow, existing []TimeWindow) bool {
	for _, w := range existing {
		if candidate.ID != "" && w.ID == candidate.ID {
			continue
		}
		if w.CourtID != candidate.CourtID || w.Date != candidate.Date {
			continue
		}
		if Overlaps(candidate.StartTime, candidate.EndTime, w.StartTime, w.EndTime) {
			return true
		}
	}
	return false
}

// Window returns the clinic's occupied window.
func (c Clinic) Window() TimeWindow {
	return TimeWindow{ID: c.ID, CourtID: c.CourtID, Date: c.Date, StartTime: c.StartTime, EndTime: c.EndTime}
}

// Window returns the session's occupied window.
func (p PrivateSession) Window() TimeWindow {
	return TimeWindow{ID: p.ID, CourtID: p.CourtID, Date: p.Date, StartTime: p.StartTime, EndTime: p.EndTime}
}
