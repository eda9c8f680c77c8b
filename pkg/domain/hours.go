package domain

import (
	"fmt"
	"strings"
	"time"
)

// OperatingHours maps each weekday to its opening window. Weekdays without an
// entry are closed.
type OperatingHours map[time.Weekday]Interval

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// DefaultOperatingHours opens 07:00-22:00 on weekdays and 08:00-20:00 on weekends.
func DefaultOperatingHours() OperatingHours {
	hours := OperatingHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = Interval{Start: 7 * 60, End: 22 * 60}
	}
	hours[time.Saturday] = Interval{Start: 8 * 60, End: 20 * 60}
	hours[time.Sunday] = Interval{Start: 8 * 60, End: 20 * 60}
	return hours
}

// ParseOperatingHours parses a spec such as "mon-fri=07:00-22:00;sat-sun=08:00-20:00".
// Day ranges wrap across the week ("fri-mon"). Later entries override earlier ones.
// Windows must open and close on the hour since slots are keyed by hour.
func ParseOperatingHours(spec string) (OperatingHours, error) {
	hours := OperatingHours{}
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		days, window, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("operating hours %q: missing '='", part)
		}
		open, closing, ok := strings.Cut(strings.TrimSpace(window), "-")
		if !ok {
			return nil, fmt.Errorf("operating hours %q: window must be HH:MM-HH:MM", part)
		}
		interval, err := NewInterval(strings.TrimSpace(open), strings.TrimSpace(closing))
		if err != nil {
			return nil, fmt.Errorf("operating hours %q: %w", part, err)
		}
		if !interval.OnTheHour() {
			return nil, fmt.Errorf("operating hours %q: window must open and close on the hour", part)
		}
		weekdays, err := parseDayRange(strings.TrimSpace(days))
		if err != nil {
			return nil, fmt.Errorf("operating hours %q: %w", part, err)
		}
		for _, d := range weekdays {
			hours[d] = interval
		}
	}
	return hours, nil
}

func parseDayRange(s string) ([]time.Weekday, error) {
	from, to, isRange := strings.Cut(strings.ToLower(s), "-")
	start, ok := weekdayNames[from]
	if !ok {
		return nil, fmt.Errorf("unknown weekday %q", from)
	}
	if !isRange {
		return []time.Weekday{start}, nil
	}
	end, ok := weekdayNames[to]
	if !ok {
		return nil, fmt.Errorf("unknown weekday %q", to)
	}
	var out []time.Weekday
	for d := start; ; d = (d + 1) % 7 {
		out = append(out, d)
		if d == end {
			break
		}
	}
	return out, nil
}

// SlotStarts returns the hourly slot start clocks for the given date.
func (h OperatingHours) SlotStarts(date time.Time) []string {
	window, ok := h[date.Weekday()]
	if !ok {
		return nil
	}
	var out []string
	for m := window.Start; m+60 <= window.End; m += 60 {
		out = append(out, FormatClock(m))
	}
	return out
}
