package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Weekday is a day a plan can be scheduled on. Values are ISO ordered,
// Monday first.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// WeekdayOf maps a time.Weekday to a Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	if d == time.Sunday {
		return Sunday
	}
	return Weekday(d)
}

// String returns the upper-case English name, e.g. "MONDAY".
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// Short returns a three letter label, e.g. "Mon".
func (d Weekday) Short() string {
	name, ok := weekdayNames[d]
	if !ok {
		return "?"
	}
	return name[:1] + strings.ToLower(name[1:3])
}

// Title returns the capitalized English name, e.g. "Monday".
func (d Weekday) Title() string {
	name, ok := weekdayNames[d]
	if !ok {
		return d.String()
	}
	return name[:1] + strings.ToLower(name[1:])
}

// ParseWeekday accepts full or three letter English names in any case.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for d, name := range weekdayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// MarshalJSON encodes the weekday by name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a weekday name.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeDays sorts and de-duplicates a weekday set.
func NormalizeDays(days []Weekday) []Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

// DescribeDays joins the day names, e.g. "Monday, Wednesday".
func DescribeDays(days []Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range NormalizeDays(days) {
		names = append(names, d.Title())
	}
	return strings.Join(names, ", ")
}
