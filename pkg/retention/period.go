package retention

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the calendar unit of a retention period.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// DateLayout is the storage and display format of expiry dates.
const DateLayout = "2006-01-02"

// ParseUnit normalizes a unit name. Singular and plural forms are accepted.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "days":
		return UnitDays, nil
	case "week", "weeks":
		return UnitWeeks, nil
	case "month", "months":
		return UnitMonths, nil
	case "year", "years":
		return UnitYears, nil
	}
	return "", fmt.Errorf("unknown retention unit %q", s)
}

// Valid reports whether u is a normalized unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}

// ParsePeriod parses an "N unit" string such as "30 days" or "1 year".
func ParsePeriod(s string) (int, Unit, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("invalid retention period %q: expected \"<number> <unit>\"", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("invalid retention period %q: amount must be a positive integer", s)
	}
	unit, err := ParseUnit(fields[1])
	if err != nil {
		return 0, "", fmt.Errorf("invalid retention period %q: %w", s, err)
	}
	return n, unit, nil
}

// FormatPeriod renders a period in its canonical "N unit" form.
func FormatPeriod(period int, unit Unit) string {
	return fmt.Sprintf("%d %s", period, unit)
}

// CalculateExpireDate adds period units to the calendar day of start.
// Month and year arithmetic follows time.AddDate, so overflowing days
// normalize forward: 2024-02-29 plus one year is 2025-03-01.
func CalculateExpireDate(period int, unit Unit, start time.Time) time.Time {
	day := TruncateDate(start)
	switch unit {
	case UnitDays:
		return day.AddDate(0, 0, period)
	case UnitWeeks:
		return day.AddDate(0, 0, 7*period)
	case UnitMonths:
		return day.AddDate(0, period, 0)
	case UnitYears:
		return day.AddDate(period, 0, 0)
	}
	return day
}

// TruncateDate returns midnight UTC of t's calendar day in t's location.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
