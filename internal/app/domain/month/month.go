// Package month handles YYYY-MM calendar month identifiers and their
// arithmetic. All payout tables key on these strings, so parsing and
// subtraction must roll over year boundaries correctly.
package month

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Month is a calendar month identifier in YYYY-MM form.
type Month struct {
	Year int
	Mon  int // 1..12
}

// Parse validates and decodes a YYYY-MM identifier.
func Parse(s string) (Month, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	year, _ := strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if mon < 1 || mon > 12 {
		return Month{}, fmt.Errorf("invalid month %q: month part out of range", s)
	}
	return Month{Year: year, Mon: mon}, nil
}

// Valid reports whether s is a well-formed month identifier.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String renders the canonical YYYY-MM form.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Mon)
}

// Sub returns the month n calendar months earlier.
func (m Month) Sub(n int) Month {
	return m.Add(-n)
}

// Add returns the month n calendar months later (n may be negative).
func (m Month) Add(n int) Month {
	total := m.Year*12 + (m.Mon - 1) + n
	return Month{Year: total / 12, Mon: total%12 + 1}
}

// Previous returns the calendar month before m.
func (m Month) Previous() Month { return m.Sub(1) }

// Of returns the month containing t in t's location.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Mon: int(t.Month())}
}

// Current returns the month containing now in UTC.
func Current() Month {
	return Of(time.Now().UTC())
}
