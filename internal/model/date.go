package model

import (
	"strings"
	"time"
)

// dateLayout is the canonical date-only layout used for comparison and
// on-disk representation. Due-date comparisons are date-only; time-of-day
// is truncated before comparison.
const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component. It marshals as
// "YYYY-MM-DD" and compares by value.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate constructs a Date from a time.Time, truncating any time-of-day.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDate parses a date from either a bare "YYYY-MM-DD" string or an
// ISO-8601 timestamp with a date prefix, truncating any time-of-day. Upstream
// stores are inconsistent about carrying a time-of-day component; this
// always normalizes to date-only.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	if len(s) >= 10 {
		if t, err := time.Parse(dateLayout, s[:10]); err == nil {
			return Date{t: t, valid: true}, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t), true
	}
	return Date{}, false
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return !d.valid }

// Time returns the date as a UTC midnight time.Time, for interop with APIs
// that require one. Returns the zero time.Time when unset.
func (d Date) Time() time.Time { return d.t }

// Equal reports whether two dates denote the same calendar day. Two unset
// dates are not equal to each other under this method — callers that need
// "both absent" semantics (as the Matcher's date component does) check
// IsZero explicitly.
func (d Date) Equal(o Date) bool {
	return d.valid && o.valid && d.t.Equal(o.t)
}

// DiffDays returns the absolute difference in days between two dates. The
// result is only meaningful when both dates are set.
func (d Date) DiffDays(o Date) int {
	if !d.valid || !o.valid {
		return -1
	}
	diff := d.t.Sub(o.t)
	days := int(diff.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// String renders the date as "YYYY-MM-DD", or "" when unset.
func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.t.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, ok := ParseDate(s)
	if !ok {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}
