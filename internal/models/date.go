// internal/models/date.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (*Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return &Date{Time: t}, nil
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) *Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Before reports whether d is strictly before other; nil dates never compare.
func (d *Date) Before(other *Date) bool {
	if d == nil || other == nil {
		return false
	}
	return d.Time.Before(other.Time)
}

// Equal treats two nil dates as equal.
func (d *Date) Equal(other *Date) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	return d.Time.Equal(other.Time)
}

// YearsSince returns the whole years between d and now.
func (d *Date) YearsSince(now time.Time) int {
	if d == nil {
		return 0
	}
	years := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		years--
	}
	return years
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		y, m, day := v.Date()
		*d = *NewDate(y, m, day)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}
