package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate      = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidClock     = errors.New("time must be in HH:MM or HH:MM:SS format between 00:00 and 24:00")
	ErrInvalidTimeRange = errors.New("time_start must be before time_end")
	ErrInvalidStatus    = errors.New("status must be available or unavailable")
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time zone.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) String() string { return d.t.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v.Date())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// scanText accepts plain dates and timestamps some drivers return for DATE columns.
func (d *Date) scanText(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const (
	secondsPerDay = 24 * 60 * 60
	// EndOfDay is 24:00, valid only as the end of a range.
	EndOfDay Clock = secondsPerDay
)

// Clock is a time of day stored as seconds since midnight.
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*3600 + minute*60)
}

func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	var fields [3]int
	for i, p := range parts {
		if i == 2 {
			// drivers may append fractional seconds
			p, _, _ = strings.Cut(p, ".")
		}
		if len(p) != 2 || !isDigit(p[0]) || !isDigit(p[1]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		fields[i] = n
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if h > 24 || m > 59 || sec > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	c := Clock(h*3600 + m*60 + sec)
	if c > EndOfDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (c Clock) split() (int, int, int) {
	n := int(c)
	return n / 3600, n % 3600 / 60, n % 60
}

// String formats as HH:MM, or HH:MM:SS when seconds are set.
func (c Clock) String() string {
	h, m, s := c.split()
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(data))
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value always writes HH:MM:SS so that text comparison orders correctly.
func (c Clock) Value() (driver.Value, error) {
	h, m, s := c.split()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c = Clock(v.Hour()*3600 + v.Minute()*60 + v.Second())
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}

// TimeRange is a half-open interval [start, end) with start < end.
type TimeRange struct {
	start Clock
	end   Clock
}

func NewTimeRange(start, end Clock) (TimeRange, error) {
	if start >= end {
		return TimeRange{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	return TimeRange{start: start, end: end}, nil
}

func (r TimeRange) Start() Clock { return r.start }

func (r TimeRange) End() Clock { return r.end }

func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.end-r.start) * time.Second
}

// Overlaps reports whether the two intervals share any instant. Back-to-back
// ranges such as 10:00-11:00 and 11:00-12:00 do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.start < o.end && o.start < r.end
}

func (r TimeRange) String() string {
	return r.start.String() + "-" + r.end.String()
}

type CourtStatus string

const (
	CourtAvailable   CourtStatus = "available"
	CourtUnavailable CourtStatus = "unavailable"
)

func (s CourtStatus) Valid() bool {
	return s == CourtAvailable || s == CourtUnavailable
}

// ParseCourtStatus maps an empty value to CourtAvailable.
func ParseCourtStatus(s string) (CourtStatus, error) {
	if s == "" {
		return CourtAvailable, nil
	}
	st := CourtStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
