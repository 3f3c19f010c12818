// Package clock holds the displayed time value, the hand angle mapping and the
// static dial styles.
package clock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrOutOfRange is returned when a field is outside its 24-hour range.
	ErrOutOfRange = errors.New("time value out of range")
	// ErrUnknownField is returned for a field name other than hours, minutes or seconds.
	ErrUnknownField = errors.New("unknown time field")
	// ErrInvalidFormat is returned by ParseTimeValue for malformed input.
	ErrInvalidFormat = errors.New("invalid time")
)

// Field names one of the three TimeValue components.
type Field string

const (
	FieldHours   Field = "hours"
	FieldMinutes Field = "minutes"
	FieldSeconds Field = "seconds"
)

// ParseField accepts the field name and its common short forms.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hours", "hour", "h":
		return FieldHours, nil
	case "minutes", "minute", "m":
		return FieldMinutes, nil
	case "seconds", "second", "s":
		return FieldSeconds, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Max returns the largest value the field can hold.
func (f Field) Max() int {
	if f == FieldHours {
		return 23
	}
	return 59
}

// TimeValue is a time of day in 24-hour form. The zero value is midnight.
// Fields are unexported so a TimeValue is always within range.
type TimeValue struct {
	hours   int
	minutes int
	seconds int
}

// DefaultTime is the classic showroom setting used when a session starts frozen.
var DefaultTime = TimeValue{hours: 10, minutes: 10, seconds: 30}

// NewTimeValue validates the components and returns a TimeValue.
func NewTimeValue(hours, minutes, seconds int) (TimeValue, error) {
	if hours < 0 || hours > 23 {
		return TimeValue{}, fmt.Errorf("%w: hours=%d", ErrOutOfRange, hours)
	}
	if minutes < 0 || minutes > 59 {
		return TimeValue{}, fmt.Errorf("%w: minutes=%d", ErrOutOfRange, minutes)
	}
	if seconds < 0 || seconds > 59 {
		return TimeValue{}, fmt.Errorf("%w: seconds=%d", ErrOutOfRange, seconds)
	}
	return TimeValue{hours: hours, minutes: minutes, seconds: seconds}, nil
}

// MustTimeValue is NewTimeValue for constants; it panics on invalid input.
func MustTimeValue(hours, minutes, seconds int) TimeValue {
	tv, err := NewTimeValue(hours, minutes, seconds)
	if err != nil {
		panic(err)
	}
	return tv
}

// FromTime samples the wall-clock hour, minute and second of t.
func FromTime(t time.Time) TimeValue {
	return TimeValue{hours: t.Hour(), minutes: t.Minute(), seconds: t.Second()}
}

// ParseTimeValue parses "HH:MM" or "HH:MM:SS".
func ParseTimeValue(s string) (TimeValue, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeValue{}, fmt.Errorf("%w %q: want HH:MM or HH:MM:SS", ErrInvalidFormat, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return TimeValue{}, fmt.Errorf("%w %q: %v", ErrInvalidFormat, s, err)
		}
		nums[i] = n
	}
	return NewTimeValue(nums[0], nums[1], nums[2])
}

func (t TimeValue) Hours() int   { return t.hours }
func (t TimeValue) Minutes() int { return t.minutes }
func (t TimeValue) Seconds() int { return t.seconds }

// Get returns a single component.
func (t TimeValue) Get(f Field) (int, error) {
	switch f {
	case FieldHours:
		return t.hours, nil
	case FieldMinutes:
		return t.minutes, nil
	case FieldSeconds:
		return t.seconds, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
}

// With returns a copy with one field replaced. The receiver is unchanged.
func (t TimeValue) With(f Field, v int) (TimeValue, error) {
	h, m, s := t.hours, t.minutes, t.seconds
	switch f {
	case FieldHours:
		h = v
	case FieldMinutes:
		m = v
	case FieldSeconds:
		s = v
	default:
		return t, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return NewTimeValue(h, m, s)
}

// String formats the value as HH:MM:SS.
func (t TimeValue) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.hours, t.minutes, t.seconds)
}

type wireTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (t TimeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTime{Hours: t.hours, Minutes: t.minutes, Seconds: t.seconds})
}

// UnmarshalJSON rejects out-of-range components.
func (t *TimeValue) UnmarshalJSON(data []byte) error {
	var w wireTime
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tv, err := NewTimeValue(w.Hours, w.Minutes, w.Seconds)
	if err != nil {
		return err
	}
	*t = tv
	return nil
}
