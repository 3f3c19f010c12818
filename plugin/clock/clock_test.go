package clock

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeValue_Range(t *testing.T) {
	tests := []struct {
		name    string
		h, m, s int
		wantErr bool
	}{
		{"midnight", 0, 0, 0, false},
		{"last second", 23, 59, 59, false},
		{"hour 24", 24, 0, 0, true},
		{"negative hour", -1, 0, 0, true},
		{"minute 60", 12, 60, 0, true},
		{"second 60", 12, 0, 60, true},
		{"negative second", 12, 0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tv, err := NewTimeValue(tt.h, tt.m, tt.s)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.h, tv.Hours())
			assert.Equal(t, tt.m, tv.Minutes())
			assert.Equal(t, tt.s, tv.Seconds())
		})
	}
}

func TestTimeValue_WithDoesNotMutate(t *testing.T) {
	orig := MustTimeValue(10, 10, 30)

	next, err := orig.With(FieldMinutes, 45)
	require.NoError(t, err)
	assert.Equal(t, "10:45:30", next.String())
	assert.Equal(t, "10:10:30", orig.String())

	_, err = orig.With(FieldHours, 24)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = orig.With(Field("days"), 1)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFromTime(t *testing.T) {
	tv := FromTime(time.Date(2026, 10, 17, 21, 4, 9, 999, time.UTC))
	assert.Equal(t, "21:04:09", tv.String())
}

func TestParseTimeValue(t *testing.T) {
	tv, err := ParseTimeValue("07:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", tv.String())

	tv, err = ParseTimeValue(" 23:59:58 ")
	require.NoError(t, err)
	assert.Equal(t, "23:59:58", tv.String())

	for _, bad := range []string{"", "7", "1:2:3:4", "aa:bb"} {
		_, err := ParseTimeValue(bad)
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
	_, err = ParseTimeValue("25:00")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("Hour")
	require.NoError(t, err)
	assert.Equal(t, FieldHours, f)
	assert.Equal(t, 23, f.Max())

	f, err = ParseField("s")
	require.NoError(t, err)
	assert.Equal(t, FieldSeconds, f)
	assert.Equal(t, 59, f.Max())

	_, err = ParseField("millis")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestHandAngles_TenTenThirty(t *testing.T) {
	a := HandAngles(MustTimeValue(10, 10, 30))
	assert.InDelta(t, 305.0, a.Hour, 1e-9)
	assert.InDelta(t, 63.0, a.Minute, 1e-9)
	assert.InDelta(t, 180.0, a.Second, 1e-9)
}

func TestHandAngles_AfternoonFoldsOntoDial(t *testing.T) {
	morning := HandAngles(MustTimeValue(3, 0, 0))
	afternoon := HandAngles(MustTimeValue(15, 0, 0))
	assert.Equal(t, morning, afternoon)
	assert.InDelta(t, 90.0, afternoon.Hour, 1e-9)
}

func TestHandAngles_BoundsForEveryValue(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			for s := 0; s < 60; s += 7 {
				a := HandAngles(MustTimeValue(h, m, s))
				if a.Second < 0 || a.Second >= 360 {
					t.Fatalf("second angle %v out of bounds at %02d:%02d:%02d", a.Second, h, m, s)
				}
				if a.Minute < 0 || a.Minute >= 360.6 {
					t.Fatalf("minute angle %v out of bounds at %02d:%02d:%02d", a.Minute, h, m, s)
				}
				if a.Hour < 0 || a.Hour >= 360.5 {
					t.Fatalf("hour angle %v out of bounds at %02d:%02d:%02d", a.Hour, h, m, s)
				}
			}
		}
	}
}

func TestLookupStyle(t *testing.T) {
	s, err := LookupStyle("dark")
	require.NoError(t, err)
	assert.Equal(t, "#38bdf8", s.SecondHandColor)

	s, err = LookupStyle("light")
	require.NoError(t, err)
	assert.Equal(t, StyleSwiss, s.Name)
	assert.Equal(t, StyleFor(false), s)

	_, err = LookupStyle("neon")
	assert.ErrorIs(t, err, ErrUnknownStyle)
}

func TestTimeValue_JSON(t *testing.T) {
	data, err := json.Marshal(MustTimeValue(9, 5, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hours":9,"minutes":5,"seconds":0}`, string(data))

	var tv TimeValue
	err = json.Unmarshal([]byte(`{"hours":25,"minutes":0,"seconds":0}`), &tv)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
