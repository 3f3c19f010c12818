package aitime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleResolver_Phrases(t *testing.T) {
	r := NewRuleResolver()

	tests := []struct {
		name  string
		input string
		want  string // "HH:MM:SS", empty for no time found
	}{
		{"digital", "23:15", "23:15:00"},
		{"digital with seconds", "23:15:30", "23:15:30"},
		{"digital dot", "It's 3.15.", "03:15:00"},
		{"digital pm", "7:45pm", "19:45:00"},
		{"digital am spaced", "set the clock to 6:30 am", "06:30:00"},
		{"twelve am", "12am", "00:00:00"},
		{"twelve pm", "12 p.m.", "12:00:00"},
		{"bare hour pm", "10 pm", "22:00:00"},
		{"midnight", "midnight", "00:00:00"},
		{"noon", "Noon", "12:00:00"},
		{"twelve noon", "12 noon", "12:00:00"},
		{"o'clock", "ten o'clock", "10:00:00"},
		{"oclock digits", "4 oclock", "04:00:00"},
		{"quarter past", "quarter past ten", "10:15:00"},
		{"a quarter past", "a quarter past ten", "10:15:00"},
		{"quarter to", "quarter to six", "05:45:00"},
		{"quarter to midnight", "quarter to midnight", "23:45:00"},
		{"half past", "half past seven", "07:30:00"},
		{"half past evening", "half past seven in the evening", "19:30:00"},
		{"minutes to", "twenty to six", "05:40:00"},
		{"minutes past with unit", "5 minutes past 3", "03:05:00"},
		{"compound minutes", "twenty five past eleven", "11:25:00"},
		{"spoken pair", "ten thirty", "10:30:00"},
		{"oh minutes", "seven oh five", "07:05:00"},
		{"spoken pair morning", "six fifteen in the morning", "06:15:00"},
		{"hyphenated", "twenty-three fifteen", "23:15:00"},
		{"british half", "half seven", "07:30:00"},
		{"at prefix", "at 9", "09:00:00"},
		{"no time", "what a lovely day", ""},
		{"empty", "   ", ""},
		{"hour out of range", "25:00", ""},
		{"minutes out of range", "7:75", ""},
		{"pm out of range", "13 pm", ""},
		{"half to", "half to five", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			tv, err := got.TimeValue()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tv.String())
		})
	}
}

func TestRuleResolver_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRuleResolver().Resolve(ctx, "noon")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizePhrase(t *testing.T) {
	assert.Equal(t, "quarter past ten", normalizePhrase("  Set the time to   Quarter past TEN! "))
	assert.Equal(t, "ten o'clock", normalizePhrase("it’s ten o’clock"))
	assert.Equal(t, normalizePhrase("At noon."), normalizePhrase("noon"))
}
