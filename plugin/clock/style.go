package clock

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStyle is returned for a style name that is not defined.
var ErrUnknownStyle = errors.New("unknown clock style")

// Style is the read-only visual configuration of the dial.
type Style struct {
	Name            string `json:"name"`
	FaceColor       string `json:"face_color"`
	MarkerColor     string `json:"marker_color"`
	HourHandColor   string `json:"hour_hand_color"`
	MinuteHandColor string `json:"minute_hand_color"`
	SecondHandColor string `json:"second_hand_color"`
	HasSecondHand   bool   `json:"has_second_hand"`
}

const (
	StyleSwiss = "swiss"
	StyleDark  = "dark"
)

var styles = map[string]Style{
	StyleSwiss: {
		Name:            StyleSwiss,
		FaceColor:       "#ffffff",
		MarkerColor:     "#1e293b",
		HourHandColor:   "#1e293b",
		MinuteHandColor: "#1e293b",
		SecondHandColor: "#ef4444",
		HasSecondHand:   true,
	},
	StyleDark: {
		Name:            StyleDark,
		FaceColor:       "#1e293b",
		MarkerColor:     "#cbd5e1",
		HourHandColor:   "#e2e8f0",
		MinuteHandColor: "#e2e8f0",
		SecondHandColor: "#38bdf8",
		HasSecondHand:   true,
	},
}

// LookupStyle returns the named style. "light" is accepted for swiss.
func LookupStyle(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "light" || name == "" {
		name = StyleSwiss
	}
	s, ok := styles[name]
	if !ok {
		return Style{}, fmt.Errorf("%w %q", ErrUnknownStyle, name)
	}
	return s, nil
}

// StyleFor picks the style from the dark flag.
func StyleFor(dark bool) Style {
	if dark {
		return styles[StyleDark]
	}
	return styles[StyleSwiss]
}
