// Package aitime resolves free-text time descriptions ("quarter past ten",
// "7:45pm", "midnight") into a time of day for the clock.
package aitime

import (
	"context"
	"errors"

	"github.com/hrygo/clockface/plugin/clock"
)

var (
	// ErrEmptyPhrase is returned for empty or whitespace-only input. The resolver
	// is never called for such input.
	ErrEmptyPhrase = errors.New("time phrase is empty")
	// ErrPhraseTooLong is returned for input longer than timeout.MaxPhraseLength.
	ErrPhraseTooLong = errors.New("time phrase is too long")
	// ErrBusy is returned when a resolution is already in flight.
	ErrBusy = errors.New("time resolution already in progress")
)

// Resolver turns a phrase into a candidate time of day.
// Consumers: Requester, cmd/clockface resolve
type Resolver interface {
	// Resolve returns (nil, nil) when the phrase does not name a time.
	// The candidate is not validated; callers must check it.
	Resolve(ctx context.Context, phrase string) (*Candidate, error)
}

// Candidate is a resolver answer in its wire shape.
type Candidate struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// TimeValue validates the candidate against the 24-hour ranges.
func (c Candidate) TimeValue() (clock.TimeValue, error) {
	return clock.NewTimeValue(c.Hours, c.Minutes, c.Seconds)
}

// Outcome is the result of one resolution as seen by the clock. Failures of any
// kind are reported as Found == false.
type Outcome struct {
	ID     string          `json:"id"`
	Phrase string          `json:"phrase"`
	Found  bool            `json:"found"`
	Time   clock.TimeValue `json:"time"`
}
