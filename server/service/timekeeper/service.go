// Package timekeeper owns the displayed clock time and how it is shown.
//
// Key features:
//   - REALTIME/MANUAL state machine with a single owned ticker
//   - INTERACTIVE/FOCUSED presentation modes, decoupled from the time
//   - Natural-language time setting through a single-flight resolver
//   - Stale resolver results (submitted before a resume) are discarded
//
// The Service is the only entry point for upper layers (HTTP API, CLI).
package timekeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hrygo/clockface/plugin/ai/aitime"
	"github.com/hrygo/clockface/plugin/clock"
)

// ErrControlsHidden is returned for editing operations while FOCUSED.
var ErrControlsHidden = errors.New("editing controls are hidden in focused mode")

// Config configures a Service.
type Config struct {
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration
	// Location is the zone REALTIME follows. Nil keeps the clock's own zone.
	Location *time.Location
	// StartFrozen starts in MANUAL at clock.DefaultTime.
	StartFrozen bool
	// Style is a style name accepted by clock.LookupStyle.
	Style string
	// ResolveTimeout bounds a single resolution.
	ResolveTimeout time.Duration
}

// Snapshot is everything a renderer needs to draw the clock.
type Snapshot struct {
	Time      clock.TimeValue  `json:"time"`
	Display   string           `json:"display"`
	Angles    clock.Angles     `json:"angles"`
	RealTime  bool             `json:"real_time"`
	RunMode   RunMode          `json:"run_mode"`
	Mode      PresentationMode `json:"mode"`
	Controls  []Control        `json:"controls"`
	Style     clock.Style      `json:"style"`
	Resolving bool             `json:"resolving"`
}

// Resolution is the outcome of a phrase as applied to the clock.
type Resolution struct {
	aitime.Outcome
	// Applied is false when nothing was found or the result was stale.
	Applied bool `json:"applied"`
	// Stale is true when the result was discarded after a resume.
	Stale bool `json:"stale"`
}

// Service coordinates the time machine, the presenter, the clock style and
// the resolver.
type Service struct {
	machine   *Machine
	presenter *Presenter
	requester *aitime.Requester

	styleMu sync.RWMutex
	style   clock.Style

	events    *eventBus[Snapshot]
	forwarder sync.WaitGroup

	// editMu makes the focus check and the edit it guards one step. Focus
	// changes and Close take it exclusively.
	editMu sync.RWMutex
	closed bool

	hooksMu         sync.RWMutex
	resolutionHooks []func(Resolution)
}

// NewService creates a Service and starts its clock.
func NewService(resolver aitime.Resolver, cfg Config) (*Service, error) {
	style, err := clock.LookupStyle(cfg.Style)
	if err != nil {
		return nil, err
	}

	opts := []MachineOption{WithTickInterval(cfg.TickInterval), WithLocation(cfg.Location)}
	if cfg.Clock != nil {
		opts = append(opts, WithClock(cfg.Clock))
	}
	if cfg.StartFrozen {
		opts = append(opts, StartFrozen(clock.DefaultTime))
	}

	s := &Service{
		machine:   NewMachine(opts...),
		presenter: NewPresenter(),
		requester: aitime.NewRequester(resolver, cfg.ResolveTimeout),
		style:     style,
		events:    newEventBus[Snapshot](),
	}

	states, _ := s.machine.Subscribe()
	s.forwarder.Add(1)
	go func() {
		defer s.forwarder.Done()
		for st := range states {
			s.events.publish(s.snapshotFrom(st))
		}
	}()

	return s, nil
}

// Snapshot returns the current view of the clock.
func (s *Service) Snapshot() Snapshot {
	return s.snapshotFrom(s.machine.State())
}

// SetField sets one time field (slider edit).
func (s *Service) SetField(field clock.Field, value int) (Snapshot, error) {
	return s.transition(func() (State, error) { return s.machine.SetField(field, value) })
}

// SetTime replaces the whole time.
func (s *Service) SetTime(tv clock.TimeValue) (Snapshot, error) {
	return s.transition(func() (State, error) { return s.machine.Set(tv) })
}

// Resume returns to REALTIME.
func (s *Service) Resume() (Snapshot, error) {
	return s.transition(s.machine.Resume)
}

// Pause freezes the displayed time.
func (s *Service) Pause() (Snapshot, error) {
	return s.transition(s.machine.Pause)
}

// TogglePause is the play/pause button.
func (s *Service) TogglePause() (Snapshot, error) {
	return s.transition(s.machine.TogglePause)
}

// SubmitPhrase starts resolving phrase in the background and returns its
// resolve ID. A found time is applied unless a resume happened in between.
func (s *Service) SubmitPhrase(ctx context.Context, phrase string) (string, error) {
	return s.submit(ctx, phrase, nil)
}

// ResolvePhrase resolves phrase and waits for the outcome to be applied. If
// ctx ends first, the resolution keeps running and is applied on completion.
func (s *Service) ResolvePhrase(ctx context.Context, phrase string) (Resolution, Snapshot, error) {
	ch := make(chan Resolution, 1)
	if _, err := s.submit(ctx, phrase, func(r Resolution) { ch <- r }); err != nil {
		return Resolution{}, s.Snapshot(), err
	}

	select {
	case r := <-ch:
		return r, s.Snapshot(), nil
	case <-ctx.Done():
		return Resolution{}, s.Snapshot(), ctx.Err()
	}
}

// EnterFocus switches to FOCUSED. The time is untouched.
func (s *Service) EnterFocus() Snapshot {
	return s.focus(s.presenter.Enter)
}

// ExitFocus switches to INTERACTIVE.
func (s *Service) ExitFocus() Snapshot {
	return s.focus(s.presenter.Exit)
}

// ToggleFocus flips the presentation mode.
func (s *Service) ToggleFocus() Snapshot {
	return s.focus(s.presenter.Toggle)
}

// Cancel is the escape gesture.
func (s *Service) Cancel() Snapshot {
	return s.focus(s.presenter.Cancel)
}

// ToggleStyle switches between the light and dark styles.
func (s *Service) ToggleStyle() (Snapshot, error) {
	err := s.edit(func() error {
		s.styleMu.Lock()
		s.style = clock.StyleFor(s.style.Name != clock.StyleDark)
		s.styleMu.Unlock()
		return nil
	})
	if err != nil {
		return s.Snapshot(), err
	}
	return s.publish(), nil
}

// SetStyle selects a style by name.
func (s *Service) SetStyle(name string) (Snapshot, error) {
	err := s.edit(func() error {
		style, err := clock.LookupStyle(name)
		if err != nil {
			return err
		}
		s.styleMu.Lock()
		s.style = style
		s.styleMu.Unlock()
		return nil
	})
	if err != nil {
		return s.Snapshot(), err
	}
	return s.publish(), nil
}

// OnResolution registers fn to be called with every completed resolution,
// synchronous or not, after it has been applied or discarded.
func (s *Service) OnResolution(fn func(Resolution)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.resolutionHooks = append(s.resolutionHooks, fn)
}

// Subscribe streams a snapshot after every change. The channel is closed on
// Close or when the returned func is called.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	return s.events.subscribe()
}

// Machine exposes the underlying state machine.
func (s *Service) Machine() *Machine {
	return s.machine
}

// Close stops the clock and waits for in-flight resolutions to finish. Later
// edits and submissions return ErrClosed.
func (s *Service) Close() {
	s.editMu.Lock()
	if s.closed {
		s.editMu.Unlock()
		return
	}
	s.closed = true
	s.editMu.Unlock()

	s.machine.Close()
	s.requester.Wait()
	s.forwarder.Wait()
	s.events.close()
}

func (s *Service) submit(ctx context.Context, phrase string, notify func(Resolution)) (string, error) {
	var id string
	err := s.edit(func() error {
		return s.machine.AtGeneration(func(generation uint64) error {
			var err error
			id, err = s.requester.Submit(ctx, phrase, func(out aitime.Outcome) {
				r := s.apply(generation, out)
				s.publish()
				s.notifyResolution(r)
				if notify != nil {
					notify(r)
				}
			})
			return err
		})
	})
	if err != nil {
		return "", err
	}
	s.publish()
	return id, nil
}

func (s *Service) notifyResolution(r Resolution) {
	s.hooksMu.RLock()
	hooks := s.resolutionHooks
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(r)
	}
}

// apply writes a found time to the machine unless it is stale.
func (s *Service) apply(generation uint64, out aitime.Outcome) Resolution {
	r := Resolution{Outcome: out}
	if !out.Found {
		return r
	}

	_, err := s.machine.ApplyResolved(generation, out.Time)
	switch {
	case err == nil:
		r.Applied = true
	case errors.Is(err, ErrStaleResult):
		r.Stale = true
		slog.Info("discarding stale resolved time",
			"resolve_id", out.ID,
			"time", out.Time.String(),
			"submitted_generation", generation)
	default:
		slog.Warn("failed to apply resolved time",
			"resolve_id", out.ID,
			"error", err)
	}
	return r
}

func (s *Service) transition(fn func() (State, error)) (Snapshot, error) {
	var st State
	err := s.edit(func() error {
		var err error
		st, err = fn()
		return err
	})
	if err != nil {
		return s.Snapshot(), err
	}
	return s.snapshotFrom(st), nil
}

// edit runs fn only while editing controls are visible. The mode cannot change
// until fn returns.
func (s *Service) edit(fn func() error) error {
	s.editMu.RLock()
	defer s.editMu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if !s.presenter.CanEdit() {
		return fmt.Errorf("%w: exit focused mode first", ErrControlsHidden)
	}
	return fn()
}

// focus changes the presentation mode once no edit is in progress.
func (s *Service) focus(change func() PresentationMode) Snapshot {
	s.editMu.Lock()
	change()
	s.editMu.Unlock()
	return s.publish()
}

// publish notifies subscribers of a change outside the machine.
func (s *Service) publish() Snapshot {
	snap := s.Snapshot()
	s.events.publish(snap)
	return snap
}

func (s *Service) snapshotFrom(st State) Snapshot {
	s.styleMu.RLock()
	style := s.style
	s.styleMu.RUnlock()

	return Snapshot{
		Time:      st.Time,
		Display:   st.Time.String(),
		Angles:    clock.HandAngles(st.Time),
		RealTime:  st.RealTime,
		RunMode:   st.Mode(),
		Mode:      s.presenter.Mode(),
		Controls:  s.presenter.Controls(),
		Style:     style,
		Resolving: s.requester.Busy(),
	}
}
