package timekeeper

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hrygo/clockface/plugin/clock"
	"github.com/hrygo/clockface/server/timezone"
)

// DefaultTickInterval is the REALTIME sampling period.
const DefaultTickInterval = time.Second

var (
	// ErrClosed is returned by transitions after Close.
	ErrClosed = errors.New("timekeeper is closed")
	// ErrStaleResult is returned by ApplyResolved when a resume happened after
	// the resolution was submitted.
	ErrStaleResult = errors.New("resolved time is stale")
)

// RunMode is the state of the time machine.
type RunMode string

const (
	// ModeRealtime follows the wall clock.
	ModeRealtime RunMode = "REALTIME"
	// ModeManual holds a user-set or resolved time.
	ModeManual RunMode = "MANUAL"
)

// State is an immutable snapshot of the machine.
type State struct {
	Time     clock.TimeValue `json:"time"`
	RealTime bool            `json:"real_time"`
	// Generation increases on every Resume.
	Generation uint64 `json:"generation"`
}

// Mode returns the run mode implied by the real-time flag.
func (s State) Mode() RunMode {
	if s.RealTime {
		return ModeRealtime
	}
	return ModeManual
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock sets the wall clock. Defaults to the real clock.
func WithClock(c clockwork.Clock) MachineOption {
	return func(m *Machine) { m.clock = c }
}

// WithTickInterval sets the REALTIME sampling period.
func WithTickInterval(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLocation sets the zone REALTIME follows. The default is the clock's own.
func WithLocation(loc *time.Location) MachineOption {
	return func(m *Machine) {
		m.location = loc
	}
}

// StartFrozen starts the machine in MANUAL holding tv instead of following the
// wall clock.
func StartFrozen(tv clock.TimeValue) MachineOption {
	return func(m *Machine) {
		m.frozen = true
		m.current = tv
	}
}

// tickerHandle is the owned REALTIME timer. Exactly one exists while REALTIME.
type tickerHandle struct {
	ticker clockwork.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// Machine owns the displayed time and the REALTIME/MANUAL flag.
//
// Transitions are serialized by transitionMu; field access by mu. The ticker
// goroutine only takes mu, so a transition may wait for it to exit while
// holding transitionMu. On return from any transition that leaves REALTIME, no
// ticker goroutine is running.
type Machine struct {
	clock    clockwork.Clock
	interval time.Duration
	location *time.Location
	frozen   bool

	transitionMu sync.Mutex

	mu         sync.Mutex
	current    clock.TimeValue
	realTime   bool
	generation uint64
	closed     bool
	ticker     *tickerHandle

	activeTickers atomic.Int32
	events        *eventBus[State]
}

// NewMachine creates a Machine in REALTIME, sampled immediately, unless
// StartFrozen is given.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		clock:    clockwork.NewRealClock(),
		interval: DefaultTickInterval,
		events:   newEventBus[State](),
	}
	for _, opt := range opts {
		opt(m)
	}

	if !m.frozen {
		m.realTime = true
		m.current = m.now()
		m.startTickerLocked()
	}
	return m
}

func (m *Machine) now() clock.TimeValue {
	return clock.FromTime(timezone.In(m.clock.Now(), m.location))
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Generation returns the current resume generation.
func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// AtGeneration calls fn with the current generation while no transition can
// run, so a resume cannot land between reading the generation and fn. fn must
// not call back into the machine.
func (m *Machine) AtGeneration(fn func(generation uint64) error) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	closed, generation := m.closed, m.generation
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return fn(generation)
}

// ActiveTickers reports how many ticker goroutines are running. It is 0 or 1.
func (m *Machine) ActiveTickers() int {
	return int(m.activeTickers.Load())
}

// SetField replaces one field of the displayed time and enters MANUAL.
func (m *Machine) SetField(f clock.Field, v int) (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return State{}, ErrClosed
	}
	tv, err := m.current.With(f, v)
	if err != nil {
		st := m.stateLocked()
		m.mu.Unlock()
		return st, fmt.Errorf("set %s: %w", f, err)
	}
	m.mu.Unlock()

	return m.freeze(tv, true)
}

// Set replaces the displayed time and enters MANUAL.
func (m *Machine) Set(tv clock.TimeValue) (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.freeze(tv, true)
}

// ApplyResolved applies a resolver result submitted at generation. Results
// from an older generation are discarded with ErrStaleResult.
func (m *Machine) ApplyResolved(generation uint64, tv clock.TimeValue) (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	if !m.closed && generation != m.generation {
		st := m.stateLocked()
		m.mu.Unlock()
		return st, ErrStaleResult
	}
	m.mu.Unlock()

	return m.freeze(tv, true)
}

// Pause enters MANUAL holding the currently displayed time.
func (m *Machine) Pause() (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.freeze(clock.TimeValue{}, false)
}

// Resume resynchronizes with the wall clock and enters REALTIME. Calling it
// while REALTIME resamples and keeps the running ticker.
func (m *Machine) Resume() (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.resume()
}

// TogglePause pauses in REALTIME and resumes in MANUAL.
func (m *Machine) TogglePause() (State, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	realTime := m.realTime
	m.mu.Unlock()

	if realTime {
		return m.freeze(clock.TimeValue{}, false)
	}
	return m.resume()
}

// Subscribe returns a channel of states published after every change. The
// channel is closed on Close or when the returned func is called.
func (m *Machine) Subscribe() (<-chan State, func()) {
	return m.events.subscribe()
}

// Close releases the ticker. Further transitions return ErrClosed.
func (m *Machine) Close() {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	h := m.detachTickerLocked()
	m.mu.Unlock()

	waitTicker(h)
	m.events.close()
}

// freeze enters MANUAL. When replace is false the current value is kept.
// Caller holds transitionMu.
func (m *Machine) freeze(tv clock.TimeValue, replace bool) (State, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return State{}, ErrClosed
	}
	h := m.detachTickerLocked()
	if replace {
		m.current = tv
	}
	m.realTime = false
	st := m.stateLocked()
	m.events.publish(st)
	m.mu.Unlock()

	waitTicker(h)
	return st, nil
}

// resume enters REALTIME. Caller holds transitionMu.
func (m *Machine) resume() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return State{}, ErrClosed
	}

	m.generation++
	m.realTime = true
	m.current = m.now()
	if m.ticker == nil {
		m.startTickerLocked()
	}
	st := m.stateLocked()
	m.events.publish(st)
	return st, nil
}

// startTickerLocked creates the ticker before returning so that the first
// period starts at the moment of entry.
func (m *Machine) startTickerLocked() {
	h := &tickerHandle{
		ticker: m.clock.NewTicker(m.interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.ticker = h
	m.activeTickers.Add(1)
	go m.runTicker(h)
}

// detachTickerLocked clears the current ticker and signals it to stop. The
// caller must wait for it with waitTicker after releasing mu.
func (m *Machine) detachTickerLocked() *tickerHandle {
	h := m.ticker
	if h == nil {
		return nil
	}
	m.ticker = nil
	close(h.stop)
	return h
}

func waitTicker(h *tickerHandle) {
	if h != nil {
		<-h.done
	}
}

func (m *Machine) runTicker(h *tickerHandle) {
	defer close(h.done)
	defer m.activeTickers.Add(-1)
	defer h.ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-h.ticker.Chan():
			m.tick(h)
		}
	}
}

// tick samples the wall clock. Ticks from a detached handle are ignored.
func (m *Machine) tick(h *tickerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker != h {
		return
	}
	m.current = m.now()
	m.events.publish(m.stateLocked())
}

func (m *Machine) stateLocked() State {
	return State{
		Time:       m.current,
		RealTime:   m.realTime,
		Generation: m.generation,
	}
}
