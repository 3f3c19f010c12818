package timekeeper

import "sync"

// PresentationMode is the display mode of the clock.
type PresentationMode string

const (
	// ModeInteractive shows every control.
	ModeInteractive PresentationMode = "INTERACTIVE"
	// ModeFocused shows the dial and an exit affordance only.
	ModeFocused PresentationMode = "FOCUSED"
)

// Control names a user-reachable control.
type Control string

const (
	ControlHours   Control = "hours"
	ControlMinutes Control = "minutes"
	ControlSeconds Control = "seconds"
	ControlPhrase  Control = "phrase"
	ControlResume  Control = "resume"
	ControlPause   Control = "pause"
	ControlStyle   Control = "style"
	ControlFocus   Control = "focus"
	ControlExit    Control = "exit"
)

var (
	interactiveControls = []Control{
		ControlHours, ControlMinutes, ControlSeconds,
		ControlPhrase, ControlResume, ControlPause,
		ControlStyle, ControlFocus,
	}
	focusedControls = []Control{ControlExit}
)

// Presenter tracks the presentation mode. It never touches the time machine.
type Presenter struct {
	mu   sync.Mutex
	mode PresentationMode
}

// NewPresenter creates a Presenter in INTERACTIVE mode.
func NewPresenter() *Presenter {
	return &Presenter{mode: ModeInteractive}
}

// Mode returns the current mode.
func (p *Presenter) Mode() PresentationMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Enter switches to FOCUSED.
func (p *Presenter) Enter() PresentationMode {
	return p.set(ModeFocused)
}

// Exit switches to INTERACTIVE.
func (p *Presenter) Exit() PresentationMode {
	return p.set(ModeInteractive)
}

// Toggle flips between the two modes.
func (p *Presenter) Toggle() PresentationMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == ModeFocused {
		p.mode = ModeInteractive
	} else {
		p.mode = ModeFocused
	}
	return p.mode
}

// Cancel handles the escape gesture: FOCUSED returns to INTERACTIVE, otherwise
// nothing happens.
func (p *Presenter) Cancel() PresentationMode {
	return p.set(ModeInteractive)
}

// CanEdit reports whether editing controls are reachable.
func (p *Presenter) CanEdit() bool {
	return p.Mode() == ModeInteractive
}

// Controls lists the controls reachable in the current mode.
func (p *Presenter) Controls() []Control {
	src := interactiveControls
	if p.Mode() == ModeFocused {
		src = focusedControls
	}
	return append([]Control(nil), src...)
}

func (p *Presenter) set(mode PresentationMode) PresentationMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	return p.mode
}
