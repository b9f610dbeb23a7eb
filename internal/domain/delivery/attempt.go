// Package delivery models a single SMTP send attempt as a state machine.
package delivery

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrIllegalTransition is returned when a state change is not allowed.
var ErrIllegalTransition = errors.New("delivery: illegal state transition")

// State is the phase of a send attempt.
type State string

const (
	StateIdle           State = "idle"
	StateConnecting     State = "connecting"
	StateConnected      State = "connected"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateSending        State = "sending"
	StateSent           State = "sent"
	StateDisconnected   State = "disconnected"
	StateFailed         State = "failed"
)

// next is the single forward successor of each non-terminal state.
// Failed is reachable from every non-terminal state and is handled separately.
var next = map[State]State{
	StateIdle:           StateConnecting,
	StateConnecting:     StateConnected,
	StateConnected:      StateAuthenticating,
	StateAuthenticating: StateAuthenticated,
	StateAuthenticated:  StateSending,
	StateSending:        StateSent,
	StateSent:           StateDisconnected,
}

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateFailed
}

// Step is one recorded transition.
type Step struct {
	State State
	At    time.Time
}

// Attempt tracks one send attempt. There is exactly one attempt per request;
// an Attempt never returns to Idle.
type Attempt struct {
	mu       sync.Mutex
	state    State
	steps    []Step
	err      error
	failedIn State
	now      func() time.Time
}

// NewAttempt returns an attempt in the Idle state.
func NewAttempt() *Attempt {
	return newAttempt(time.Now)
}

func newAttempt(now func() time.Time) *Attempt {
	return &Attempt{
		state: StateIdle,
		steps: []Step{{State: StateIdle, At: now()}},
		now:   now,
	}
}

// Advance moves the attempt to to, which must be the forward successor of
// the current state.
func (a *Attempt) Advance(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if want, ok := next[a.state]; !ok || want != to {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, to)
	}
	a.record(to)
	return nil
}

// Fail moves the attempt to Failed, remembering cause and the state it failed in.
// Failing a terminal attempt is an illegal transition.
func (a *Attempt) Fail(cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, StateFailed)
	}
	a.failedIn = a.state
	a.err = cause
	a.record(StateFailed)
	return nil
}

func (a *Attempt) record(s State) {
	a.state = s
	a.steps = append(a.steps, Step{State: s, At: a.now()})
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the failure cause, or nil if the attempt has not failed.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// FailedIn returns the state that was active when the attempt failed.
func (a *Attempt) FailedIn() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failedIn
}

// Delivered reports whether the relay accepted the message, i.e. the attempt
// reached Sent at some point.
func (a *Attempt) Delivered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.steps {
		if s.State == StateSent {
			return true
		}
	}
	return false
}

// Steps returns a copy of the recorded transitions, starting with Idle.
func (a *Attempt) Steps() []Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Step, len(a.steps))
	copy(out, a.steps)
	return out
}

// Elapsed returns the time between the first and the latest transition.
func (a *Attempt) Elapsed() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.steps[len(a.steps)-1].At.Sub(a.steps[0].At)
}
