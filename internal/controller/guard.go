package controller

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned when an operation is requested while another
// sequence is still in flight.
var ErrBusy = errors.New("another operation is in progress")

// GuardState is the state of a Guard.
type GuardState int

const (
	// Idle means no sequence is running.
	Idle GuardState = iota

	// InFlight means a sequence holds the guard.
	InFlight
)

// String returns the string representation of GuardState.
func (s GuardState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	default:
		return fmt.Sprintf("GuardState(%d)", int(s))
	}
}

// Guard serializes user-triggered sequences. At most one sequence holds
// it at a time; a second Acquire fails fast instead of queueing.
//
// Usage:
//
//	release, err := g.Acquire("start")
//	if err != nil {
//		return err // ErrBusy
//	}
//	defer release()
type Guard struct {
	mu    sync.Mutex
	state GuardState
	op    string
}

// Acquire moves the guard from Idle to InFlight. The returned release
// moves it back; calling release more than once has no further effect.
func (g *Guard) Acquire(op string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == InFlight {
		return nil, fmt.Errorf("%w: %s is still running", ErrBusy, g.op)
	}
	g.state = InFlight
	g.op = op

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.state = Idle
			g.op = ""
			g.mu.Unlock()
		})
	}, nil
}

// State returns the current guard state.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Op returns the name of the in-flight operation, or "" when idle.
func (g *Guard) Op() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.op
}
