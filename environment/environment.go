// Package environment holds the simulated environments the agent is trained against,
// and console renderers for inspecting a learned policy on them.
package environment

import "errors"

// Environment is a stateful simulator with discrete observation and action spaces.
// The spaces are fixed for the lifetime of an instance. Step may only be called
// between a Reset and the terminal step of that episode.
type Environment interface {
	NumStates() int
	NumActions() int
	// Reset begins a new episode and returns its initial state.
	Reset() (state int, err error)
	// Step applies action, which must be in [0, NumActions()).
	Step(action int) (next int, reward float64, done bool, err error)
}

var (
	// ErrInvalidAction is returned by Step for an action outside the action space.
	ErrInvalidAction = errors.New("action out of range")
	// ErrNotReset is returned by Step before the first Reset or after a terminal step.
	ErrNotReset = errors.New("step called without an active episode, reset required")
	// ErrInvalidLayout is returned when a lake layout cannot be parsed.
	ErrInvalidLayout = errors.New("invalid lake layout")
	// ErrUnknownMap is returned for a map name with no built-in layout.
	ErrUnknownMap = errors.New("unknown map name")
)
