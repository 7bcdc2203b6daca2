package reinforcement

import (
	"errors"
	"fmt"

	"frozenlake/atomic_float"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidDimensions is returned when a table is requested with an empty state or action space.
var ErrInvalidDimensions = errors.New("value table dimensions must be positive")

// ValueTable holds the action-value estimates Q(s,a) of every state and action,
// stored row-major by state. Every entry starts at zero and is only changed by Update.
// Entries are atomics so that views may read the table while training writes it;
// there is still only ever a single writer.
type ValueTable struct {
	numStates  int
	numActions int
	values     []atomic_float.AtomicFloat64
}

// NewValueTable returns a zeroed numStates x numActions table.
func NewValueTable(numStates, numActions int) (*ValueTable, error) {
	if numStates <= 0 || numActions <= 0 {
		return nil, fmt.Errorf("%w: %d states x %d actions", ErrInvalidDimensions, numStates, numActions)
	}
	return &ValueTable{
		numStates:  numStates,
		numActions: numActions,
		values:     make([]atomic_float.AtomicFloat64, numStates*numActions),
	}, nil
}

func (vt *ValueTable) NumStates() int  { return vt.numStates }
func (vt *ValueTable) NumActions() int { return vt.numActions }

// Indices come from the environment's declared spaces; a violation is a bug in the
// environment or the caller, not a condition to recover from.
func (vt *ValueTable) index(state, action int) int {
	if state < 0 || state >= vt.numStates {
		panic(fmt.Sprintf("state %d outside of [0,%d)", state, vt.numStates))
	}
	if action < 0 || action >= vt.numActions {
		panic(fmt.Sprintf("action %d outside of [0,%d)", action, vt.numActions))
	}
	return state*vt.numActions + action
}

// Value returns Q(state, action).
func (vt *ValueTable) Value(state, action int) float64 {
	return vt.values[vt.index(state, action)].AtomicRead()
}

// Row copies the action values of state into dst, growing it if needed, and returns it.
func (vt *ValueTable) Row(state int, dst []float64) []float64 {
	if cap(dst) < vt.numActions {
		dst = make([]float64, vt.numActions)
	}
	dst = dst[:vt.numActions]
	offset := vt.index(state, 0)
	for a := range dst {
		dst[a] = vt.values[offset+a].AtomicRead()
	}
	return dst
}

// BestAction returns the action with the largest value in state. Ties go to the
// lowest action index.
func (vt *ValueTable) BestAction(state int) int {
	return floats.MaxIdx(vt.Row(state, nil))
}

// MaxValue returns max_a Q(state, a).
func (vt *ValueTable) MaxValue(state int) float64 {
	return floats.Max(vt.Row(state, nil))
}

// Update blends Q(state, action) toward target: (1-rate)*old + rate*target.
func (vt *ValueTable) Update(state, action int, target, rate float64) {
	entry := &vt.values[vt.index(state, action)]
	old := entry.AtomicRead()
	entry.AtomicSet((1-rate)*old + rate*target)
}

// Snapshot copies the table into a states x actions matrix.
func (vt *ValueTable) Snapshot() *mat.Dense {
	data := make([]float64, len(vt.values))
	for i := range vt.values {
		data[i] = vt.values[i].AtomicRead()
	}
	return mat.NewDense(vt.numStates, vt.numActions, data)
}
