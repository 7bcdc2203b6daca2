package atomic_float

import (
	"math"
	"sync/atomic"
)

// Notes:
// - the value table has exactly one writer, the training goroutine
// - the live views read entries while training runs, without locking the table
// The float is kept as its IEEE-754 bit pattern in an atomic.Uint64, so the zero
// value of AtomicFloat64 is +0.0 and a slice of them needs no initialization.
// An AtomicFloat64 must not be copied after first use.

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// AtomicRead loads the current value.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet unconditionally stores val.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}
