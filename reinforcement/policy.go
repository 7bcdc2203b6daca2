package reinforcement

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// RandomSource provides uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// ErrNilRandomSource is returned when no random source is supplied for exploration.
var ErrNilRandomSource = errors.New("random source is required")

// NoisyGreedy picks the greedy action after perturbing every action value with
// uniform noise scaled by 1/episode^exponent. Early episodes explore heavily; as the
// noise shrinks the policy becomes purely greedy. There is no separate exploration rate.
type NoisyGreedy struct {
	table    *ValueTable
	rng      RandomSource
	exponent float64
	scores   []float64
}

// NewNoisyGreedy returns a policy over table drawing its noise from rng.
func NewNoisyGreedy(table *ValueTable, rng RandomSource, exponent float64) (*NoisyGreedy, error) {
	if rng == nil {
		return nil, ErrNilRandomSource
	}
	return &NoisyGreedy{
		table:    table,
		rng:      rng,
		exponent: exponent,
		scores:   make([]float64, table.NumActions()),
	}, nil
}

// Scale is the divisor applied to the raw noise in the given (1-indexed) episode.
func (p *NoisyGreedy) Scale(episode int) float64 {
	return math.Pow(float64(episode), p.exponent)
}

// Noise fills dst with one fresh draw per action for the given episode.
func (p *NoisyGreedy) Noise(episode int, dst []float64) []float64 {
	if cap(dst) < p.table.NumActions() {
		dst = make([]float64, p.table.NumActions())
	}
	dst = dst[:p.table.NumActions()]
	scale := p.Scale(episode)
	for a := range dst {
		dst[a] = p.rng.Float64() / scale
	}
	return dst
}

// SelectAction returns argmax_a Q(state,a) + noise_a, ties going to the lowest action.
// Noise is drawn in action order, one value per action, at every call.
func (p *NoisyGreedy) SelectAction(state, episode int) int {
	p.scores = p.table.Row(state, p.scores)
	scale := p.Scale(episode)
	for a := range p.scores {
		p.scores[a] += p.rng.Float64() / scale
	}
	return floats.MaxIdx(p.scores)
}
