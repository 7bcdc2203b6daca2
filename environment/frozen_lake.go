package environment

import (
	"fmt"
	"math/rand"
	"sort"
)

const (
	// Lake cell types
	START  = 'S'
	FROZEN = 'F'
	HOLE   = 'H'
	GOAL   = 'G'

	// Actions, in the order of the classic gym environment.
	LEFT        = 0
	DOWN        = 1
	RIGHT       = 2
	UP          = 3
	NUM_ACTIONS = 4

	// Rewards
	GOAL_REWARD = 1.0
	STEP_REWARD = 0.0
)

// The classic lake maps. Row 0 is the top row as printed.
var Maps = map[string][]string{
	"4x4": {
		"SFFF",
		"FHFH",
		"FFFH",
		"HFFG",
	},
	"8x8": {
		"SFFFFFFF",
		"FFFFFFFF",
		"FFFHFFFF",
		"FFFFFHFF",
		"FFFHFFFF",
		"FHHFFFHF",
		"FHFFHFHF",
		"FFFHFFFG",
	},
}

// Episode step limits applied to the built-in maps, mirroring the time limit
// under which the classic environment is registered.
var DefaultMaxSteps = map[string]int{
	"4x4": 100,
	"8x8": 200,
}

// MapNames returns the names of the built-in maps in sorted order.
func MapNames() []string {
	names := make([]string, 0, len(Maps))
	for name := range Maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupMap returns the layout registered under name.
func LookupMap(name string) ([]string, error) {
	layout, ok := Maps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownMap, name, MapNames())
	}
	return layout, nil
}

// FrozenLake is a grid in which the agent walks from S to G across frozen cells
// without falling into a hole. On a slippery lake the agent moves in the intended
// direction or in one of the two perpendicular directions, each with probability 1/3.
// States are row-major cell indices: state = row*cols + col.
type FrozenLake struct {
	cells      [][]rune
	rows, cols int
	start      int
	slippery   bool
	maxSteps   int
	rng        *rand.Rand

	state  int
	steps  int
	active bool
}

// Option configures a FrozenLake.
type Option func(*FrozenLake)

// WithSlippery toggles the stochastic transition dynamics. Lakes are slippery by default.
func WithSlippery(slippery bool) Option {
	return func(fl *FrozenLake) { fl.slippery = slippery }
}

// WithMaxSteps truncates episodes after n steps. Zero disables the limit.
func WithMaxSteps(n int) Option {
	return func(fl *FrozenLake) { fl.maxSteps = n }
}

// WithRand sets the lake's random source; seeding it makes the dynamics reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(fl *FrozenLake) { fl.rng = rng }
}

// NewFrozenLake parses layout, a list of equal-length rows over the runes S, F, H and G,
// with exactly one S and at least one G.
func NewFrozenLake(layout []string, opts ...Option) (*FrozenLake, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidLayout)
	}

	fl := &FrozenLake{
		rows:     len(layout),
		cols:     len([]rune(layout[0])),
		start:    -1,
		slippery: true,
	}

	goals := 0
	fl.cells = make([][]rune, 0, fl.rows)
	for r, line := range layout {
		row := []rune(line)
		if len(row) != fl.cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidLayout, r, len(row), fl.cols)
		}
		for c, cell := range row {
			switch cell {
			case START:
				if fl.start >= 0 {
					return nil, fmt.Errorf("%w: more than one start cell", ErrInvalidLayout)
				}
				fl.start = r*fl.cols + c
			case GOAL:
				goals++
			case FROZEN, HOLE:
			default:
				return nil, fmt.Errorf("%w: unexpected cell %q at (%d,%d)", ErrInvalidLayout, cell, r, c)
			}
		}
		fl.cells = append(fl.cells, row)
	}

	if fl.start < 0 {
		return nil, fmt.Errorf("%w: no start cell", ErrInvalidLayout)
	}
	if goals == 0 {
		return nil, fmt.Errorf("%w: no goal cell", ErrInvalidLayout)
	}

	for _, opt := range opts {
		opt(fl)
	}
	if fl.rng == nil {
		fl.rng = rand.New(rand.NewSource(0))
	}
	if fl.maxSteps < 0 {
		fl.maxSteps = 0
	}

	return fl, nil
}

// NewNamedLake builds one of the built-in maps with its default step limit.
// Options are applied after the defaults, so WithMaxSteps overrides the limit.
func NewNamedLake(name string, opts ...Option) (*FrozenLake, error) {
	layout, err := LookupMap(name)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMaxSteps(DefaultMaxSteps[name])}, opts...)
	return NewFrozenLake(layout, opts...)
}

func (fl *FrozenLake) NumStates() int  { return fl.rows * fl.cols }
func (fl *FrozenLake) NumActions() int { return NUM_ACTIONS }
func (fl *FrozenLake) Rows() int       { return fl.rows }
func (fl *FrozenLake) Cols() int       { return fl.cols }
func (fl *FrozenLake) Slippery() bool  { return fl.slippery }
func (fl *FrozenLake) MaxSteps() int   { return fl.maxSteps }

// Layout returns the lake as printable rows.
func (fl *FrozenLake) Layout() []string {
	layout := make([]string, fl.rows)
	for r, row := range fl.cells {
		layout[r] = string(row)
	}
	return layout
}

// Position converts a state index into its row and column.
func (fl *FrozenLake) Position(state int) (row, col int) {
	return state / fl.cols, state % fl.cols
}

// CellAt returns the cell type of a state.
func (fl *FrozenLake) CellAt(state int) rune {
	row, col := fl.Position(state)
	return fl.cells[row][col]
}

// IsTerminal reports whether entering state ends an episode.
func (fl *FrozenLake) IsTerminal(state int) bool {
	cell := fl.CellAt(state)
	return cell == HOLE || cell == GOAL
}

// Reset places the agent on the start cell.
func (fl *FrozenLake) Reset() (int, error) {
	fl.state = fl.start
	fl.steps = 0
	fl.active = true
	return fl.state, nil
}

// Step moves the agent. The episode ends on a hole, on the goal, or when the
// step limit is reached; in all cases Reset must be called before stepping again.
func (fl *FrozenLake) Step(action int) (next int, reward float64, done bool, err error) {
	if action < 0 || action >= NUM_ACTIONS {
		return fl.state, 0, false, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidAction, action, NUM_ACTIONS)
	}
	if !fl.active {
		return fl.state, 0, false, ErrNotReset
	}

	if fl.slippery {
		// intended direction or one of its two perpendiculars
		action = (action + fl.rng.Intn(3) - 1 + NUM_ACTIONS) % NUM_ACTIONS
	}

	next = fl.move(fl.state, action)
	fl.state = next
	fl.steps++

	reward = STEP_REWARD
	if fl.CellAt(next) == GOAL {
		reward = GOAL_REWARD
	}

	done = fl.IsTerminal(next) || (fl.maxSteps > 0 && fl.steps >= fl.maxSteps)
	if done {
		fl.active = false
	}
	return next, reward, done, nil
}

// Gets the successor of state for a direction, clamped to the lake's borders.
func (fl *FrozenLake) move(state, action int) int {
	row, col := fl.Position(state)
	switch action {
	case LEFT:
		col = max(col-1, 0)
	case DOWN:
		row = min(row+1, fl.rows-1)
	case RIGHT:
		col = min(col+1, fl.cols-1)
	case UP:
		row = max(row-1, 0)
	default:
		// Degenerate case; unreachable if actions are validated in Step.
		panic(fmt.Sprintf("invalid direction %d", action))
	}
	return row*fl.cols + col
}
