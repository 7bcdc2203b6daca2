package environment

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-runewidth"
)

// ValueSource is the read side of a learned action-value table.
type ValueSource interface {
	BestAction(state int) int
	MaxValue(state int) float64
}

// Arrows for the greedy action of each state, indexed by action.
var ActionArrows = [NUM_ACTIONS]string{
	LEFT:  "←",
	DOWN:  "↓",
	RIGHT: "→",
	UP:    "↑",
}

// Renderer prints lakes and learned values to a console. Cells are padded by
// display width since the arrow glyphs are not single-byte.
type Renderer struct {
	w         io.Writer
	au        aurora.Aurora
	cellWidth int
}

// NewRenderer returns a renderer writing to w; colors enables ANSI color codes.
func NewRenderer(w io.Writer, colors bool) *Renderer {
	return &Renderer{
		w:         w,
		au:        aurora.NewAurora(colors),
		cellWidth: 6,
	}
}

// Colors the text of a cell by the cell's type.
func (rn *Renderer) paint(cell rune, text string) aurora.Value {
	switch cell {
	case HOLE:
		return rn.au.Red(text)
	case GOAL:
		return rn.au.Yellow(text)
	case START:
		return rn.au.Cyan(text)
	default:
		return rn.au.Blue(text)
	}
}

func (rn *Renderer) pad(text string) string {
	return runewidth.FillRight(text, rn.cellWidth)
}

// ShowGrid shows the lake, for visual reference.
func (rn *Renderer) ShowGrid(lake *FrozenLake) {
	for state := 0; state < lake.NumStates(); state++ {
		cell := lake.CellAt(state)
		fmt.Fprint(rn.w, rn.paint(cell, rn.pad(string(cell))))
		if (state+1)%lake.Cols() == 0 {
			fmt.Fprintln(rn.w)
		}
	}
}

// ShowPolicy shows the greedy action of every non-terminal cell as an arrow;
// holes and goals show their cell type instead.
func (rn *Renderer) ShowPolicy(lake *FrozenLake, values ValueSource) {
	for state := 0; state < lake.NumStates(); state++ {
		cell := lake.CellAt(state)
		text := string(cell)
		if !lake.IsTerminal(state) {
			text = ActionArrows[values.BestAction(state)]
		}
		fmt.Fprint(rn.w, rn.paint(cell, rn.pad(text)))
		if (state+1)%lake.Cols() == 0 {
			fmt.Fprintln(rn.w)
		}
	}
}

// ShowMaxValues prints the max action-value of each cell, and their total.
func (rn *Renderer) ShowMaxValues(lake *FrozenLake, values ValueSource) {
	fmt.Fprintln(rn.w, "Max vals:")
	total := 0.0
	for state := 0; state < lake.NumStates(); state++ {
		val := values.MaxValue(state)
		total += val
		fmt.Fprint(rn.w, rn.paint(lake.CellAt(state), rn.pad(fmt.Sprintf("%.2f", val))))
		if (state+1)%lake.Cols() == 0 {
			fmt.Fprintln(rn.w)
		}
	}
	fmt.Fprintf(rn.w, "Total: %.2f\n", total)
}
