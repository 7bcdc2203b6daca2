// cell_views contains views derived from the Board view-model.
package cell_views

import (
	"frozenlake/environment"
	"frozenlake/reinforcement"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Cell is one lake tile, oriented in the svg coordinate system such that [0][0] is the
// top-left tile, as printed in the console. As a rule of thumb, Cell fields should be
// immediately usable as view parameters.
type Cell struct {
	X, Y int
	Kind string
	// Max is the largest action value of the tile's state.
	Max float64
	// PolicyArrowRotation is the rotation in degrees of an upward arrow to point along the greedy action.
	PolicyArrowRotation int
	// Terminal tiles have no policy; their arrow is hidden.
	PolicyVisibility string
	Fill             string
}

// Board is the view-model of the whole lake plus the training progress.
type Board struct {
	Episode        int
	Episodes       int
	RecentMean     float64
	BestWindowMean float64
	Mean           float64
	Window         int
	// Cells are indexed [row][col].
	Cells [][]Cell
}

// Degrees of rotation of an up-arrow per action.
var arrowRotations = [environment.NUM_ACTIONS]int{
	environment.LEFT:  270,
	environment.DOWN:  180,
	environment.RIGHT: 90,
	environment.UP:    0,
}

// NewConverter returns a function mapping training snapshots of the given lake to Boards.
func NewConverter(lake *environment.FrozenLake) func(reinforcement.Snapshot) Board {
	return func(snap reinforcement.Snapshot) Board {
		board := Board{
			Episode:        snap.Episode,
			Episodes:       snap.Report.Episodes,
			RecentMean:     snap.Report.RecentMean,
			BestWindowMean: snap.Report.BestWindowMean,
			Mean:           snap.Report.Mean,
			Window:         snap.Report.Window,
			Cells:          make([][]Cell, lake.Rows()),
		}

		row := make([]float64, lake.NumActions())
		for r := range board.Cells {
			board.Cells[r] = make([]Cell, lake.Cols())
			for c := range board.Cells[r] {
				state := r*lake.Cols() + c
				kind := lake.CellAt(state)
				cell := Cell{
					X:                c,
					Y:                r,
					Kind:             string(kind),
					Fill:             getFill(kind),
					PolicyVisibility: "hidden",
				}
				if snap.Values != nil {
					row = mat.Row(row, state, snap.Values)
					cell.Max = floats.Max(row)
					if !lake.IsTerminal(state) {
						cell.PolicyArrowRotation = arrowRotations[floats.MaxIdx(row)]
						cell.PolicyVisibility = "visible"
					}
				}
				board.Cells[r][c] = cell
			}
		}
		return board
	}
}

func getFill(kind rune) (fill string) {
	switch kind {
	case environment.START:
		fill = "lightblue"
	case environment.FROZEN:
		fill = "aliceblue"
	case environment.HOLE:
		fill = "slategray"
	case environment.GOAL:
		fill = "gold"
	}
	return
}
