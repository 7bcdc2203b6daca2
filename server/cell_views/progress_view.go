package cell_views

import (
	"fmt"
	"html/template"
	"strconv"

	"frozenlake/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ProgressBanner shows the training episode and reward statistics above the grid.
type ProgressBanner struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewProgressBanner(
	done <-chan struct{},
	boards <-chan Board,
) (pb *ProgressBanner) {
	pb = &ProgressBanner{id: "progressbanner"}
	pb.updates = channerics.Convert(done, boards, pb.onUpdate)
	return
}

func (pb *ProgressBanner) Updates() <-chan []fastview.EleUpdate {
	return pb.updates
}

func textUpdate(id, text string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: id,
		Ops:   []fastview.Op{{Key: fastview.TextContent, Value: text}},
	}
}

func (pb *ProgressBanner) onUpdate(board Board) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		textUpdate("progress-episode", strconv.Itoa(board.Episode)),
		textUpdate("progress-recent-mean", fmt.Sprintf("%.2f", board.RecentMean)),
		textUpdate("progress-best-mean", fmt.Sprintf("%.2f", board.BestWindowMean)),
		textUpdate("progress-mean", fmt.Sprintf("%.2f", board.Mean)),
	}
}

func (pb *ProgressBanner) Parse(
	t *template.Template,
) (name string, err error) {
	name = pb.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="` + pb.id + `" style="font-family: monospace; padding-bottom: 10px;">
			Episode <span id="progress-episode">{{ .Episode }}</span>
			| recent average <span id="progress-recent-mean">{{ printf "%.2f" .RecentMean }}</span>
			| best recent average <span id="progress-best-mean">{{ printf "%.2f" .BestWindowMean }}</span>
			| average <span id="progress-mean">{{ printf "%.2f" .Mean }}</span>
		</div>
		{{ end }}`)
	return
}
