package root_view

import (
	"context"
	"fmt"
	"html/template"
	"sync/atomic"
	"time"

	"frozenlake/environment"
	"frozenlake/reinforcement"
	"frozenlake/server/cell_views"
	"frozenlake/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// batchRate is the window within which ele-updates for the same element are coalesced.
const batchRate = time.Millisecond * 20

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
	convert func(reinforcement.Snapshot) cell_views.Board
	latest  atomic.Pointer[reinforcement.Snapshot]
}

// NewRootView creates the main page and the views it contains, fed by training snapshots.
func NewRootView(
	ctx context.Context,
	lake *environment.FrozenLake,
	snapshots <-chan reinforcement.Snapshot,
) (*RootView, error) {
	rv := &RootView{convert: cell_views.NewConverter(lake)}
	views, err := fastview.NewViewBuilder[reinforcement.Snapshot, cell_views.Board]().
		WithContext(ctx).
		WithModel(channerics.Convert(ctx.Done(), snapshots, rv.remember), rv.convert).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewProgressBanner(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewValuesGrid(done, boards)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	rv.views = views
	rv.updates = fanIn(ctx.Done(), views)
	return rv, nil
}

func (rv *RootView) remember(snap reinforcement.Snapshot) reinforcement.Snapshot {
	rv.latest.Store(&snap)
	return snap
}

// Latest returns the most recent snapshot fed to the views, if any.
func (rv *RootView) Latest() (snap reinforcement.Snapshot, ok bool) {
	if latest := rv.latest.Load(); latest != nil {
		return *latest, true
	}
	return
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Board converts a snapshot to the page's template data.
func (rv *RootView) Board(snap reinforcement.Snapshot) cell_views.Board {
	return rv.convert(snap)
}

// FuncMap holds the arithmetic helpers the view templates depend on.
var FuncMap = template.FuncMap{
	"add":  func(i, j int) int { return i + j },
	"sub":  func(i, j int) int { return i - j },
	"mult": func(i, j int) int { return i * j },
	"div":  func(i, j int) int { return i / j },
	"max": func(i, j int) int {
		if i > j {
			return i
		}
		return j
	},
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// It also sets up the func-map that the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(FuncMap)

	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", parseErr
		}
		viewTemplates = append(viewTemplates, tname)
	}

	// Specify the nested templates
	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	// The main template bootstraps the rest: sets up client websocket and updates, aggregates views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<title>FrozenLake Q-learning</title>
			<link rel="icon" href="data:,">
			<!--The server pushes new data to the view via websocket.-->
			<script>
				const ws = new WebSocket("ws://" + window.location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (ele === null) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single channel,
// and throttles its output.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchRate)
}

// batchify batches within the passed time frame before sending, over-writing previously
// received values for the same ele-id. This ensures that redundant updates for the
// same ele-id are not sent, and only the latest values are sent. The source is always
// drained: while nobody receives, updates keep coalescing into the pending batch, so a
// late receiver gets the latest state rather than the oldest.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		var batch []fastview.EleUpdate
		var last time.Time
		var flush <-chan time.Time

		for {
			// Sending is enabled only with a pending batch outside the rate window.
			var out chan<- []fastview.EleUpdate
			if len(batch) > 0 && flush == nil {
				out = output
			}

			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					return
				}
				// Intentionally overwrites pre-existing values for an ele-id within this batch's time frame.
				for _, update := range updates {
					data[update.EleId] = update
				}
				batch = slicedVals(data)
				if wait := rate - time.Since(last); wait > 0 && flush == nil {
					flush = time.After(wait)
				}
			case <-flush:
				flush = nil
			case out <- batch:
				data = map[string]fastview.EleUpdate{}
				batch = nil
				last = time.Now()
			}
		}
	}()

	return output
}

// returns the values of a map as a slice
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
