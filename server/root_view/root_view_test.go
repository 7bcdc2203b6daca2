package root_view

import (
	"context"
	"html/template"
	"strconv"
	"strings"
	"testing"
	"time"

	"frozenlake/environment"
	"frozenlake/reinforcement"
	"frozenlake/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func update(id, text string) fastview.EleUpdate {
	return fastview.EleUpdate{EleId: id, Ops: []fastview.Op{{Key: fastview.TextContent, Value: text}}}
}

func TestBatchify(t *testing.T) {
	Convey("When ele-updates are batched", t, func() {
		done := make(chan struct{})
		defer close(done)
		source := make(chan []fastview.EleUpdate)
		batches := batchify(done, source, 50*time.Millisecond)

		Convey("The first update passes straight through", func() {
			source <- []fastview.EleUpdate{update("a", "1")}
			So(<-batches, ShouldResemble, []fastview.EleUpdate{update("a", "1")})

			Convey("Updates within the window are coalesced per element and flushed", func() {
				source <- []fastview.EleUpdate{update("a", "2"), update("b", "1")}
				source <- []fastview.EleUpdate{update("a", "3")}

				select {
				case batch := <-batches:
					So(len(batch), ShouldEqual, 2)
					byId := map[string]string{}
					for _, u := range batch {
						byId[u.EleId] = u.Ops[0].Value
					}
					So(byId, ShouldResemble, map[string]string{"a": "3", "b": "1"})
				case <-time.After(2 * time.Second):
					t.Fatal("pending batch was never flushed")
				}
			})
		})

		Convey("Updates keep coalescing while nobody receives", func() {
			for i := 0; i < 50; i++ {
				select {
				case source <- []fastview.EleUpdate{update("episode", strconv.Itoa(i))}:
				case <-time.After(time.Second):
					t.Fatalf("batching blocked the source at update %d", i)
				}
			}

			select {
			case batch := <-batches:
				So(batch, ShouldResemble, []fastview.EleUpdate{update("episode", "49")})
			case <-time.After(2 * time.Second):
				t.Fatal("no batch was sent")
			}
		})
	})
}

func TestRootView(t *testing.T) {
	Convey("When the root view is built", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		lake, err := environment.NewNamedLake("4x4")
		So(err, ShouldBeNil)
		snapshots := make(chan reinforcement.Snapshot)
		rv, err := NewRootView(ctx, lake, snapshots)
		So(err, ShouldBeNil)

		table, err := reinforcement.NewValueTable(lake.NumStates(), lake.NumActions())
		So(err, ShouldBeNil)
		table.Update(0, environment.DOWN, 0.5, 1)
		snap := reinforcement.Snapshot{Episode: 7, Values: table.Snapshot()}

		Convey("The page renders every view with the bootstrap script", func() {
			tmpl := template.New("index.html")
			name, err := rv.Parse(tmpl)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "mainpage")

			var sb strings.Builder
			So(tmpl.ExecuteTemplate(&sb, name, rv.Board(snap)), ShouldBeNil)
			page := sb.String()
			So(page, ShouldContainSubstring, "new WebSocket")
			So(page, ShouldContainSubstring, `id="progressbanner"`)
			So(page, ShouldContainSubstring, `id="valuesgrid"`)
			So(page, ShouldContainSubstring, `<span id="progress-episode">7</span>`)
		})

		Convey("Snapshots flow through to ele-updates", func() {
			go func() {
				select {
				case snapshots <- snap:
				case <-ctx.Done():
				}
			}()

			seen := map[string]string{}
			deadline := time.After(3 * time.Second)
			for seen["0-0-value-text"] == "" || seen["progress-episode"] == "" {
				select {
				case batch := <-rv.Updates():
					for _, u := range batch {
						seen[u.EleId] = u.Ops[0].Value
					}
				case <-deadline:
					t.Fatal("updates never arrived")
				}
			}
			So(seen["0-0-value-text"], ShouldEqual, "0.50")
			So(seen["progress-episode"], ShouldEqual, "7")

			latest, ok := rv.Latest()
			So(ok, ShouldBeTrue)
			So(latest.Episode, ShouldEqual, 7)
		})

		Convey("Nothing is remembered before the first snapshot", func() {
			_, ok := rv.Latest()
			So(ok, ShouldBeFalse)
		})
	})
}
