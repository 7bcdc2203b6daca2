package fastview

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

// textView sets the text of a single element to each view-model it receives.
type textView struct {
	id      string
	updates <-chan []EleUpdate
}

func newTextView(id string) ViewBuilderFunc[string] {
	return func(done <-chan struct{}, texts <-chan string) ViewComponent {
		tv := &textView{id: id}
		tv.updates = channerics.Convert(done, texts, func(text string) []EleUpdate {
			return []EleUpdate{{EleId: tv.id, Ops: []Op{{Key: TextContent, Value: text}}}}
		})
		return tv
	}
}

func (tv *textView) Updates() <-chan []EleUpdate { return tv.updates }

func (tv *textView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + tv.id + `" }}<p id="` + tv.id + `">{{ . }}</p>{{ end }}`)
	return tv.id, err
}

func receive[T any](ch <-chan T, timeout time.Duration) (val T, ok bool) {
	select {
	case val, ok = <-ch:
	case <-time.After(timeout):
	}
	return
}

func TestViewBuilder(t *testing.T) {
	Convey("When views are built", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("Building without views fails", func() {
			_, err := NewViewBuilder[int, string]().
				WithModel(make(chan int), strconv.Itoa).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("Building without a model fails", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(newTextView("first")).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted model", func() {
			models := make(chan int)
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(models, strconv.Itoa).
				WithView(newTextView("first")).
				WithView(newTextView("second")).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			go func() {
				select {
				case models <- 42:
				case <-ctx.Done():
				}
			}()

			results := make(chan []EleUpdate, 2)
			for _, view := range views {
				go func(view ViewComponent) {
					if updates, ok := receive(view.Updates(), 2*time.Second); ok {
						results <- updates
					} else {
						results <- nil
					}
				}(view)
			}

			seen := map[string]string{}
			for i := 0; i < 2; i++ {
				updates := <-results
				So(len(updates), ShouldEqual, 1)
				seen[updates[0].EleId] = updates[0].Ops[0].Value
			}
			So(seen, ShouldResemble, map[string]string{"first": "42", "second": "42"})
		})

		Convey("Views define their templates", func() {
			models := make(chan int)
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(models, strconv.Itoa).
				WithView(newTextView("greeting")).
				Build()
			So(err, ShouldBeNil)

			tmpl := template.New("page")
			name, err := views[0].Parse(tmpl)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "greeting")

			var sb strings.Builder
			So(tmpl.ExecuteTemplate(&sb, name, "hello"), ShouldBeNil)
			So(sb.String(), ShouldEqual, `<p id="greeting">hello</p>`)
		})
	})
}

func TestClient(t *testing.T) {
	Convey("When a web client connects", t, func() {
		updates := make(chan []EleUpdate)
		syncErrs := make(chan error, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cli, err := NewClient(updates, w, r)
			if err != nil {
				syncErrs <- err
				return
			}
			syncErrs <- cli.Sync()
		}))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("Updates are published as json", func() {
			sent := []EleUpdate{{EleId: "0-0-value-text", Ops: []Op{{Key: TextContent, Value: "0.50"}}}}
			select {
			case updates <- sent:
			case <-time.After(2 * time.Second):
				t.Fatal("publisher never received the update")
			}

			So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
			var received []EleUpdate
			So(conn.ReadJSON(&received), ShouldBeNil)
			So(received, ShouldResemble, sent)

			Convey("A normal closure ends the sync without error", func() {
				So(conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")), ShouldBeNil)

				syncErr, ok := receive(syncErrs, 3*time.Second)
				So(ok, ShouldBeTrue)
				So(syncErr, ShouldBeNil)
			})
		})

		Convey("Back-to-back updates are throttled, not dropped", func() {
			for _, text := range []string{"1", "2"} {
				select {
				case updates <- []EleUpdate{{EleId: "progress-episode", Ops: []Op{{Key: TextContent, Value: text}}}}:
				case <-time.After(2 * time.Second):
					t.Fatal("publisher never received the update")
				}
			}

			So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)
			var first, second []EleUpdate
			So(conn.ReadJSON(&first), ShouldBeNil)
			So(conn.ReadJSON(&second), ShouldBeNil)
			So(first[0].Ops[0].Value, ShouldEqual, "1")
			So(second[0].Ops[0].Value, ShouldEqual, "2")
		})
	})
}

func TestIsClosure(t *testing.T) {
	Convey("When websocket errors are classified", t, func() {
		normal := &websocket.CloseError{Code: websocket.CloseNormalClosure}
		abnormal := &websocket.CloseError{Code: websocket.CloseAbnormalClosure}

		So(isClosure(normal), ShouldBeTrue)
		So(isError(normal), ShouldBeFalse)
		So(isClosure(abnormal), ShouldBeFalse)
		So(isError(abnormal), ShouldBeTrue)
		So(isClosure(nil), ShouldBeFalse)
	})
}
