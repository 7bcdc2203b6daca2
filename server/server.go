package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"frozenlake/environment"
	"frozenlake/reinforcement"
	"frozenlake/server/fastview"
	"frozenlake/server/root_view"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Time allowed for in-flight requests to finish on shutdown.
const shutdownGracePeriod = 5 * time.Second

// Server serves a single page of live training views and the websocket that feeds it.
// The ele-update channel is shared, so it is intended for one viewer at a time: with
// several open pages, each update reaches only one of them.
type Server struct {
	addr     string
	table    *reinforcement.ValueTable
	rootView *root_view.RootView
	ctx      context.Context
	router   *mux.Router
}

// NewServer initializes all of the views and returns a server. Views stop when ctx is done.
// The index page falls back to table until the first snapshot arrives.
func NewServer(
	ctx context.Context,
	addr string,
	lake *environment.FrozenLake,
	table *reinforcement.ValueTable,
	snapshots <-chan reinforcement.Snapshot,
) (*Server, error) {
	rootView, err := root_view.NewRootView(ctx, lake, snapshots)
	if err != nil {
		return nil, err
	}

	server := &Server{
		addr:     addr,
		table:    table,
		rootView: rootView,
		ctx:      ctx,
	}

	router := mux.NewRouter()
	router.Use(CorrelationID, RequestLogger(log.Logger), middleware.Recoverer)
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	server.router = router
	return server, nil
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", server.addr).Msg("Serving live view")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// serveWebsocket publishes view updates to the client via websocket until it disconnects
// or the server stops.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r.WithContext(server.ctx))
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	log.Debug().Str("remote", r.RemoteAddr).Msg("Live view connected")
	if err := cli.Sync(); err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Live view disconnected")
		return
	}
	log.Debug().Str("remote", r.RemoteAddr).Msg("Live view closed")
}

// Serve the index.html main page, rendered from the latest snapshot the views have seen.
// Before the first snapshot, the table's current values are shown.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	snap, ok := server.rootView.Latest()
	if !ok {
		snap = reinforcement.Snapshot{Values: server.table.Snapshot()}
	}
	board := server.rootView.Board(snap)
	var page bytes.Buffer
	if err := renderTemplate(&page, server.rootView, board); err != nil {
		log.Error().Err(err).Msg("Index render failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = page.WriteTo(w)
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
