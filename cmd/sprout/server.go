package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/sprout/internal/config"
	"github.com/vango-dev/sprout/pkg/archive"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/pipe/wspipe"
	"github.com/vango-dev/sprout/pkg/render"
	"github.com/vango-dev/sprout/pkg/runtime"
	"github.com/vango-dev/sprout/pkg/vdom"
)

type serverDeps struct {
	config   *config.Config
	logger   *slog.Logger
	metrics  *runtime.Metrics
	gatherer prometheus.Gatherer
	recorder archive.Recorder
	history  *archive.History

	// tick overrides the uptime service interval; zero means one second.
	tick time.Duration
}

// server hosts one runtime per WebSocket connection.
type server struct {
	serverDeps

	ctx      context.Context
	sessions atomic.Int64
	active   atomic.Int64
	wg       sync.WaitGroup
}

func newServer(ctx context.Context, deps serverDeps) *server {
	if deps.tick == 0 {
		deps.tick = time.Second
	}
	return &server{serverDeps: deps, ctx: ctx}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// wait blocks until every session has ended.
func (s *server) wait() { s.wg.Wait() }

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	app := newCounterApp(id.NewAllocator(), time.Now(), 0)
	res := render.FromRoot(app.Render())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := writePage(w, res); err != nil {
		s.logger.Error("render snapshot", "error", err)
	}
}

func writePage(w io.Writer, t vdom.Tree) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html>\n<head><title>sprout</title></head>\n<body>\n"); err != nil {
		return err
	}
	if err := vdom.NewHTMLWriter(vdom.HTMLConfig{Pretty: true}).RenderToWriter(w, t); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	session := fmt.Sprintf("s%d", s.sessions.Add(1))
	logger := s.logger.With("session_id", session, "request_id", middleware.GetReqID(r.Context()))

	conn, err := wspipe.Upgrade(w, r, s.config.WSConfig(), logger)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.wg.Add(1)
	s.active.Add(1)
	defer func() {
		s.active.Add(-1)
		s.wg.Done()
	}()

	s.runSession(session, conn, logger)
}

// runSession blocks until the runtime stops. A panic inside the runtime
// closes the connection and is logged; the server keeps running.
func (s *server) runSession(session string, conn *wspipe.Conn, logger *slog.Logger) {
	defer conn.Close()

	app := newCounterApp(id.NewAllocator(), time.Now(), s.tick)
	rt, _ := runtime.New[counterMsg](app, conn,
		runtime.WithConfig(s.config.RuntimeConfig()),
		runtime.WithLogger(logger),
		runtime.WithMetrics(s.metrics),
		runtime.WithRecorder(s.recorder),
		runtime.WithSessionID(session),
	)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("runtime panic", "panic", p)
		}
	}()

	logger.Info("session started")
	err := rt.Run(s.ctx)
	switch {
	case err == nil, stderrors.Is(err, context.Canceled):
		logger.Info("session ended", "stats", rt.Stats().String())
	default:
		logger.Info("session closed", "reason", err, "stats", rt.Stats().String())
	}
}

type health struct {
	Status     string `json:"status"`
	Sessions   int64  `json:"sessions"`
	Patches    int    `json:"patches"`
	PatchBytes string `json:"patchBytes"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{
		Status:     "ok",
		Sessions:   s.active.Load(),
		Patches:    s.history.Count(),
		PatchBytes: humanize.Bytes(uint64(s.history.Bytes())),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h)
}
