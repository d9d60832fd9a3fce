package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/updwatch/internal/auth"
	"github.com/loykin/updwatch/internal/checker"
	"github.com/loykin/updwatch/internal/metrics"
	"github.com/loykin/updwatch/internal/store"
)

// Router provides embeddable HTTP handlers around a checker.
// Endpoints:
//   GET  {basePath}/healthz      liveness probe
//   GET  {basePath}/status       report of the most recent run (404 before the first run)
//   POST {basePath}/check        run a check now and return its report
//   GET  {basePath}/runs         run history, query: server=...&since=24h&limit=50
//   GET  {basePath}/runs/last    most recent persisted run
//   GET  {basePath}/metrics      Prometheus metrics
//
// basePath may be empty or start with '/'; no trailing slash. When bearer
// auth is set, healthz and metrics stay open for probes and scrapes.

// Runner is the part of the checker the HTTP layer needs.
type Runner interface {
	Run(ctx context.Context) *checker.Report
	LastReport() *checker.Report
}

type Router struct {
	runner   Runner
	db       store.Store
	server   string
	basePath string
	auth     *auth.Service
}

// NewRouter constructs a Router. db may be nil when no history store is
// configured; server is the default server name for history queries.
func NewRouter(runner Runner, db store.Store, server, basePath string) *Router {
	return &Router{runner: runner, db: db, server: server, basePath: sanitizeBase(basePath)}
}

// SetAuth guards every endpoint except healthz and metrics with bearer auth.
// A nil service leaves the API open.
func (r *Router) SetAuth(s *auth.Service) { r.auth = s }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	api := group.Group("")
	if r.auth != nil {
		api.Use(r.auth.GinMiddleware())
	}
	api.GET("/status", r.handleStatus)
	api.POST("/check", r.handleCheck)
	api.GET("/runs", r.handleRuns)
	api.GET("/runs/last", r.handleLastRun)
	return g
}

// Config holds the standalone server options.
type Config struct {
	Listen   string
	BasePath string
	TLS      *tls.Config
	Auth     *auth.Service
}

// Start launches a standalone HTTP server for the router. The returned server
// can be shut down with its Shutdown or Close method.
func Start(cfg Config, runner Runner, db store.Store, server string) *http.Server {
	r := NewRouter(runner, db, server, cfg.BasePath)
	r.SetAuth(cfg.Auth)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if cfg.TLS != nil {
		srv.TLSConfig = cfg.TLS
		go func() { _ = srv.ListenAndServeTLS("", "") }()
	} else {
		go func() { _ = srv.ListenAndServe() }()
	}
	return srv
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	rep := r.runner.LastReport()
	if rep == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "no check has run yet"})
		return
	}
	writeJSON(c, http.StatusOK, rep)
}

func (r *Router) handleCheck(c *gin.Context) {
	rep := r.runner.Run(c.Request.Context())
	writeJSON(c, http.StatusOK, rep)
}

// runView is the wire shape of one persisted run; sql null types stay at the
// store boundary.
type runView struct {
	RunID            string     `json:"run_id"`
	Server           string     `json:"server"`
	Outcome          string     `json:"outcome"`
	EventID          int        `json:"event_id"`
	FromVersion      string     `json:"from_version,omitempty"`
	ToVersion        string     `json:"to_version,omitempty"`
	UpdateTime       *time.Time `json:"update_time,omitempty"`
	DurationSeconds  *int64     `json:"duration_seconds,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	CheckedAt        time.Time  `json:"checked_at"`
}

func toView(rec store.Record) runView {
	v := runView{
		RunID:            rec.RunID,
		Server:           rec.Server,
		Outcome:          rec.Outcome,
		EventID:          rec.EventID,
		FromVersion:      rec.FromVersion,
		ToVersion:        rec.ToVersion,
		Reason:           rec.Reason,
		NotificationSent: rec.NotificationSent,
		CheckedAt:        rec.CheckedAt,
	}
	if rec.UpdateTime.Valid {
		t := rec.UpdateTime.Time
		v.UpdateTime = &t
	}
	if rec.DurationSeconds.Valid {
		d := rec.DurationSeconds.Int64
		v.DurationSeconds = &d
	}
	return v
}

func (r *Router) handleRuns(c *gin.Context) {
	if r.db == nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: "history store not configured"})
		return
	}
	server := c.DefaultQuery("server", r.server)
	if !isSafeName(server) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid server: allowed [A-Za-z0-9._-]"})
		return
	}
	since, err := time.ParseDuration(c.DefaultQuery("since", "24h"))
	if err != nil || since <= 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid since: want a positive duration like 24h"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid limit: want a positive integer"})
		return
	}
	recs, err := r.db.RunsSince(c.Request.Context(), server, time.Now().Add(-since), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	views := make([]runView, len(recs))
	for i, rec := range recs {
		views[i] = toView(rec)
	}
	writeJSON(c, http.StatusOK, views)
}

func (r *Router) handleLastRun(c *gin.Context) {
	if r.db == nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: "history store not configured"})
		return
	}
	server := c.DefaultQuery("server", r.server)
	if !isSafeName(server) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid server: allowed [A-Za-z0-9._-]"})
		return
	}
	rec, err := r.db.LastRun(c.Request.Context(), server)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "no run recorded"})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, toView(rec))
}
