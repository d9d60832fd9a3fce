package updwatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/updwatch/internal/audit"
	auditfactory "github.com/loykin/updwatch/internal/audit/factory"
	iauth "github.com/loykin/updwatch/internal/auth"
	"github.com/loykin/updwatch/internal/checker"
	"github.com/loykin/updwatch/internal/checkpoint"
	cfg "github.com/loykin/updwatch/internal/config"
	"github.com/loykin/updwatch/internal/cron"
	"github.com/loykin/updwatch/internal/metrics"
	"github.com/loykin/updwatch/internal/notify"
	iapi "github.com/loykin/updwatch/internal/server"
	"github.com/loykin/updwatch/internal/store"
	storefactory "github.com/loykin/updwatch/internal/store/factory"
	itls "github.com/loykin/updwatch/internal/tls"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Report = checker.Report

type Result = checker.Result

type Outcome = checker.Outcome

const (
	OutcomeSuccess      = checker.OutcomeSuccess
	OutcomeNoUpdate     = checker.OutcomeNoUpdate
	OutcomeUpdateFailed = checker.OutcomeUpdateFailed
	OutcomeError        = checker.OutcomeError
)

// Collaborator interfaces for embedding custom transports and sinks.

type Notifier = notify.Notifier

type AuditSink = audit.Sink

type Store = store.Store

// RunRecord is one persisted check run from the history store.
type RunRecord = store.Record

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Watcher is a thin facade over internal/checker.Checker, wired from a Config:
// logger per [log], notification transports per [notify], audit sink per
// [audit], history store per [store].

type Watcher struct {
	cfg       *cfg.Config
	inner     *checker.Checker
	notifier  notify.Notifier
	sink      audit.Sink
	db        store.Store
	auth      *iauth.Service
	logCloser io.Closer
}

func New(c *Config) (*Watcher, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	log, logCloser, err := c.Log.Setup()
	if err != nil {
		return nil, err
	}
	w := &Watcher{cfg: c, inner: checker.New(c), logCloser: logCloser}
	w.inner.SetLogger(log)

	authSvc, err := iauth.New(c.Serve.Auth)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	w.auth = authSvc

	if n := buildNotifier(c); n != nil {
		w.notifier = n
		w.inner.SetNotifier(n)
	}

	sink, err := auditfactory.NewSinkFromDSN(c.Audit.DSN, audit.FileOptions{
		MaxSizeMB:  c.Audit.MaxSizeMB,
		MaxBackups: c.Audit.MaxBackups,
		MaxAgeDays: c.Audit.MaxAgeDays,
		Compress:   c.Audit.Compress,
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	w.sink = sink
	w.inner.SetAuditSink(sink)

	if c.Store.DSN != "" {
		db, err := storefactory.NewFromDSN(c.Store.DSN)
		if err == nil {
			err = db.EnsureSchema(context.Background())
		}
		if err != nil {
			_ = sink.Close()
			_ = logCloser.Close()
			return nil, err
		}
		w.db = db
		w.inner.SetStore(db)
	}
	return w, nil
}

func buildNotifier(c *cfg.Config) notify.Notifier {
	var targets notify.Multi
	if c.Notify.Telegram.Token != "" && c.Notify.Telegram.ChatID != "" {
		if c.Notify.Telegram.APIBase != "" {
			targets = append(targets, notify.NewTelegramAt(c.Notify.Telegram.APIBase, c.Notify.Telegram.Token, c.Notify.Telegram.ChatID))
		} else {
			targets = append(targets, notify.NewTelegram(c.Notify.Telegram.Token, c.Notify.Telegram.ChatID))
		}
	}
	if c.Notify.Webhook.URL != "" {
		targets = append(targets, notify.NewWebhook(c.Notify.Webhook.URL))
	}
	if c.Notify.Console {
		targets = append(targets, notify.NewConsole())
	}
	switch len(targets) {
	case 0:
		return nil
	case 1:
		return targets[0]
	default:
		return targets
	}
}

// Check runs one detection pass and returns its report. The report's exit
// code is the intended process exit status for one-shot invocations.
func (w *Watcher) Check(ctx context.Context) *Report { return w.inner.Run(ctx) }

// LastReport returns the most recent report, or nil before the first check.
func (w *Watcher) LastReport() *Report { return w.inner.LastReport() }

// SetNotifier replaces the configured notification transport.
func (w *Watcher) SetNotifier(n Notifier) {
	w.notifier = n
	w.inner.SetNotifier(n)
}

// SetAuditSink replaces the configured audit sink.
func (w *Watcher) SetAuditSink(s AuditSink) {
	w.sink = s
	w.inner.SetAuditSink(s)
}

// SetStore replaces the configured history store.
func (w *Watcher) SetStore(s Store) {
	w.db = s
	w.inner.SetStore(s)
}

// NotifyTest sends text through the configured transports without running a
// check. Used to verify credentials after setup.
func (w *Watcher) NotifyTest(ctx context.Context, text string) error {
	if w.notifier == nil {
		return errors.New("no notification transport configured")
	}
	return w.notifier.Send(ctx, text)
}

func (w *Watcher) checkpointStore() checkpoint.Store {
	return checkpoint.Store{Dir: w.cfg.State.Dir, Server: w.cfg.Server}
}

// Checkpoint returns the stored checkpoint timestamp, if any.
func (w *Watcher) Checkpoint() (time.Time, bool) { return w.checkpointStore().Load() }

// CheckpointPath is the file the checkpoint lives in.
func (w *Watcher) CheckpointPath() string { return w.checkpointStore().Path() }

// ResetCheckpoint removes the checkpoint so the next check rescans the whole
// event log.
func (w *Watcher) ResetCheckpoint() error { return w.checkpointStore().Reset() }

// LastRun returns the most recent persisted run for this watcher's server.
// It returns nil without error when no history store is configured or nothing
// has been recorded yet.
func (w *Watcher) LastRun(ctx context.Context) (*RunRecord, error) {
	if w.db == nil {
		return nil, nil
	}
	rec, err := w.db.LastRun(ctx, w.cfg.Server)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Scheduler runs checks on the configured "@every" interval.

type Scheduler struct{ inner *cron.Scheduler }

func (w *Watcher) NewScheduler() *Scheduler {
	return &Scheduler{inner: cron.New(w.cfg.Serve.Schedule, func() {
		w.inner.Run(context.Background())
	})}
}

func (s *Scheduler) Start() error { return s.inner.Start() }
func (s *Scheduler) Stop()        { s.inner.Stop() }

// NewHTTPServer starts the HTTP API on the configured listen address,
// provisioning TLS from [serve] when configured. Shut it down with its
// Shutdown or Close method.
func (w *Watcher) NewHTTPServer() (*http.Server, error) {
	tlsCfg, err := itls.Setup(w.cfg.Serve)
	if err != nil {
		return nil, err
	}
	return iapi.Start(iapi.Config{
		Listen:   w.cfg.Serve.Listen,
		BasePath: w.cfg.Serve.BasePath,
		TLS:      tlsCfg,
		Auth:     w.auth,
	}, w.inner, w.db, w.cfg.Server), nil
}

// Handler returns the HTTP API as an embeddable handler for mounting into an
// existing mux.
func (w *Watcher) Handler() http.Handler {
	r := iapi.NewRouter(w.inner, w.db, w.cfg.Server, w.cfg.Serve.BasePath)
	r.SetAuth(w.auth)
	return r.Handler()
}

// IssueAPIToken mints a bearer token for the HTTP API. Requires [serve.auth]
// with a jwt_secret.
func (w *Watcher) IssueAPIToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if w.auth == nil {
		return "", time.Time{}, errors.New("serve.auth not enabled")
	}
	return w.auth.IssueToken(subject, ttl)
}

// HashAPIToken returns a bcrypt hash suitable for the serve.auth.token_hash key.
func HashAPIToken(token string) (string, error) { return iauth.HashToken(token) }

// Close releases the store, the audit sink and the log writer.
func (w *Watcher) Close() error {
	var errs []error
	if w.db != nil {
		errs = append(errs, w.db.Close())
	}
	if w.sink != nil {
		errs = append(errs, w.sink.Close())
	}
	if w.logCloser != nil {
		errs = append(errs, w.logCloser.Close())
	}
	return errors.Join(errs...)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
