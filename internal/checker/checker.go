package checker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loykin/updwatch/internal/audit"
	"github.com/loykin/updwatch/internal/checkpoint"
	"github.com/loykin/updwatch/internal/config"
	"github.com/loykin/updwatch/internal/encoding"
	"github.com/loykin/updwatch/internal/metrics"
	"github.com/loykin/updwatch/internal/notify"
	"github.com/loykin/updwatch/internal/oplog"
	"github.com/loykin/updwatch/internal/store"
	"github.com/loykin/updwatch/internal/trigger"
)

// Checker runs the detection pipeline: validate config, read the checkpoint,
// scan the event log for a trigger, inspect the per-day detail log, persist
// the checkpoint and hand the verdict to the notifier and the audit sink.
// Runs are serialized; a second Run blocks until the first finishes.
//
// The checkpoint is written before the notification goes out. A crash or
// transport failure after the write therefore loses at most one message and
// never produces repeated notifications for the same trigger.
type Checker struct {
	cfg      *config.Config
	mu       sync.Mutex
	log      *slog.Logger
	notifier notify.Notifier
	sink     audit.Sink
	db       store.Store
	last     *Report
	now      func() time.Time
}

// New returns a Checker with a nop audit sink and no notifier or store.
func New(cfg *config.Config) *Checker {
	return &Checker{
		cfg:  cfg,
		log:  slog.Default(),
		sink: audit.Nop{},
		now:  time.Now,
	}
}

func (c *Checker) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

// SetNotifier installs the outbound transport. With no notifier set, runs are
// classified and audited but nothing is sent and NotificationSent stays false.
func (c *Checker) SetNotifier(n notify.Notifier) { c.notifier = n }

func (c *Checker) SetAuditSink(s audit.Sink) {
	if s != nil {
		c.sink = s
	}
}

// SetStore installs the optional run-history store. Write failures degrade to
// a warning.
func (c *Checker) SetStore(s store.Store) { c.db = s }

// LastReport returns a copy of the most recent run's report, or nil before the
// first run.
func (c *Checker) LastReport() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	cp := *c.last
	return &cp
}

// Run executes one complete check. It never returns nil and never panics: any
// unexpected fault is caught and reported as a general error. The returned
// report's exit code is the process outcome for one-shot invocations.
func (c *Checker) Run(ctx context.Context) (report *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	started := c.now()
	defer func() {
		if rec := recover(); rec != nil {
			report = c.fail(ctx, KindUnexpected, fmt.Sprintf("unexpected failure: %v", rec))
		}
		report.CheckedAt = started
		c.last = report
		c.record(ctx, report, started)
		finished := c.now()
		metrics.ObserveCheck(string(report.Outcome), finished.Sub(started).Seconds(), finished)
	}()
	report = c.run(ctx, started)
	return report
}

func (c *Checker) run(ctx context.Context, started time.Time) *Report {
	if err := c.cfg.Validate(); err != nil {
		kind := KindConfigInvalidValue
		if errors.Is(err, config.ErrMissingKey) {
			kind = KindConfigMissingKey
		}
		return c.fail(ctx, kind, err.Error())
	}
	cp := checkpoint.Store{Dir: c.cfg.State.Dir, Server: c.cfg.Server}

	if fi, err := os.Stat(c.cfg.Logs.Dir); err != nil {
		return c.fail(ctx, KindLogsDirMissing, fmt.Sprintf("logs directory not found: %s", c.cfg.Logs.Dir))
	} else if !fi.IsDir() {
		return c.fail(ctx, KindLogsDirMissing, fmt.Sprintf("logs path is not a directory: %s", c.cfg.Logs.Dir))
	}

	since, _ := cp.Load()

	eventPath := c.cfg.EventLogPath()
	raw, err := os.ReadFile(eventPath)
	if err != nil {
		if os.IsNotExist(err) {
			return c.fail(ctx, KindEventLogMissing, fmt.Sprintf("event log not found: %s", eventPath))
		}
		return c.fail(ctx, KindLogRead, fmt.Sprintf("read event log %s: %v", eventPath, err))
	}
	text, err := encoding.Decode(raw, c.cfg.Logs.Encoding)
	if err != nil {
		return c.fail(ctx, KindLogRead, fmt.Sprintf("decode event log %s: %v", eventPath, err))
	}

	ev := trigger.Scan(splitLines(text), since, c.cfg.TriggerRegexp())
	if ev == nil {
		if err := cp.Save(started); err != nil {
			return c.failCheckpoint(ctx, err, nil)
		}
		msg := fmt.Sprintf("no update detected for %s", c.cfg.Server)
		c.log.Info(msg, "server", c.cfg.Server, "checkpoint", started.Format(checkpoint.Layout))
		c.auditWrite(ctx, audit.SeverityInfo, WireEventNoUpdate, msg)
		return &Report{Outcome: OutcomeNoUpdate, EventID: WireEventNoUpdate, Message: msg}
	}

	res, failed := c.inspect(ctx, ev)
	if failed != nil {
		return failed
	}

	if err := cp.Save(started); err != nil {
		return c.failCheckpoint(ctx, err, res)
	}

	msg := c.formatMessage(res)
	sent := false
	if c.notifier != nil {
		if err := c.notifier.Send(ctx, msg); err != nil {
			metrics.IncNotifyFailure()
			emsg := fmt.Sprintf("notification failed: %v", err)
			c.log.Error(emsg, "server", c.cfg.Server, "notifier", c.notifier.Name())
			c.auditWrite(ctx, audit.SeverityError, KindNotifyTransport.WireCode(), emsg)
			return &Report{Outcome: OutcomeError, EventID: KindNotifyTransport.WireCode(), Message: emsg, Result: res}
		}
		sent = true
	}

	if res.Status == oplog.StatusSuccess {
		c.log.Info(msg, "server", c.cfg.Server, "from", res.FromVersion, "to", res.ToVersion, "duration_seconds", res.DurationSeconds)
		c.auditWrite(ctx, audit.SeverityInfo, WireEventSuccess, msg)
		return &Report{Outcome: OutcomeSuccess, EventID: WireEventSuccess, NotificationSent: sent, Message: msg, Result: res}
	}
	code := res.kind.WireCode()
	c.log.Error(msg, "server", c.cfg.Server, "from", res.FromVersion, "to", res.ToVersion, "reason", res.Reason)
	c.auditWrite(ctx, audit.SeverityError, code, msg)
	return &Report{Outcome: OutcomeUpdateFailed, EventID: code, NotificationSent: sent, Message: msg, Result: res}
}

// inspect reads the per-day detail log for a trigger and classifies the
// attempt. A missing detail log is a failed update, not a run error; an
// unreadable or undecodable one aborts the run before any checkpoint write.
func (c *Checker) inspect(ctx context.Context, ev *trigger.Event) (*Result, *Report) {
	path := c.cfg.UpdateLogPath(ev.Timestamp)
	res := &Result{
		FromVersion:   ev.FromVersion,
		ToVersion:     ev.ToVersion,
		UpdateTime:    ev.Timestamp,
		UpdateLogPath: path,
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			res.Status = oplog.StatusFailed
			res.Reason = fmt.Sprintf("update log not found: %s", path)
			res.kind = KindUpdateLogMissing
			return res, nil
		}
		return nil, c.fail(ctx, KindLogRead, fmt.Sprintf("read update log %s: %v", path, err))
	}
	text, err := encoding.Decode(raw, c.cfg.Logs.Encoding)
	if err != nil {
		return nil, c.fail(ctx, KindLogRead, fmt.Sprintf("decode update log %s: %v", path, err))
	}

	block := oplog.LocateLast(text, c.cfg.Markers.Start, c.cfg.Markers.Completion)
	var m oplog.Markers
	if block.Found {
		m = oplog.CheckMarkers(block.Content, c.cfg.Markers.VersionPhrase, ev.TargetToken, c.cfg.Markers.Completion)
	}
	cls := oplog.Classify(block, m)
	d := oplog.MeasureDuration(splitLines(text))

	res.Status = cls.Status
	res.VersionConfirmed = cls.VersionConfirmed
	res.CompletionConfirmed = cls.CompletionConfirmed
	res.OperationFound = cls.OperationFound
	res.Reason = cls.Reason
	if d.Valid {
		res.StartTime = d.Start
		res.EndTime = d.End
		res.DurationSeconds = d.Seconds
	}
	if cls.Status != oplog.StatusSuccess {
		res.kind = KindValidationFailed
	}
	return res, nil
}

func (c *Checker) formatMessage(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: update %s -> %s ", c.cfg.Server, r.FromVersion, r.ToVersion)
	if r.Status == oplog.StatusSuccess {
		b.WriteString("succeeded")
		if !r.StartTime.IsZero() {
			fmt.Fprintf(&b, " in %s", time.Duration(r.DurationSeconds)*time.Second)
		}
	} else {
		b.WriteString("failed: ")
		b.WriteString(r.Reason)
	}
	return b.String()
}

// fail reports a run-aborting condition. The same text goes to the logger and
// the audit sink so operators see one story regardless of which they watch.
func (c *Checker) fail(ctx context.Context, kind ErrorKind, msg string) *Report {
	code := kind.WireCode()
	c.log.Error(msg, "server", c.cfg.Server, "event_id", code, "category", string(kind.Category()))
	c.auditWrite(ctx, audit.SeverityError, code, msg)
	return &Report{Outcome: OutcomeError, EventID: code, Message: msg}
}

func (c *Checker) failCheckpoint(ctx context.Context, err error, res *Result) *Report {
	kind := KindCheckpointWrite
	if errors.Is(err, checkpoint.ErrCreateDir) {
		kind = KindCheckpointDir
	}
	rep := c.fail(ctx, kind, err.Error())
	rep.Result = res
	return rep
}

func (c *Checker) auditWrite(ctx context.Context, sev audit.Severity, code int, msg string) {
	e := audit.Entry{Time: c.now(), Severity: sev, EventID: code, Server: c.cfg.Server, Message: msg}
	if err := c.sink.Write(ctx, e); err != nil {
		metrics.IncAuditFailure()
		c.log.Warn("audit write failed", "error", err)
	}
}

// record persists the run to the optional history store.
func (c *Checker) record(ctx context.Context, rep *Report, started time.Time) {
	if c.db == nil {
		return
	}
	rec := store.Record{
		RunID:            ulid.Make().String(),
		Server:           c.cfg.Server,
		Outcome:          string(rep.Outcome),
		EventID:          rep.EventID,
		NotificationSent: rep.NotificationSent,
		Reason:           rep.Message,
		CheckedAt:        started.UTC(),
	}
	if r := rep.Result; r != nil {
		rec.FromVersion = r.FromVersion
		rec.ToVersion = r.ToVersion
		rec.UpdateTime = sql.NullTime{Time: r.UpdateTime.UTC(), Valid: true}
		if !r.StartTime.IsZero() {
			rec.DurationSeconds = sql.NullInt64{Int64: r.DurationSeconds, Valid: true}
		}
		if r.Reason != "" {
			rec.Reason = r.Reason
		}
	}
	if err := c.db.RecordRun(ctx, rec); err != nil {
		c.log.Warn("store write failed", "error", err)
	}
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
