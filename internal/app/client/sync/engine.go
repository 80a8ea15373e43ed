package sync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"

	"reportsync/internal/app/client/notify"
	"reportsync/internal/app/client/queue"
	"reportsync/internal/app/client/remote"
	"reportsync/internal/domain/pending"
	"reportsync/internal/domain/report"
)

type Queue interface {
	Get(ctx context.Context, id string) (*pending.Report, error)
	ListPending(ctx context.Context) ([]pending.Report, error)
	RecordAttempt(ctx context.Context, id string, a queue.Attempt) (*pending.Report, error)
}

type Sensor interface {
	IsOnline() bool
}

type Config struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	UploadConcurrency int
}

type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDiscarded means the record was removed from the queue before
	// or during the attempt.
	OutcomeDiscarded Outcome = "discarded"
)

// Result counts what one run did. Stalled and Deferred are only set by
// SyncDue.
type Result struct {
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Stalled  int `json:"stalled"`
	Deferred int `json:"deferred"`
}

func (r Result) Attempted() int {
	return r.Synced + r.Failed
}

// Engine reconciles the local queue with the backend. It holds no locks:
// concurrent runs are safe because every remote write is keyed by the local
// report id.
type Engine struct {
	queue   Queue
	backend remote.Backend
	sensor  Sensor
	events  notify.Publisher
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

func NewEngine(q Queue, backend remote.Backend, sensor Sensor, events notify.Publisher, cfg Config, log *slog.Logger) *Engine {
	if events == nil {
		events = notify.Discard{}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = time.Hour
	}
	return &Engine{
		queue:   q,
		backend: backend,
		sensor:  sensor,
		events:  events,
		cfg:     cfg,
		log:     log.With("component", "sync_engine"),
		now:     time.Now,
	}
}

// SyncOne pushes one report. An absent or already synced report is skipped.
// The returned error is the cause of a failed outcome; the same failure is
// also stored on the record.
func (e *Engine) SyncOne(ctx context.Context, id string) (Outcome, error) {
	r, err := e.queue.Get(ctx, id)
	if errors.Is(err, report.ErrNotFound) {
		return OutcomeDiscarded, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}
	if r.Status.IsSynced() {
		return OutcomeSkipped, nil
	}
	return e.attempt(ctx, r)
}

func (e *Engine) attempt(ctx context.Context, r *pending.Report) (Outcome, error) {
	log := e.log.With("id", r.ID, "attempt", r.Attempts+1)

	remoteID, pushErr := remote.Push(ctx, e.backend, r.ID, r.Payload, r.Attachments, e.cfg.UploadConcurrency)

	// The outcome is persisted even when ctx was cancelled mid-push.
	storeCtx := context.WithoutCancel(ctx)

	if pushErr == nil {
		_, err := e.queue.RecordAttempt(storeCtx, r.ID, queue.Attempt{
			Status:   pending.Synced(),
			RemoteID: remoteID,
			At:       e.now(),
		})
		switch {
		case errors.Is(err, report.ErrNotFound):
			log.Info("report synced after local discard", "remote_id", remoteID)
		case err != nil:
			log.Error("report pushed but not marked synced", "remote_id", remoteID, "error", err)
			return OutcomeFailed, err
		default:
			log.Info("report synced", "remote_id", remoteID)
		}
		return OutcomeSynced, nil
	}

	retryable := report.IsRetryable(pushErr)
	_, err := e.queue.RecordAttempt(storeCtx, r.ID, queue.Attempt{
		Status: pending.Failed(pushErr.Error(), retryable),
		At:     e.now(),
	})
	switch {
	case errors.Is(err, pending.ErrInvalidTransition):
		log.Debug("report synced by a concurrent run", "error", pushErr)
		return OutcomeSkipped, nil
	case errors.Is(err, report.ErrNotFound):
		log.Debug("report discarded during sync")
		return OutcomeDiscarded, nil
	case err != nil:
		log.Error("failed to record sync failure", "error", err, "cause", pushErr)
		return OutcomeFailed, err
	}

	log.Warn("report sync failed", "retryable", retryable, "error", pushErr)
	return OutcomeFailed, pushErr
}

// SyncAll attempts every pending report, oldest first, one at a time. It
// does nothing while offline and never returns an error: per-report failures
// are stored on the reports.
func (e *Engine) SyncAll(ctx context.Context) Result {
	return e.run(ctx, false)
}

// SyncDue is SyncAll for automatic triggers: reports still inside their
// backoff window are deferred and stalled reports are left for the user.
func (e *Engine) SyncDue(ctx context.Context) Result {
	return e.run(ctx, true)
}

func (e *Engine) run(ctx context.Context, dueOnly bool) Result {
	var res Result

	if !e.sensor.IsOnline() {
		e.log.Debug("offline, sync skipped")
		return res
	}

	reports, err := e.queue.ListPending(ctx)
	if err != nil {
		e.log.Error("failed to list pending reports", "error", err)
		return res
	}
	if len(reports) == 0 {
		return res
	}

	started := e.now()
	for i := range reports {
		if ctx.Err() != nil {
			e.log.Info("sync abandoned", "remaining", len(reports)-i)
			break
		}

		r := &reports[i]
		if dueOnly {
			if e.Stalled(r) {
				res.Stalled++
				continue
			}
			if !e.due(r) {
				res.Deferred++
				continue
			}
		}

		outcome, _ := e.SyncOne(ctx, r.ID)
		switch outcome {
		case OutcomeSynced:
			res.Synced++
		case OutcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	if res.Stalled > 0 {
		e.log.Warn("reports need attention", "stalled", res.Stalled)
	}
	if res.Attempted() > 0 {
		e.log.Info("sync completed",
			"synced", res.Synced,
			"failed", res.Failed,
			"duration", e.now().Sub(started),
		)
		e.events.Publish(notify.Event{
			Kind:    notify.KindSyncCompleted,
			Synced:  res.Synced,
			Failed:  res.Failed,
			Stalled: res.Stalled,
		})
	}
	return res
}

// Retry attempts one report now regardless of backoff, attempts or reported
// connectivity.
func (e *Engine) Retry(ctx context.Context, id string) (Outcome, error) {
	r, err := e.queue.Get(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	if r.Status.IsSynced() {
		return OutcomeSkipped, nil
	}

	outcome, err := e.attempt(ctx, r)
	if outcome == OutcomeSynced {
		e.events.Publish(notify.Event{Kind: notify.KindSyncCompleted, ReportID: id, Synced: 1})
	}
	return outcome, err
}

// Stalled reports whether automatic sync has given up on r: it failed
// non-retryably or ran out of attempts.
func (e *Engine) Stalled(r *pending.Report) bool {
	return e.StalledAt(r.Status, r.Attempts)
}

// StalledAt is Stalled for a record known only by its status and attempt
// count, such as a pending.Summary.
func (e *Engine) StalledAt(status pending.Status, attempts int) bool {
	if !status.IsFailed() {
		return false
	}
	if !status.Retryable() {
		return true
	}
	return e.cfg.MaxAttempts > 0 && attempts >= e.cfg.MaxAttempts
}

func (e *Engine) due(r *pending.Report) bool {
	if r.Attempts == 0 || r.LastAttemptAt == nil {
		return true
	}
	return !e.now().Before(r.LastAttemptAt.Add(e.Backoff(r.Attempts)))
}

// Backoff is the wait after the given number of failed attempts:
// base * 2^(attempts-1), capped at the configured maximum.
func (e *Engine) Backoff(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	shift := attempts - 1
	if shift > 30 {
		return e.cfg.BackoffMax
	}
	d := e.cfg.BackoffBase * time.Duration(1<<shift)
	if d <= 0 || d > e.cfg.BackoffMax {
		return e.cfg.BackoffMax
	}
	return d
}
