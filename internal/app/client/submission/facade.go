package submission

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"reportsync/internal/app/client/notify"
	"reportsync/internal/app/client/remote"
	"reportsync/internal/domain/report"
)

type Queue interface {
	EnqueueWithID(ctx context.Context, id string, p report.Payload, atts []report.Attachment) (string, error)
}

type Sensor interface {
	IsOnline() bool
}

// Result holds exactly one of Confirmed (the backend's report id) or Queued
// (the local id of a report saved for later sync).
type Result struct {
	Confirmed string `json:"confirmed,omitempty"`
	Queued    string `json:"queued,omitempty"`
}

func (r Result) IsQueued() bool {
	return r.Queued != ""
}

// Facade is the single entry point for submitting a report.
type Facade struct {
	queue       Queue
	backend     remote.Backend
	sensor      Sensor
	events      notify.Publisher
	concurrency int
	log         *slog.Logger
}

func NewFacade(q Queue, backend remote.Backend, sensor Sensor, events notify.Publisher, concurrency int, log *slog.Logger) *Facade {
	if events == nil {
		events = notify.Discard{}
	}
	return &Facade{
		queue:       q,
		backend:     backend,
		sensor:      sensor,
		events:      events,
		concurrency: concurrency,
		log:         log.With("component", "submission"),
	}
}

// Submit validates the report and writes it to the backend, falling back to
// the local queue when the backend is unreachable or fails in a retryable
// way. Validation failures, local or remote, are returned and nothing is
// queued.
func (f *Facade) Submit(ctx context.Context, p report.Payload, atts []report.Attachment) (Result, error) {
	p = p.Normalize()
	prepared := make([]report.Attachment, len(atts))
	for i, a := range atts {
		a.Prepare()
		prepared[i] = a
	}
	if err := report.ValidateSubmission(p, prepared); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	log := f.log.With("id", id)

	if f.sensor.IsOnline() {
		remoteID, err := remote.Push(ctx, f.backend, id, p, prepared, f.concurrency)
		if err == nil {
			log.Info("report submitted", "remote_id", remoteID)
			return Result{Confirmed: remoteID}, nil
		}
		if !report.IsRetryable(err) {
			log.Warn("report rejected", "error", err)
			return Result{}, err
		}
		log.Warn("direct submit failed, queueing", "error", err)
	} else {
		log.Info("offline, queueing report")
	}

	// The push may have failed because ctx expired; the report must still land.
	if _, err := f.queue.EnqueueWithID(context.WithoutCancel(ctx), id, p, prepared); err != nil {
		return Result{}, err
	}

	f.events.Publish(notify.Event{Kind: notify.KindReportQueued, ReportID: id})
	return Result{Queued: id}, nil
}
