package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"reportsync/internal/app/client/config"
	"reportsync/internal/app/client/connectivity"
	"reportsync/internal/app/client/notify"
	"reportsync/internal/app/client/queue"
	"reportsync/internal/app/client/remote"
	"reportsync/internal/app/client/submission"
	engine "reportsync/internal/app/client/sync"
	"reportsync/internal/app/client/trigger"
	"reportsync/internal/domain/pending"
	"reportsync/internal/domain/report"
)

// App is the surface the CLI talks to. It owns the queue store and the
// background goroutines started by Watch.
type App struct {
	config     *config.Config
	log        *slog.Logger
	store      queue.Store
	queue      *queue.Queue
	backend    remote.Backend
	sensor     connectivity.Sensor
	prober     *connectivity.Prober
	events     *notify.Broadcaster
	engine     *engine.Engine
	facade     *submission.Facade
	reporterID string
}

type options struct {
	store   queue.Store
	backend remote.Backend
	sensor  connectivity.Sensor
	offline bool
}

type Option func(*options)

// WithStore replaces the SQLite queue store, e.g. with queue.NewMemoryStore().
func WithStore(s queue.Store) Option {
	return func(o *options) { o.store = s }
}

func WithBackend(b remote.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSensor replaces the health prober.
func WithSensor(s connectivity.Sensor) Option {
	return func(o *options) { o.sensor = s }
}

// Offline forces the app to treat the backend as unreachable.
func Offline() Option {
	return func(o *options) { o.offline = true }
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	reporterID, err := loadReporterID(cfg.ReporterIDPath())
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		s, err := queue.OpenSQLite(cfg.QueuePath(), queue.Namespace)
		if err != nil {
			return nil, err
		}
		store = s
	}

	q, err := queue.Open(ctx, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		backend = newBackend(cfg, reporterID, log)
	}

	app := &App{
		config:     cfg,
		log:        log,
		store:      store,
		queue:      q,
		backend:    backend,
		events:     notify.NewBroadcaster(),
		reporterID: reporterID,
	}

	switch {
	case o.offline:
		app.sensor = connectivity.NewManual(false, log)
	case o.sensor != nil:
		app.sensor = o.sensor
	default:
		app.prober = connectivity.NewProber(backend, connectivity.ProberConfig{
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
		}, log)
		app.prober.Probe(ctx)
		app.sensor = app.prober
	}

	app.engine = engine.NewEngine(q, backend, app.sensor, app.events, engine.Config{
		MaxAttempts:       cfg.Sync.MaxAttempts,
		BackoffBase:       cfg.Sync.BackoffBase,
		BackoffMax:        cfg.Sync.BackoffMax,
		UploadConcurrency: cfg.UploadConcurrency,
	}, log)
	app.facade = submission.NewFacade(q, backend, app.sensor, app.events, cfg.UploadConcurrency, log)

	return app, nil
}

func newBackend(cfg *config.Config, reporterID string, log *slog.Logger) remote.Backend {
	if cfg.Backend == config.BackendFake {
		log.Warn("using in-process fake backend; nothing leaves this machine")
		return remote.NewFake()
	}
	return remote.NewHTTPBackend(remote.HTTPConfig{
		BaseURL:    cfg.BaseURL(),
		ReporterID: reporterID,
		Timeout:    cfg.RequestTimeout,
	}, log)
}

// loadReporterID reads the reporter identity from path, creating one on
// first use.
func loadReporterID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err != nil {
			return "", fmt.Errorf("corrupt reporter id in %s: %w", path, err)
		}
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read reporter id: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write reporter id: %w", err)
	}
	return id, nil
}

func (a *App) ReporterID() string {
	return a.reporterID
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) IsOnline() bool {
	return a.sensor.IsOnline()
}

// Submit sends the report directly when possible and queues it otherwise.
func (a *App) Submit(ctx context.Context, p report.Payload, atts []report.Attachment) (submission.Result, error) {
	return a.facade.Submit(ctx, p, atts)
}

// ListAllLocalReports returns every queued report, synced ones included,
// oldest first.
func (a *App) ListAllLocalReports(ctx context.Context) ([]pending.Report, error) {
	return a.queue.ListAll(ctx)
}

// ListLocalSummaries is ListAllLocalReports without attachment bytes.
func (a *App) ListLocalSummaries(ctx context.Context) ([]pending.Summary, error) {
	return a.queue.ListSummaries(ctx)
}

func (a *App) ListPending(ctx context.Context) ([]pending.Report, error) {
	return a.queue.ListPending(ctx)
}

// Discard drops a local report whatever its status.
func (a *App) Discard(ctx context.Context, id string) error {
	if _, err := a.queue.Get(ctx, id); err != nil {
		return err
	}
	if err := a.queue.Remove(ctx, id); err != nil {
		return err
	}
	a.log.Info("report discarded", "id", id)
	return nil
}

func (a *App) Retry(ctx context.Context, id string) (engine.Outcome, error) {
	return a.engine.Retry(ctx, id)
}

// Sync attempts every pending report now, ignoring backoff.
func (a *App) Sync(ctx context.Context) engine.Result {
	return a.engine.SyncAll(ctx)
}

// Stalled reports whether s is no longer retried automatically.
func (a *App) Stalled(s pending.Summary) bool {
	return a.engine.StalledAt(s.Status, s.Attempts)
}

// RequestSync asks a running Watch, possibly in another process, to sync.
func (a *App) RequestSync() error {
	return trigger.RequestSync(a.config.DataDir)
}

func (a *App) ListRemoteReports(ctx context.Context) ([]report.Report, error) {
	return a.backend.ListReports(ctx)
}

func (a *App) Events() (<-chan notify.Event, func()) {
	return a.events.Subscribe()
}

// Watch runs the background trigger, and the health prober when one is in
// use, until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	t := trigger.New(a.engine, a.sensor, a.log, trigger.WithNudgeDir(a.config.DataDir))

	g, ctx := errgroup.WithContext(ctx)
	if a.prober != nil {
		g.Go(func() error {
			a.prober.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return t.Run(ctx)
	})
	return g.Wait()
}

func (a *App) Close() error {
	return a.store.Close()
}

type appKey struct{}

func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func FromContext(ctx context.Context) (*App, bool) {
	app, ok := ctx.Value(appKey{}).(*App)
	return app, ok
}

// AttachmentFromFile reads path into an attachment, refusing files over
// report.MaxAttachmentSize before reading them.
func AttachmentFromFile(path string) (report.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return report.Attachment{}, fmt.Errorf("attachment %s: %w", path, err)
	}
	if info.IsDir() {
		return report.Attachment{}, report.Validation(fmt.Sprintf("attachment %s is a directory", path))
	}
	if info.Size() > report.MaxAttachmentSize {
		return report.Attachment{}, report.Validation(fmt.Sprintf("attachment %s exceeds %d bytes", path, report.MaxAttachmentSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return report.Attachment{}, fmt.Errorf("attachment %s: %w", path, err)
	}
	return report.NewAttachment(path, data), nil
}
