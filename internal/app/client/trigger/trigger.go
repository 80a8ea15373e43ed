package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"

	engine "reportsync/internal/app/client/sync"
)

// NudgeFile is written by RequestSync to ask a running trigger for a sync.
const NudgeFile = "sync.request"

type Syncer interface {
	SyncDue(ctx context.Context) engine.Result
}

type Sensor interface {
	IsOnline() bool
	OnBecameOnline(handler func()) (unsubscribe func())
}

// Trigger runs the sync engine at start when online, on every
// offline->online transition and whenever the nudge file changes. Runs are
// sequential; signals arriving during a run collapse into one follow-up run.
type Trigger struct {
	syncer   Syncer
	sensor   Sensor
	nudgeDir string
	log      *slog.Logger

	mu          sync.Mutex
	running     bool
	kick        chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
	watcher     *fsnotify.Watcher
	unsubscribe func()
	runs        int
}

type Option func(*Trigger)

// WithNudgeDir watches dir/NudgeFile for sync requests from other processes.
func WithNudgeDir(dir string) Option {
	return func(t *Trigger) {
		t.nudgeDir = dir
	}
}

func New(syncer Syncer, sensor Sensor, log *slog.Logger, opts ...Option) *Trigger {
	t := &Trigger{
		syncer: syncer,
		sensor: sensor,
		log:    log.With("component", "trigger"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins listening and returns immediately.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	var watcher *fsnotify.Watcher
	if t.nudgeDir != "" {
		if err := os.MkdirAll(t.nudgeDir, 0o700); err != nil {
			return fmt.Errorf("create nudge dir: %w", err)
		}
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(t.nudgeDir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", t.nudgeDir, err)
		}
		watcher = w
	}

	ctx, cancel := context.WithCancel(ctx)
	t.kick = make(chan struct{}, 1)
	t.done = make(chan struct{})
	t.cancel = cancel
	t.watcher = watcher
	t.running = true

	t.unsubscribe = t.sensor.OnBecameOnline(t.signal)
	if t.sensor.IsOnline() {
		t.kick <- struct{}{}
	}

	go t.loop(ctx, watcher, t.kick, t.done)

	t.log.Info("background sync started", "nudge_dir", t.nudgeDir)
	return nil
}

// Stop ends listening and waits for an in-flight run to finish.
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.unsubscribe()
	t.cancel()
	done := t.done
	watcher := t.watcher
	t.mu.Unlock()

	<-done
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			t.log.Error("failed to close watcher", "error", err)
		}
	}
	t.log.Info("background sync stopped")
}

// Run starts the trigger and blocks until ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	t.Stop()
	return nil
}

// Runs is the number of completed sync runs.
func (t *Trigger) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func (t *Trigger) signal() {
	t.mu.Lock()
	kick := t.kick
	t.mu.Unlock()
	if kick == nil {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

func (t *Trigger) loop(ctx context.Context, watcher *fsnotify.Watcher, kick <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}
	nudgePath := filepath.Join(t.nudgeDir, NudgeFile)

	for {
		select {
		case <-ctx.Done():
			return

		case <-kick:
			res := t.syncer.SyncDue(ctx)
			t.mu.Lock()
			t.runs++
			t.mu.Unlock()
			t.log.Debug("sync run finished",
				"synced", res.Synced,
				"failed", res.Failed,
				"stalled", res.Stalled,
				"deferred", res.Deferred,
			)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != nudgePath {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			t.log.Debug("sync requested", "path", event.Name)
			t.signal()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.log.Error("watcher error", "error", err)
		}
	}
}

// RequestSync asks a trigger watching dataDir to run a sync.
func RequestSync(dataDir string) error {
	path := filepath.Join(dataDir, NudgeFile)
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.WriteFile(path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("write sync request: %w", err)
	}
	return nil
}
