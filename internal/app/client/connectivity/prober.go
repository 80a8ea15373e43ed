package connectivity

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

// Checker is anything that can tell whether the backend is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

type ProberConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Prober derives connectivity from periodic health checks. It starts
// offline; Run probes once immediately.
type Prober struct {
	*state
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

func NewProber(checker Checker, cfg ProberConfig, log *slog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	log = log.With("component", "connectivity")
	return &Prober{
		state:    newState(false, log),
		checker:  checker,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// Probe runs one health check and updates the state.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Health(ctx)
	if err != nil {
		p.log.Debug("health probe failed", "error", err)
	}
	online := err == nil
	p.set(online)
	return online
}

// Run probes until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
