package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger is a dependency whose reachability decides service health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(db Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	db := dbNotConfigured
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.log.Error("database unreachable", "error", err)
			return nil, huma.Error503ServiceUnavailable("database unreachable")
		}
		db = dbUp
	}

	return &Output{
		Body: Response{
			Status:   "OK",
			Database: db,
		},
	}, nil
}
