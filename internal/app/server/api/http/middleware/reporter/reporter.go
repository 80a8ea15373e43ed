package reporter

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Header carries the reporter identity generated by the client on first run.
const Header = "X-Reporter-Id"

type contextKey string

const reporterIDKey contextKey = "reporterID"

// Reporter rejects requests without a valid reporter identity and stores
// the identity in the request context.
type Reporter struct {
	api huma.API
	log *slog.Logger
}

func New(api huma.API, log *slog.Logger) *Reporter {
	return &Reporter{
		api: api,
		log: log.With("component", "reporter_middleware"),
	}
}

func (r *Reporter) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		raw := ctx.Header(Header)
		id, err := uuid.Parse(raw)
		if raw == "" || err != nil {
			r.log.Warn("rejected request without reporter id", "path", ctx.URL().Path, "remote_addr", ctx.RemoteAddr())
			if err := huma.WriteErr(r.api, ctx, http.StatusUnauthorized, "missing or invalid "+Header+" header"); err != nil {
				r.log.Error("write error response", "error", err)
			}
			return
		}

		next(huma.WithContext(ctx, WithReporterID(ctx.Context(), id.String())))
	}
}

func WithReporterID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reporterIDKey, id)
}

func GetReporterID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reporterIDKey).(string)
	return id, ok && id != ""
}
