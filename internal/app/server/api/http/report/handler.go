package report

import (
	"context"
	"errors"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reportsync/internal/app/client/remote"
	"reportsync/internal/app/server/api/http/middleware/reporter"
	"reportsync/internal/domain/report"
)

// base64 inflates by 4/3; leave room for the JSON envelope.
const maxAttachmentBody = report.MaxAttachmentSize/3*4 + 1<<20

// Recorder receives domain metrics.
type Recorder interface {
	ReportUpserted(created bool)
	AttachmentStored(size int)
}

type Handler struct {
	service    report.Servicer
	metrics    Recorder
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service report.Servicer, metrics Recorder, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		metrics:    metrics,
		log:        log.With("component", "report_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.upsertOp(), h.upsert)
	huma.Register(api, h.attachOp(), h.attach)
	huma.Register(api, h.listOp(), h.list)
}

func (h *Handler) upsert(ctx context.Context, input *upsertInput) (*upsertOutput, error) {
	reporterID, ok := reporter.GetReporterID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	res, err := h.service.Create(ctx, reporterID, input.ID, input.Body)
	if err != nil {
		return nil, h.toHTTP(err)
	}
	h.metrics.ReportUpserted(res.Created)

	return &upsertOutput{
		Body: remote.CreateReportResponse{
			ID:       res.ID,
			ClientID: res.ClientID,
			Created:  res.Created,
		},
	}, nil
}

func (h *Handler) attach(ctx context.Context, input *attachInput) (*attachOutput, error) {
	reporterID, ok := reporter.GetReporterID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	a := report.Attachment{
		ID:          input.AttachmentID,
		Filename:    input.Body.Filename,
		ContentType: input.Body.ContentType,
		Data:        input.Body.Data,
		Checksum:    input.Body.Checksum,
	}

	path, err := h.service.Attach(ctx, reporterID, input.ID, a)
	if err != nil {
		return nil, h.toHTTP(err)
	}
	h.metrics.AttachmentStored(len(a.Data))

	return &attachOutput{
		Body: remote.UploadAttachmentResponse{Path: path},
	}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	reporterID, ok := reporter.GetReporterID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	reports, err := h.service.List(ctx, reporterID)
	if err != nil {
		return nil, h.toHTTP(err)
	}
	if reports == nil {
		reports = []report.Report{}
	}

	return &listOutput{
		Body: remote.ListReportsResponse{
			Reports: reports,
			Total:   len(reports),
		},
	}, nil
}

// toHTTP maps domain errors onto problem responses the client can classify.
func (h *Handler) toHTTP(err error) error {
	var verr *report.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]error, 0, len(verr.Fields))
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			details = append(details, &huma.ErrorDetail{
				Message:  verr.Fields[f],
				Location: "body." + f,
			})
		}
		return huma.Error422UnprocessableEntity("validation failed", details...)
	case errors.Is(err, report.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, report.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, report.ErrConflict):
		return huma.Error409Conflict(err.Error())
	default:
		h.log.Error("request failed", "error", err)
		return huma.Error500InternalServerError("internal error")
	}
}
