package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, reporterID, clientID string, p Payload) (CreateResult, error)
	Attach(ctx context.Context, reporterID, reportID string, a Attachment) (string, error)
	List(ctx context.Context, reporterID string) ([]Report, error)
}

type CreateResult struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Created  bool   `json:"created"`
}

// Service holds the backend side of report intake.
type Service struct {
	repo  Repository
	media MediaStore
	log   *slog.Logger
	now   func() time.Time
}

func NewService(repo Repository, media MediaStore, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		media: media,
		log:   log.With("component", "report_service"),
		now:   time.Now,
	}
}

// Create stores a report under its client id. Repeating the call with the
// same client id returns the report created the first time.
func (s *Service) Create(ctx context.Context, reporterID, clientID string, p Payload) (CreateResult, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return CreateResult{}, Validation("report id must be a uuid")
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return CreateResult{}, err
	}

	now := s.now().UTC()
	r := &Report{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		ReporterID: reporterID,
		Title:      p.Title(),
		Payload:    p,
		Status:     StatusReceived,
		Progress:   0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	id, created, err := s.repo.Upsert(ctx, r)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return CreateResult{}, err
		}
		s.log.Error("failed to upsert report", "client_id", clientID, "error", err)
		return CreateResult{}, fmt.Errorf("upsert report: %w", err)
	}

	if created {
		s.log.Info("report created", "report_id", id, "client_id", clientID, "category", p.Category)
	} else {
		s.log.Debug("report already known", "report_id", id, "client_id", clientID)
	}

	return CreateResult{ID: id, ClientID: clientID, Created: created}, nil
}

// Attach writes the attachment blob and records it against the report. The
// storage path is derived from ids only, so a repeated upload overwrites.
func (s *Service) Attach(ctx context.Context, reporterID, reportID string, a Attachment) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}

	r, err := s.repo.Get(ctx, reportID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("get report: %w", err)
	}
	if r.ReporterID != reporterID {
		return "", NotFound(reportID)
	}

	path := MediaPath(r.ID, a)
	if err := s.media.Put(ctx, path, a.Data); err != nil {
		s.log.Error("failed to store media", "report_id", r.ID, "path", path, "error", err)
		return "", fmt.Errorf("store media: %w", err)
	}

	m := &Media{
		ID:           uuid.NewString(),
		ReportID:     r.ID,
		AttachmentID: a.ID,
		Path:         path,
		Filename:     a.Filename,
		ContentType:  a.ContentType,
		Size:         a.Size(),
		Checksum:     Checksum(a.Data),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.UpsertMedia(ctx, m); err != nil {
		s.log.Error("failed to record media", "report_id", r.ID, "attachment_id", a.ID, "error", err)
		return "", fmt.Errorf("upsert media: %w", err)
	}

	s.log.Info("media stored", "report_id", r.ID, "attachment_id", a.ID, "size", m.Size)
	return path, nil
}

func (s *Service) List(ctx context.Context, reporterID string) ([]Report, error) {
	reports, err := s.repo.ListByReporter(ctx, reporterID)
	if err != nil {
		s.log.Error("failed to list reports", "reporter_id", reporterID, "error", err)
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
