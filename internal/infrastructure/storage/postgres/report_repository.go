package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"reportsync/internal/domain/report"
)

type ReportRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewReportRepository(pool *pgxpool.Pool, log *slog.Logger) *ReportRepository {
	return &ReportRepository{
		pool: pool,
		log:  log.With("component", "report_repository"),
	}
}

const reportColumns = `
	r.id, r.client_id, r.reporter_id, r.title, r.category, r.incident_date::text,
	r.description, r.location, r.geotagging, r.anonymous, r.contact_email,
	r.contact_phone, r.status, r.progress, r.created_at, r.updated_at,
	(SELECT count(*) FROM report_media m WHERE m.report_id = r.id)`

// Upsert relies on UNIQUE (client_id). The no-op DO UPDATE makes the
// existing row come back through RETURNING; xmax = 0 only for a fresh
// insert. The WHERE clause suppresses the row when another reporter owns
// the client id.
func (r *ReportRepository) Upsert(ctx context.Context, rep *report.Report) (string, bool, error) {
	const query = `
		INSERT INTO reports (
			id, client_id, reporter_id, title, category, incident_date, description,
			location, geotagging, anonymous, contact_email, contact_phone,
			status, progress, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (client_id) DO UPDATE SET client_id = EXCLUDED.client_id
		WHERE reports.reporter_id = EXCLUDED.reporter_id
		RETURNING id, (xmax = 0)`

	p := rep.Payload
	var (
		id      string
		created bool
	)
	err := r.pool.QueryRow(ctx, query,
		rep.ID, rep.ClientID, rep.ReporterID, rep.Title, string(p.Category), p.IncidentDate,
		p.Description, p.Location, p.Geotagging, p.Anonymous, p.ContactEmail, p.ContactPhone,
		rep.Status, rep.Progress, rep.CreatedAt, rep.UpdatedAt,
	).Scan(&id, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		r.log.Warn("client id owned by another reporter", "client_id", rep.ClientID)
		return "", false, report.ErrConflict
	}
	if err != nil {
		r.log.Error("failed to upsert report", "client_id", rep.ClientID, "error", err)
		return "", false, report.Storage("upsert report", err)
	}

	return id, created, nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports r WHERE r.id = $1`

	rep, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, report.NotFound(id)
	}
	if err != nil {
		r.log.Error("failed to get report", "id", id, "error", err)
		return nil, report.Storage("get report", err)
	}
	return rep, nil
}

func (r *ReportRepository) ListByReporter(ctx context.Context, reporterID string) ([]report.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports r
		WHERE r.reporter_id = $1
		ORDER BY r.created_at DESC, r.id`

	rows, err := r.pool.Query(ctx, query, reporterID)
	if err != nil {
		r.log.Error("failed to list reports", "reporter_id", reporterID, "error", err)
		return nil, report.Storage("list reports", err)
	}
	defer rows.Close()

	var reports []report.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, report.Storage("scan report", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, report.Storage("list reports", err)
	}
	return reports, nil
}

// UpsertMedia relies on UNIQUE (report_id, attachment_id): a re-upload
// replaces the row in place.
func (r *ReportRepository) UpsertMedia(ctx context.Context, m *report.Media) error {
	const query = `
		INSERT INTO report_media (
			id, report_id, attachment_id, path, filename, content_type, size, checksum, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (report_id, attachment_id) DO UPDATE SET
			path = EXCLUDED.path,
			filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			checksum = EXCLUDED.checksum
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		m.ID, m.ReportID, m.AttachmentID, m.Path, m.Filename, m.ContentType, m.Size, m.Checksum, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		r.log.Error("failed to upsert media", "report_id", m.ReportID, "attachment_id", m.AttachmentID, "error", err)
		return report.Storage("upsert media", err)
	}
	return nil
}

func scanReport(row pgx.Row) (*report.Report, error) {
	var (
		rep      report.Report
		category string
		created  time.Time
		updated  time.Time
	)
	err := row.Scan(
		&rep.ID, &rep.ClientID, &rep.ReporterID, &rep.Title, &category, &rep.Payload.IncidentDate,
		&rep.Payload.Description, &rep.Payload.Location, &rep.Payload.Geotagging, &rep.Payload.Anonymous,
		&rep.Payload.ContactEmail, &rep.Payload.ContactPhone, &rep.Status, &rep.Progress,
		&created, &updated, &rep.MediaCount,
	)
	if err != nil {
		return nil, err
	}
	rep.Payload.Category = report.Category(category)
	rep.CreatedAt = created.UTC()
	rep.UpdatedAt = updated.UTC()
	return &rep, nil
}
