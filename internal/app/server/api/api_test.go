package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportsync/internal/app/client/remote"
	"reportsync/internal/domain/report"
	"reportsync/internal/infrastructure/storage/media"
	"reportsync/internal/utils/logger"
)

// memRepository mirrors the unique constraints of the postgres schema.
type memRepository struct {
	mu       sync.Mutex
	byID     map[string]*report.Report
	byClient map[string]string
	media    map[string]report.Media
}

func newMemRepository() *memRepository {
	return &memRepository{
		byID:     make(map[string]*report.Report),
		byClient: make(map[string]string),
		media:    make(map[string]report.Media),
	}
}

func (m *memRepository) Upsert(_ context.Context, r *report.Report) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byClient[r.ClientID]; ok {
		if m.byID[id].ReporterID != r.ReporterID {
			return "", false, report.ErrConflict
		}
		return id, false, nil
	}
	cp := *r
	m.byID[r.ID] = &cp
	m.byClient[r.ClientID] = r.ID
	return r.ID, true, nil
}

func (m *memRepository) Get(_ context.Context, id string) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, report.NotFound(id)
	}
	cp := *r
	cp.MediaCount = m.mediaCount(id)
	return &cp, nil
}

func (m *memRepository) ListByReporter(_ context.Context, reporterID string) ([]report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []report.Report
	for _, r := range m.byID {
		if r.ReporterID == reporterID {
			cp := *r
			cp.MediaCount = m.mediaCount(r.ID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepository) UpsertMedia(_ context.Context, md *report.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[md.ReportID+"/"+md.AttachmentID] = *md
	return nil
}

func (m *memRepository) mediaCount(reportID string) int {
	n := 0
	for _, md := range m.media {
		if md.ReportID == reportID {
			n++
		}
	}
	return n
}

type server struct {
	url  string
	fs   afero.Fs
	repo *memRepository
}

func newServer(t *testing.T) *server {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo := newMemRepository()
	router := New(Deps{
		Reports: repo,
		Media:   media.New(fs, logger.Discard()),
	}, logger.Discard())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, fs: fs, repo: repo}
}

func (s *server) backend(reporterID string) *remote.HTTPBackend {
	return remote.NewHTTPBackend(remote.HTTPConfig{
		BaseURL:    s.url,
		ReporterID: reporterID,
		Timeout:    5 * time.Second,
	}, logger.Discard())
}

func payload() report.Payload {
	return report.Payload{
		Category:     report.CategoryRightsViolation,
		IncidentDate: "2026-04-02",
		Description:  "Peaceful assembly dispersed without warning.",
		Location:     "Central square",
	}
}

func TestAPI_PushIsIdempotent(t *testing.T) {
	s := newServer(t)
	b := s.backend(uuid.NewString())
	ctx := context.Background()

	clientID := uuid.NewString()
	att := report.NewAttachment("crowd.jpg", []byte("\xff\xd8\xff jpeg bytes"))

	first, err := remote.Push(ctx, b, clientID, payload(), []report.Attachment{att}, 2)
	require.NoError(t, err)
	second, err := remote.Push(ctx, b, clientID, payload(), []report.Attachment{att}, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reports, err := b.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, clientID, reports[0].ClientID)
	assert.Equal(t, 1, reports[0].MediaCount)
	assert.Equal(t, "rights_violation incident on 2026-04-02", reports[0].Title)

	stored, err := afero.ReadFile(s.fs, report.MediaPath(first, att))
	require.NoError(t, err)
	assert.Equal(t, att.Data, stored)
}

func TestAPI_ReportsAreScopedToReporter(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	alice := s.backend(uuid.NewString())
	bob := s.backend(uuid.NewString())

	clientID := uuid.NewString()
	remoteID, err := alice.CreateReport(ctx, clientID, payload())
	require.NoError(t, err)

	reports, err := bob.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	_, err = bob.UploadAttachment(ctx, remoteID, report.NewAttachment("x.png", []byte("png")))
	assert.ErrorIs(t, err, report.ErrBackend)
	assert.Contains(t, err.Error(), "404")

	_, err = bob.CreateReport(ctx, clientID, payload())
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrBackend)
}

func TestAPI_InvalidPayloadIsNotRetryable(t *testing.T) {
	s := newServer(t)
	b := s.backend(uuid.NewString())

	p := payload()
	p.Description = "too short"
	_, err := b.CreateReport(context.Background(), uuid.NewString(), p)

	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrValidation)
	assert.False(t, report.IsRetryable(err))
	assert.Contains(t, err.Error(), "description")
}

func TestAPI_CorruptedUploadRejected(t *testing.T) {
	s := newServer(t)
	b := s.backend(uuid.NewString())
	ctx := context.Background()

	remoteID, err := b.CreateReport(ctx, uuid.NewString(), payload())
	require.NoError(t, err)

	att := report.NewAttachment("doc.pdf", []byte("%PDF-1.7"))
	att.Checksum = report.Checksum([]byte("something else"))
	_, err = b.UploadAttachment(ctx, remoteID, att)
	assert.ErrorIs(t, err, report.ErrValidation)
}

func TestAPI_RequiresReporter(t *testing.T) {
	s := newServer(t)

	resp, err := http.Get(s.url + "/api/v1/reports")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	health, err := http.Get(s.url + "/api/v1/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestAPI_Metrics(t *testing.T) {
	s := newServer(t)
	b := s.backend(uuid.NewString())
	_, err := b.CreateReport(context.Background(), uuid.NewString(), payload())
	require.NoError(t, err)

	resp, err := http.Get(s.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `reports_upserted_total{created="true"} 1`)
	assert.Contains(t, string(body), "http_requests_total")
}
