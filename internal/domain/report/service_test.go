package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, r *Report) (string, bool, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Report), args.Error(1)
}

func (m *MockRepository) ListByReporter(ctx context.Context, reporterID string) ([]Report, error) {
	args := m.Called(ctx, reporterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Report), args.Error(1)
}

func (m *MockRepository) UpsertMedia(ctx context.Context, media *Media) error {
	args := m.Called(ctx, media)
	return args.Error(0)
}

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Put(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

const (
	reporterID = "5b0f3f58-7e58-4d39-9d3c-0f1f0b4f6a11"
	clientID   = "0e8b7a56-5a7e-4e3b-8f0e-6a3c1c2b9d01"
)

func validPayload() Payload {
	return Payload{
		Category:     CategoryCensorship,
		IncidentDate: "2024-03-01",
		Description:  "Blog post removed after publication",
		ContactEmail: "a@example.org",
	}
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockMediaStore), slog.Default())

	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *Report) bool {
		return r.ClientID == clientID &&
			r.ReporterID == reporterID &&
			r.Title == "censorship incident on 2024-03-01" &&
			r.Status == StatusReceived &&
			r.Progress == 0
	})).Return("remote-1", true, nil)

	res, err := svc.Create(context.Background(), reporterID, clientID, validPayload())
	require.NoError(t, err)
	assert.Equal(t, CreateResult{ID: "remote-1", ClientID: clientID, Created: true}, res)

	repo.AssertExpectations(t)
}

func TestService_Create_Anonymous(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockMediaStore), slog.Default())

	p := validPayload()
	p.Anonymous = true
	p.ContactPhone = "+100000000"

	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *Report) bool {
		return r.Payload.ContactEmail == "" && r.Payload.ContactPhone == ""
	})).Return("remote-1", true, nil)

	_, err := svc.Create(context.Background(), reporterID, clientID, p)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Create_Existing(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockMediaStore), slog.Default())

	repo.On("Upsert", mock.Anything, mock.Anything).Return("remote-1", false, nil)

	res, err := svc.Create(context.Background(), reporterID, clientID, validPayload())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "remote-1", res.ID)
}

func TestService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		payload  Payload
	}{
		{name: "bad client id", clientID: "nope", payload: validPayload()},
		{name: "short description", clientID: clientID, payload: Payload{
			Category: CategoryOther, IncidentDate: "2024-03-01", Description: "short",
		}},
		{name: "unknown category", clientID: clientID, payload: Payload{
			Category: "spam", IncidentDate: "2024-03-01", Description: "long enough text",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo, new(MockMediaStore), slog.Default())

			_, err := svc.Create(context.Background(), reporterID, tt.clientID, tt.payload)
			assert.ErrorIs(t, err, ErrValidation)
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_Conflict(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockMediaStore), slog.Default())

	repo.On("Upsert", mock.Anything, mock.Anything).Return("", false, ErrConflict)

	_, err := svc.Create(context.Background(), reporterID, clientID, validPayload())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestService_Attach(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockMediaStore)
	svc := NewService(repo, store, slog.Default())

	att := NewAttachment("photo.png", []byte("png-bytes"))
	wantPath := "reports/remote-1/" + att.ID + ".png"

	repo.On("Get", mock.Anything, "remote-1").Return(&Report{ID: "remote-1", ReporterID: reporterID}, nil)
	store.On("Put", mock.Anything, wantPath, att.Data).Return(nil)
	repo.On("UpsertMedia", mock.Anything, mock.MatchedBy(func(m *Media) bool {
		return m.ReportID == "remote-1" && m.AttachmentID == att.ID && m.Path == wantPath && m.Size == 9
	})).Return(nil)

	path, err := svc.Attach(context.Background(), reporterID, "remote-1", att)
	require.NoError(t, err)
	assert.Equal(t, wantPath, path)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestService_Attach_OtherReporter(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockMediaStore)
	svc := NewService(repo, store, slog.Default())

	repo.On("Get", mock.Anything, "remote-1").Return(&Report{ID: "remote-1", ReporterID: "someone-else"}, nil)

	_, err := svc.Attach(context.Background(), reporterID, "remote-1", NewAttachment("a.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, ErrNotFound)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Attach_StoreFailure(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockMediaStore)
	svc := NewService(repo, store, slog.Default())

	repo.On("Get", mock.Anything, "remote-1").Return(&Report{ID: "remote-1", ReporterID: reporterID}, nil)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Attach(context.Background(), reporterID, "remote-1", NewAttachment("a.jpg", []byte("jpg")))
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpsertMedia", mock.Anything, mock.Anything)
}

func TestService_List(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockMediaStore), slog.Default())

	repo.On("ListByReporter", mock.Anything, reporterID).Return([]Report{{ID: "b"}, {ID: "a"}}, nil)

	reports, err := svc.List(context.Background(), reporterID)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}
