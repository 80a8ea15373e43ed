package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"reportsync/internal/app/server/config"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.DB.DatabaseURI = "postgres://reports@localhost/reports"
	cfg.DB.Migrations = "migrations"
	return cfg
}

func TestMigration_Up(t *testing.T) {
	tests := []struct {
		name     string
		upErr    error
		closeErr error
		wantErr  bool
	}{
		{name: "applied"},
		{name: "no change", upErr: migrate.ErrNoChange},
		{name: "up fails", upErr: errors.New("dirty database version 2"), wantErr: true},
		{name: "close fails", closeErr: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockM := new(MockMigrator)
			mockM.On("Up").Return(tt.upErr)
			mockM.On("Close").Return(nil, tt.closeErr)

			var gotSource, gotDB string
			engine := func(source, db string) (Migrator, error) {
				gotSource, gotDB = source, db
				return mockM, nil
			}

			err := NewMigration(testConfig(), engine).Up()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "file://migrations", gotSource)
			assert.Equal(t, "postgres://reports@localhost/reports", gotDB)
			mockM.AssertExpectations(t)
		})
	}
}

func TestMigration_Up_EngineError(t *testing.T) {
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("no such directory")
	}

	err := NewMigration(testConfig(), engine).Up()
	assert.Error(t, err)
}

func TestMigration_SourceURLKeepsScheme(t *testing.T) {
	cfg := testConfig()
	cfg.DB.Migrations = "file:///srv/reportsync/migrations"
	assert.Equal(t, "file:///srv/reportsync/migrations", NewMigration(cfg, nil).sourceURL())
}
