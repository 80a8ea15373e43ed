package media

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportsync/internal/utils/logger"
)

func TestStore_PutOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, logger.Discard())
	ctx := context.Background()
	p := "reports/r-1/a-1.png"

	require.NoError(t, s.Put(ctx, p, []byte("first")))
	require.NoError(t, s.Put(ctx, p, []byte("second")))

	got, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := afero.ReadDir(fs, "reports/r-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_RejectsTraversal(t *testing.T) {
	s := New(afero.NewMemMapFs(), logger.Discard())
	ctx := context.Background()

	for _, p := range []string{"", "/", "../etc/passwd", "reports/../../x"} {
		assert.Error(t, s.Put(ctx, p, []byte("x")), p)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := New(afero.NewMemMapFs(), logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, "reports/r-1/a.pdf", []byte("x")), context.Canceled)
}

func TestNewDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDir(dir, logger.Discard())
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "reports/r-2/b.pdf", []byte("%PDF")))

	got, err := afero.ReadFile(afero.NewOsFs(), dir+"/reports/r-2/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))
}
