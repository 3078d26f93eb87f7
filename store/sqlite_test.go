package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteGetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestSQLite(t)

	_, ok, err := s.Get(ctx, "ledger")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "ledger", []byte(`{"version":1}`)))
	require.NoError(t, s.Set(ctx, "ledger", []byte(`{"version":1,"lots":[]}`)))
	require.NoError(t, s.Set(ctx, "ledger.malformed.x", []byte(`oops`)))

	got, ok, err := s.Get(ctx, "ledger")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"version":1,"lots":[]}`, string(got))

	keys, err := s.Keys(ctx, "ledger.malformed.")
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger.malformed.x"}, keys)
}

func TestSQLitePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, path := newTestSQLite(t)
	require.NoError(t, s.Set(ctx, "ledger", []byte("doc")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "ledger")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "doc", string(got))
}

func TestFileBackup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, err := NewFileBackup(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)

	_, ok, err := f.Load(ctx, "ledger")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Save(ctx, "ledger", []byte("v1")))
	require.NoError(t, f.Save(ctx, "ledger", []byte("v2")))
	got, ok, err := f.Load(ctx, "ledger")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(got))

	matches, err := filepath.Glob(filepath.Join(f.Dir, "*"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.Dir, "ledger.json")}, matches, "temporary files are cleaned up")

	assert.Error(t, f.Save(ctx, "../escape", []byte("x")))
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, ok, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(got), "values are copied")
	assert.Equal(t, []string{"k"}, m.Keys())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Set(cancelled, "k", nil), context.Canceled)
}
