package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestOpenMigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err, "second open should see no pending migrations")
	require.NoError(t, repo.Migrate())
	require.NoError(t, repo.Close())
}

func TestSchemaVersion(t *testing.T) {
	repo := newTestRepo(t)
	version, dirty, err := repo.SchemaVersion()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
}

func TestDataSourcePragmas(t *testing.T) {
	assert.Equal(t,
		"file:/tmp/x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		dataSource("/tmp/x.db"))
}

func TestGetUserNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureUserDoesNotReset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.EnsureUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, User{UserID: "42", XP: 0, Level: 1}, *u)

	u.XP = 70
	u.Level = 3
	require.NoError(t, repo.SaveUser(ctx, u))

	again, err := repo.EnsureUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 70, again.XP)
	assert.Equal(t, 3, again.Level)
}

func TestSaveUserInsertsAndUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveUser(ctx, &User{UserID: "7", XP: 10, Level: 1}))
	got, err := repo.GetUser(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, 10, got.XP)

	require.NoError(t, repo.SaveUser(ctx, &User{UserID: "7", XP: 0, Level: 2}))
	got, err = repo.GetUser(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, User{UserID: "7", XP: 0, Level: 2}, *got)
}
