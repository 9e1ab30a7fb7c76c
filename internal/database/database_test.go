package database_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-studio-client/internal/database"
	"image-studio-client/internal/logging"
	"image-studio-client/internal/models"
)

func openMigrated(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "state", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logging.Discard()).Run())
	return db
}

func TestOpen_SelectsDriver(t *testing.T) {
	db := openMigrated(t)
	assert.Equal(t, database.DriverSQLite, db.Driver())
}

func TestMigrator_IsIdempotent(t *testing.T) {
	db := openMigrated(t)
	assert.NoError(t, database.NewMigrator(db, logging.Discard()).Run())
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	repo := database.NewSessionRepository(openMigrated(t))

	_, _, err := repo.LoadSession()
	assert.ErrorIs(t, err, database.ErrNoSession)

	require.NoError(t, repo.SaveSession("tok-1", &models.User{ID: "u-1", Email: "a@example.com"}))
	require.NoError(t, repo.SaveSession("tok-2", &models.User{ID: "u-1", Email: "b@example.com"}))

	token, user, err := repo.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, "b@example.com", user.Email)

	require.NoError(t, repo.DeleteSession())
	_, _, err = repo.LoadSession()
	assert.ErrorIs(t, err, database.ErrNoSession)
}

func TestHistoryRepository_ListsNewestFirst(t *testing.T) {
	repo := database.NewHistoryRepository(openMigrated(t))
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.RecordOutcome(database.JobOutcome{
		ImageID: "img-1", Prompt: "make sky bluer", State: models.JobSucceeded, RecordedAt: base,
	}))
	require.NoError(t, repo.RecordOutcome(database.JobOutcome{
		ImageID: "img-2", Prompt: "remove car", State: models.JobFailed, Detail: "model overloaded", RecordedAt: base.Add(time.Minute),
	}))

	outcomes, err := repo.ListOutcomes(10)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "img-2", outcomes[0].ImageID)
	assert.Equal(t, models.JobFailed, outcomes[0].State)
	assert.Equal(t, "model overloaded", outcomes[0].Detail)
	assert.Equal(t, "img-1", outcomes[1].ImageID)
}
