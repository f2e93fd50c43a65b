package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssant/internal/domain/entity"
	"rssant/internal/infra/adapter/persistence/postgres"
)

func feedCreationColumnNames() []string {
	return []string{"id", "user_id", "url", "is_from_bookmark", "status", "message", "feed_id", "dt_created", "dt_updated"}
}

func TestFeedCreationRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(feedCreationColumnNames()).
			AddRow(int64(1), int64(9), "https://a.com/feed", false, "PENDING", "", nil, now, now))

	repo := postgres.NewFeedCreationRepo(db)
	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.FeedCreationPending, got.Status)
}

func TestFeedCreationRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	fc := &entity.FeedCreation{UserID: 9, URL: "https://a.com/feed", Status: entity.FeedCreationPending,
		DtCreated: now, DtUpdated: now}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feed_creations`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	repo := postgres.NewFeedCreationRepo(db)
	err = repo.Create(context.Background(), fc)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fc.ID)
}

func TestFeedCreationRepo_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE feed_creations SET status`).
		WithArgs("READY", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedCreationRepo(db)
	err = repo.UpdateStatus(context.Background(), 1, entity.FeedCreationReady)
	require.NoError(t, err)
}

func TestFeedCreationRepo_DeleteTerminalOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DELETE FROM feed_creations`).
		WithArgs(time.Now()).
		WillReturnResult(sqlmock.NewResult(0, 5))

	repo := postgres.NewFeedCreationRepo(db)
	n, err := repo.DeleteTerminalOlderThan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestFeedCreationRepo_FindStuck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(`FROM feed_creations WHERE status`).
		WithArgs("UPDATING", now).
		WillReturnRows(sqlmock.NewRows(feedCreationColumnNames()).
			AddRow(int64(1), int64(9), "https://a.com/feed", false, "UPDATING", "", nil, now, now))

	repo := postgres.NewFeedCreationRepo(db)
	got, err := repo.FindStuck(context.Background(), entity.FeedCreationUpdating, now)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
