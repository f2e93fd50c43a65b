package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssant/internal/domain/entity"
	"rssant/internal/infra/adapter/persistence/postgres"
	"rssant/internal/pkg/monthid"
)

func feedColumnNames() []string {
	return []string{"id", "url", "title", "link", "author", "icon", "description",
		"version", "encoding", "etag", "last_modified", "content_hash_base64",
		"status", "dt_updated", "dt_checked", "dt_synced"}
}

func feedRow(f *entity.Feed) *sqlmock.Rows {
	return sqlmock.NewRows(feedColumnNames()).AddRow(
		f.ID, f.URL, f.Title, f.Link, f.Author, f.Icon, f.Description,
		f.Version, f.Encoding, f.ETag, f.LastModified, f.ContentHashBase64,
		string(f.Status), f.DtUpdated, f.DtChecked, f.DtSynced,
	)
}

func TestFeedRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	want := &entity.Feed{ID: 1, URL: "https://example.com/feed", Status: entity.FeedStatusReady,
		DtUpdated: now, DtChecked: now, DtSynced: now}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(1)).
		WillReturnRows(feedRow(want))
	mock.ExpectQuery(`FROM feed_monthly_story_counts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"month_id", "count"}).AddRow(int32(672), int64(3)))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, int64(3), got.MonthlyStoryCount[672])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows(feedColumnNames()))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFeedRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	f := &entity.Feed{URL: "https://example.com/feed", Status: entity.FeedStatusPending,
		DtUpdated: now, DtChecked: now, DtSynced: now}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feeds`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	repo := postgres.NewFeedRepo(db)
	err = repo.Create(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_TakeOutdated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	rows := feedRow(&entity.Feed{ID: 1, URL: "https://a.com/feed", Status: entity.FeedStatusReady,
		DtUpdated: now, DtChecked: now.Add(-time.Hour), DtSynced: now.Add(-time.Hour)})

	mock.ExpectQuery(`FROM feeds WHERE dt_checked`).WillReturnRows(rows)

	repo := postgres.NewFeedRepo(db)
	feeds, err := repo.TakeOutdated(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, feeds, 1)
}

func TestFeedRepo_NextOffset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feed_offsets`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"next_offset"}).AddRow(int64(7)))

	repo := postgres.NewFeedRepo(db)
	offset, err := repo.NextOffset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), offset)
}

func TestFeedRepo_IncrementMonthlyCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO feed_monthly_story_counts`)).
		WithArgs(int64(1), int32(672), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedRepo(db)
	err = repo.IncrementMonthlyCount(context.Background(), 1, 672, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_MergeInto(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM storys`).WithArgs(int64(1)).WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(101)).AddRow(int64(102)))

	// Each moved story is renumbered against the target feed's own offset
	// counter, not left on the source's.
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feed_offsets`)).WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows([]string{"next_offset"}).AddRow(int64(0)))
	mock.ExpectExec(`UPDATE storys SET feed_id`).
		WithArgs(int64(2), int64(0), monthid.StoryID(2, 0), int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feed_offsets`)).WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows([]string{"next_offset"}).AddRow(int64(1)))
	mock.ExpectExec(`UPDATE storys SET feed_id`).
		WithArgs(int64(2), int64(1), monthid.StoryID(2, 1), int64(102)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`DELETE FROM user_feeds`).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE user_feeds SET feed_id`).WithArgs(int64(2), int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO feed_monthly_story_counts`)).WithArgs(int64(2), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM feed_monthly_story_counts`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM feed_offsets`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM feeds WHERE`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := postgres.NewFeedRepo(db)
	err = repo.MergeInto(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedRepo_MergeInto_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM storys`).WithArgs(int64(1)).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	repo := postgres.NewFeedRepo(db)
	err = repo.MergeInto(context.Background(), 1, 2)
	assert.Error(t, err)
}
