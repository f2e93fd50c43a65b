package db

import (
	"database/sql"
)

// MigrateUp creates the ingestion pipeline schema: feeds, their monthly
// story-count buckets and offset sequences, storys, subscription-request
// rows, subscriptions, and the url-resolution audit log.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                  SERIAL PRIMARY KEY,
    url                 TEXT NOT NULL UNIQUE,
    title               TEXT NOT NULL DEFAULT '',
    link                TEXT NOT NULL DEFAULT '',
    author              TEXT NOT NULL DEFAULT '',
    icon                TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    version             TEXT NOT NULL DEFAULT '',
    encoding            TEXT NOT NULL DEFAULT '',
    etag                TEXT NOT NULL DEFAULT '',
    last_modified       TEXT NOT NULL DEFAULT '',
    content_hash_base64 TEXT NOT NULL DEFAULT '',
    status              VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    dt_updated          TIMESTAMPTZ NOT NULL DEFAULT now(),
    dt_checked          TIMESTAMPTZ NOT NULL DEFAULT now(),
    dt_synced           TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_offsets (
    feed_id     INTEGER PRIMARY KEY REFERENCES feeds(id) ON DELETE CASCADE,
    next_offset BIGINT NOT NULL DEFAULT 0
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_monthly_story_counts (
    feed_id  INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    month_id INTEGER NOT NULL,
    count    BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (feed_id, month_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS storys (
    id                  BIGINT PRIMARY KEY,
    feed_id             INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    "offset"            BIGINT NOT NULL,
    unique_id           TEXT NOT NULL,
    title               TEXT NOT NULL DEFAULT '',
    link                TEXT NOT NULL DEFAULT '',
    author              TEXT NOT NULL DEFAULT '',
    content             TEXT NOT NULL DEFAULT '',
    summary             TEXT NOT NULL DEFAULT '',
    content_hash_base64 TEXT NOT NULL DEFAULT '',
    dt_published        TIMESTAMPTZ,
    dt_updated          TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (feed_id, unique_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_creations (
    id               SERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL,
    url              TEXT NOT NULL,
    is_from_bookmark BOOLEAN NOT NULL DEFAULT FALSE,
    status           VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    message          TEXT NOT NULL DEFAULT '',
    feed_id          INTEGER REFERENCES feeds(id) ON DELETE SET NULL,
    dt_created       TIMESTAMPTZ NOT NULL DEFAULT now(),
    dt_updated       TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS user_feeds (
    user_id          BIGINT NOT NULL,
    feed_id          INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    is_from_bookmark BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (user_id, feed_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_url_maps (
    source TEXT PRIMARY KEY,
    target TEXT NOT NULL
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_status ON feeds(status)`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_dt_checked ON feeds(dt_checked)`,
		`CREATE INDEX IF NOT EXISTS idx_storys_feed_id ON storys(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_storys_dt_published ON storys(dt_published DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_creations_user_id ON feed_creations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_creations_status ON feed_creations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_user_feeds_feed_id ON user_feeds(feed_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the ingestion pipeline schema in reverse dependency
// order. Use with caution: this deletes all stored feeds and storys.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS feed_url_maps CASCADE`,
		`DROP TABLE IF EXISTS user_feeds CASCADE`,
		`DROP TABLE IF EXISTS feed_creations CASCADE`,
		`DROP TABLE IF EXISTS storys CASCADE`,
		`DROP TABLE IF EXISTS feed_monthly_story_counts CASCADE`,
		`DROP TABLE IF EXISTS feed_offsets CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
