package repository

// Portable DDL for SQLite and Postgres. Timestamps are unix microseconds.
// Engagement phase is derived from week and has no column.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS alignment_ratings (
		user_id       TEXT PRIMARY KEY,
		submission_id TEXT NOT NULL,
		feelings      DOUBLE PRECISION NOT NULL,
		influence     DOUBLE PRECISION NOT NULL,
		resilience    DOUBLE PRECISION NOT NULL,
		ethics        DOUBLE PRECISION NOT NULL,
		strengths     DOUBLE PRECISION NOT NULL,
		submitted_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS zone_snapshots (
		user_id          TEXT PRIMARY KEY,
		feelings         DOUBLE PRECISION NOT NULL,
		influence        DOUBLE PRECISION NOT NULL,
		resilience       DOUBLE PRECISION NOT NULL,
		ethics           DOUBLE PRECISION NOT NULL,
		strengths        DOUBLE PRECISION NOT NULL,
		score            INTEGER NOT NULL,
		connections      INTEGER NOT NULL,
		recorded_at      BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS markers (
		id            TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL,
		engagement_id TEXT NOT NULL DEFAULT '',
		connection_id TEXT NOT NULL DEFAULT '',
		label         TEXT NOT NULL,
		direction     TEXT NOT NULL,
		baseline      INTEGER NOT NULL,
		target        INTEGER NOT NULL,
		current_score INTEGER NOT NULL,
		active        BOOLEAN NOT NULL,
		created_at    BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_markers_owner ON markers (owner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS marker_updates (
		id          TEXT PRIMARY KEY,
		marker_id   TEXT NOT NULL REFERENCES markers (id),
		seq         INTEGER NOT NULL,
		score       INTEGER NOT NULL,
		source      TEXT NOT NULL,
		note        TEXT NOT NULL DEFAULT '',
		recorded_at BIGINT NOT NULL,
		UNIQUE (marker_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS engagements (
		id         TEXT PRIMARY KEY,
		client_id  TEXT NOT NULL,
		coach_id   TEXT NOT NULL,
		week       INTEGER NOT NULL,
		status     TEXT NOT NULL,
		start_date BIGINT NOT NULL,
		end_date   BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_engagements_client ON engagements (client_id, start_date)`,
	`CREATE TABLE IF NOT EXISTS visibility_edges (
		from_user  TEXT NOT NULL,
		to_user    TEXT NOT NULL,
		muted_at   BIGINT,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (from_user, to_user)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_to ON visibility_edges (to_user)`,
	`CREATE TABLE IF NOT EXISTS shareable_content (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		author_id    TEXT NOT NULL,
		recipient_id TEXT NOT NULL DEFAULT '',
		body         TEXT NOT NULL,
		dimensions   TEXT NOT NULL DEFAULT '',
		shareable    BOOLEAN NOT NULL,
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_kind_author ON shareable_content (kind, author_id)`,
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}
