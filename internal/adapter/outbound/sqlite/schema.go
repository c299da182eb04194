package sqlite

// schema creates the catalog tables. Statements are idempotent so the schema
// can be applied on every open.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS folders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		is_synced   INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id          TEXT PRIMARY KEY,
		folder_id   TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT,
		color_code  TEXT,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		is_synced   INTEGER NOT NULL DEFAULT 0,
		UNIQUE (folder_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS sets (
		id          TEXT PRIMARY KEY,
		course_id   TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		is_synced   INTEGER NOT NULL DEFAULT 0,
		UNIQUE (course_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS problems (
		id               TEXT PRIMARY KEY,
		set_id           TEXT NOT NULL REFERENCES sets(id) ON DELETE CASCADE,
		title            TEXT NOT NULL,
		description      TEXT,
		image_path       TEXT NOT NULL,
		confidence_level INTEGER NOT NULL DEFAULT 0,
		notes            TEXT,
		attempt_count    INTEGER NOT NULL DEFAULT 0,
		success_rate     REAL NOT NULL DEFAULT 0,
		last_attempted   TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		is_synced        INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS problems_set_id_idx ON problems (set_id)`,
}
