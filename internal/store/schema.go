package store

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username TEXT PRIMARY KEY,
	avatar_url TEXT DEFAULT '',
	access_token TEXT DEFAULT '',
	token_secret TEXT DEFAULT '',
	manual_token TEXT DEFAULT '',
	last_synced_at DATETIME
);

CREATE TABLE IF NOT EXISTS purge_tags (
	username TEXT NOT NULL,
	release_id INTEGER NOT NULL,
	tag TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (username, release_id)
);

CREATE TABLE IF NOT EXISTS priorities (
	username TEXT NOT NULL,
	release_id INTEGER NOT NULL,
	priority BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (username, release_id)
);

CREATE TABLE IF NOT EXISTS play_history (
	username TEXT NOT NULL,
	release_id INTEGER NOT NULL,
	played_at DATETIME NOT NULL,
	PRIMARY KEY (username, release_id)
);

CREATE TABLE IF NOT EXISTS preferences (
	username TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (username, key)
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	name TEXT NOT NULL,
	item_ids TEXT NOT NULL DEFAULT '[]',  -- JSON array, play order
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);
`
