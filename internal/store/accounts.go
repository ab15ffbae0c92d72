package store

import (
	"database/sql"
	"time"
)

type Account struct {
	Username     string       `db:"username"`
	AvatarURL    string       `db:"avatar_url"`
	AccessToken  string       `db:"access_token"`
	TokenSecret  string       `db:"token_secret"`
	ManualToken  string       `db:"manual_token"`
	LastSyncedAt sql.NullTime `db:"last_synced_at"`
}

func (db *DB) GetAccount(username string) (*Account, error) {
	var a Account
	err := db.Get(&a, "SELECT username, avatar_url, access_token, token_secret, manual_token, last_synced_at FROM accounts WHERE username = ?", username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestAccount returns the most recently synced account, or nil when no
// account has been stored. Used at startup to restore the session credential.
func (db *DB) LatestAccount() (*Account, error) {
	var a Account
	err := db.Get(&a, "SELECT username, avatar_url, access_token, token_secret, manual_token, last_synced_at FROM accounts ORDER BY last_synced_at IS NULL, last_synced_at DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveDelegatedCredential stores the OAuth pair and erases any manual token.
// The two credential sources are never persisted together.
func (db *DB) SaveDelegatedCredential(username, accessToken, tokenSecret string) error {
	_, err := db.Exec(`
		INSERT INTO accounts (username, access_token, token_secret, manual_token)
		VALUES (?, ?, ?, '')
		ON CONFLICT(username) DO UPDATE SET
			access_token = excluded.access_token,
			token_secret = excluded.token_secret,
			manual_token = ''
	`, username, accessToken, tokenSecret)
	return err
}

// SaveManualToken stores the personal token and erases any OAuth pair.
func (db *DB) SaveManualToken(username, token string) error {
	_, err := db.Exec(`
		INSERT INTO accounts (username, manual_token, access_token, token_secret)
		VALUES (?, ?, '', '')
		ON CONFLICT(username) DO UPDATE SET
			manual_token = excluded.manual_token,
			access_token = '',
			token_secret = ''
	`, username, token)
	return err
}

func (db *DB) SetAvatarURL(username, avatarURL string) error {
	_, err := db.Exec(`
		INSERT INTO accounts (username, avatar_url) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET avatar_url = excluded.avatar_url
	`, username, avatarURL)
	return err
}

func (db *DB) SetLastSynced(username string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO accounts (username, last_synced_at) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET last_synced_at = excluded.last_synced_at
	`, username, at)
	return err
}

func (db *DB) DeleteAccount(username string) error {
	_, err := db.Exec("DELETE FROM accounts WHERE username = ?", username)
	return err
}
