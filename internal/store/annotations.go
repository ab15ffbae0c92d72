package store

import (
	"time"

	"github.com/dkessler/cratekeeper/internal/domain"
)

// Annotation rows are keyed by (username, release_id) so one database can
// hold several accounts without mixing their data.

type PurgeTagRow struct {
	Username  string          `db:"username"`
	ReleaseID int             `db:"release_id"`
	Tag       domain.PurgeTag `db:"tag"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type PriorityRow struct {
	Username  string `db:"username"`
	ReleaseID int    `db:"release_id"`
	Priority  bool   `db:"priority"`
}

type PlayHistoryRow struct {
	Username  string    `db:"username"`
	ReleaseID int       `db:"release_id"`
	PlayedAt  time.Time `db:"played_at"`
}

type PreferenceRow struct {
	Username string `db:"username"`
	Key      string `db:"key"`
	Value    string `db:"value"`
}

func (db *DB) GetPurgeTags(username string) (map[int]domain.PurgeTag, error) {
	var rows []PurgeTagRow
	if err := db.Select(&rows, "SELECT username, release_id, tag, updated_at FROM purge_tags WHERE username = ?", username); err != nil {
		return nil, err
	}
	tags := make(map[int]domain.PurgeTag, len(rows))
	for _, r := range rows {
		tags[r.ReleaseID] = r.Tag
	}
	return tags, nil
}

func (db *DB) UpsertPurgeTag(username string, releaseID int, tag domain.PurgeTag) error {
	_, err := db.Exec(`
		INSERT INTO purge_tags (username, release_id, tag, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(username, release_id) DO UPDATE SET tag = excluded.tag, updated_at = excluded.updated_at
	`, username, releaseID, tag, time.Now())
	return err
}

func (db *DB) DeletePurgeTag(username string, releaseID int) error {
	_, err := db.Exec("DELETE FROM purge_tags WHERE username = ? AND release_id = ?", username, releaseID)
	return err
}

func (db *DB) GetPriorities(username string) (map[int]bool, error) {
	var rows []PriorityRow
	if err := db.Select(&rows, "SELECT username, release_id, priority FROM priorities WHERE username = ?", username); err != nil {
		return nil, err
	}
	prio := make(map[int]bool, len(rows))
	for _, r := range rows {
		prio[r.ReleaseID] = r.Priority
	}
	return prio, nil
}

func (db *DB) UpsertPriority(username string, releaseID int, priority bool) error {
	_, err := db.Exec(`
		INSERT INTO priorities (username, release_id, priority) VALUES (?, ?, ?)
		ON CONFLICT(username, release_id) DO UPDATE SET priority = excluded.priority
	`, username, releaseID, priority)
	return err
}

func (db *DB) GetPlayHistory(username string) (map[int]time.Time, error) {
	var rows []PlayHistoryRow
	if err := db.Select(&rows, "SELECT username, release_id, played_at FROM play_history WHERE username = ?", username); err != nil {
		return nil, err
	}
	plays := make(map[int]time.Time, len(rows))
	for _, r := range rows {
		plays[r.ReleaseID] = r.PlayedAt
	}
	return plays, nil
}

func (db *DB) UpsertPlayHistory(username string, releaseID int, playedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO play_history (username, release_id, played_at) VALUES (?, ?, ?)
		ON CONFLICT(username, release_id) DO UPDATE SET played_at = excluded.played_at
	`, username, releaseID, playedAt)
	return err
}

func (db *DB) GetPreferences(username string) (map[string]string, error) {
	var rows []PreferenceRow
	if err := db.Select(&rows, "SELECT username, key, value FROM preferences WHERE username = ?", username); err != nil {
		return nil, err
	}
	prefs := make(map[string]string, len(rows))
	for _, r := range rows {
		prefs[r.Key] = r.Value
	}
	return prefs, nil
}

func (db *DB) UpsertPreference(username, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO preferences (username, key, value) VALUES (?, ?, ?)
		ON CONFLICT(username, key) DO UPDATE SET value = excluded.value
	`, username, key, value)
	return err
}

// WipeUser removes every annotation row for a username. Used by the
// account-switching-safe sync and by full data wipe.
func (db *DB) WipeUser(username string) error {
	for _, q := range []string{
		"DELETE FROM purge_tags WHERE username = ?",
		"DELETE FROM priorities WHERE username = ?",
		"DELETE FROM play_history WHERE username = ?",
		"DELETE FROM preferences WHERE username = ?",
		"DELETE FROM sessions WHERE username = ?",
	} {
		if _, err := db.Exec(q, username); err != nil {
			return err
		}
	}
	return nil
}
