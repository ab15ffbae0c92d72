package store

import (
	"time"

	"github.com/dkessler/cratekeeper/internal/domain"
)

type sessionRow struct {
	ID        string             `db:"id"`
	Username  string             `db:"username"`
	Name      string             `db:"name"`
	ItemIDs   domain.StringSlice `db:"item_ids"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

func (db *DB) ListSessions(username string) ([]domain.Session, error) {
	var rows []sessionRow
	err := db.Select(&rows, "SELECT id, username, name, item_ids, created_at, updated_at FROM sessions WHERE username = ? ORDER BY created_at", username)
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, domain.Session{
			ID:        r.ID,
			Name:      r.Name,
			ItemIDs:   r.ItemIDs,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return sessions, nil
}

func (db *DB) UpsertSession(username string, s domain.Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, username, name, item_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			item_ids = excluded.item_ids,
			updated_at = excluded.updated_at
	`, s.ID, username, s.Name, s.ItemIDs, s.CreatedAt, s.UpdatedAt)
	return err
}

func (db *DB) DeleteSession(username, id string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE username = ? AND id = ?", username, id)
	return err
}
