package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// SessionService manages curated listening sessions. UpdatedAt moves on
// membership and order changes only; a rename keeps the old timestamp.
type SessionService struct {
	Library  *Library
	Store    Store
	Resolver *auth.Resolver
	Logger   *logger.Logger

	now func() time.Time
}

func NewSessionService(lib *Library, st Store, resolver *auth.Resolver, log *logger.Logger) *SessionService {
	return &SessionService{
		Library:  lib,
		Store:    st,
		Resolver: resolver,
		Logger:   log.WithComponent("sessions"),
		now:      time.Now,
	}
}

// Create adds a new empty session.
func (s *SessionService) Create(name string) domain.Session {
	now := s.now()
	session := domain.Session{
		ID:        uuid.New().String(),
		Name:      name,
		ItemIDs:   domain.StringSlice{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Library.MutateSessions(func(sessions []domain.Session) []domain.Session {
		return append(sessions, session)
	})
	s.persist(session)
	return session
}

// Rename changes a session's name without touching UpdatedAt.
func (s *SessionService) Rename(id, name string) error {
	return s.update(id, func(session *domain.Session) {
		session.Name = name
	})
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	found := false
	s.Library.MutateSessions(func(sessions []domain.Session) []domain.Session {
		out := sessions[:0]
		for _, session := range sessions {
			if session.ID == id {
				found = true
				continue
			}
			out = append(out, session)
		}
		return out
	})
	if !found {
		return fmt.Errorf("sessions: no session %s", id)
	}
	if err := s.Store.DeleteSession(s.Resolver.Username(), id); err != nil {
		s.Logger.Warn("Failed to delete persisted session", "session_id", id, "error", err)
	}
	return nil
}

// AddItem appends a collection item to a session, touching UpdatedAt. An item
// already in the session is left where it is.
func (s *SessionService) AddItem(sessionID, itemID string) error {
	return s.update(sessionID, func(session *domain.Session) {
		for _, existing := range session.ItemIDs {
			if existing == itemID {
				return
			}
		}
		session.ItemIDs = append(session.ItemIDs, itemID)
		session.UpdatedAt = s.now()
	})
}

// RemoveItem drops a collection item from a session, touching UpdatedAt.
func (s *SessionService) RemoveItem(sessionID, itemID string) error {
	return s.update(sessionID, func(session *domain.Session) {
		out := session.ItemIDs[:0]
		removed := false
		for _, existing := range session.ItemIDs {
			if existing == itemID {
				removed = true
				continue
			}
			out = append(out, existing)
		}
		session.ItemIDs = out
		if removed {
			session.UpdatedAt = s.now()
		}
	})
}

// Reorder replaces a session's play order, touching UpdatedAt.
func (s *SessionService) Reorder(sessionID string, itemIDs []string) error {
	return s.update(sessionID, func(session *domain.Session) {
		session.ItemIDs = domain.StringSlice(itemIDs)
		session.UpdatedAt = s.now()
	})
}

// Bookmark adds an item to the most recent session, creating a default-named
// session first if none exist yet.
func (s *SessionService) Bookmark(itemID string) (domain.Session, error) {
	sessions := s.Library.Sessions()
	if len(sessions) == 0 {
		created := s.Create(constants.DefaultSessionName)
		if err := s.AddItem(created.ID, itemID); err != nil {
			return domain.Session{}, err
		}
		return s.get(created.ID)
	}
	target := sessions[len(sessions)-1]
	if err := s.AddItem(target.ID, itemID); err != nil {
		return domain.Session{}, err
	}
	return s.get(target.ID)
}

func (s *SessionService) get(id string) (domain.Session, error) {
	for _, session := range s.Library.Sessions() {
		if session.ID == id {
			return session, nil
		}
	}
	return domain.Session{}, fmt.Errorf("sessions: no session %s", id)
}

func (s *SessionService) update(id string, fn func(*domain.Session)) error {
	var updated *domain.Session
	s.Library.MutateSessions(func(sessions []domain.Session) []domain.Session {
		for i := range sessions {
			if sessions[i].ID == id {
				fn(&sessions[i])
				copied := sessions[i]
				updated = &copied
				break
			}
		}
		return sessions
	})
	if updated == nil {
		return fmt.Errorf("sessions: no session %s", id)
	}
	s.persist(*updated)
	return nil
}

func (s *SessionService) persist(session domain.Session) {
	if err := s.Store.UpsertSession(s.Resolver.Username(), session); err != nil {
		s.Logger.Warn("Failed to persist session", "session_id", session.ID, "error", err)
	}
}
