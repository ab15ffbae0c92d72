package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// AnnotateService applies user-authored annotations to the in-memory library
// and mirrors them into the persisted store. Store writes are fire-and-forget:
// a failed write is logged, the local mutation stands.
type AnnotateService struct {
	Library  *Library
	Store    Store
	Resolver *auth.Resolver
	Logger   *logger.Logger

	now func() time.Time
}

func NewAnnotateService(lib *Library, st Store, resolver *auth.Resolver, log *logger.Logger) *AnnotateService {
	return &AnnotateService{
		Library:  lib,
		Store:    st,
		Resolver: resolver,
		Logger:   log.WithComponent("annotate"),
		now:      time.Now,
	}
}

// SetPurgeTag records a keep/cut/maybe verdict on a collection item.
func (s *AnnotateService) SetPurgeTag(itemID string, tag domain.PurgeTag) error {
	if !tag.Valid() {
		return fmt.Errorf("annotate: invalid purge tag %q", tag)
	}

	var releaseID int
	found := false
	s.Library.MutateCollection(func(items []domain.CollectionItem) {
		for i := range items {
			if items[i].ID == itemID {
				items[i].PurgeTag = tag
				releaseID = items[i].ReleaseID
				found = true
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("annotate: no collection item %s", itemID)
	}

	username := s.Resolver.Username()
	if err := s.Store.UpsertPurgeTag(username, releaseID, tag); err != nil {
		s.Logger.Warn("Failed to persist purge tag", "release_id", releaseID, "error", err)
	}
	return nil
}

// SetPriority flips the priority flag on a want-list entry.
func (s *AnnotateService) SetPriority(wantID string, priority bool) error {
	var releaseID int
	found := false
	s.Library.MutateWants(func(wants []domain.WantItem) {
		for i := range wants {
			if wants[i].ID == wantID {
				wants[i].Priority = priority
				releaseID = wants[i].ReleaseID
				found = true
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("annotate: no want item %s", wantID)
	}

	username := s.Resolver.Username()
	if err := s.Store.UpsertPriority(username, releaseID, priority); err != nil {
		s.Logger.Warn("Failed to persist priority", "release_id", releaseID, "error", err)
	}
	return nil
}

// RecordPlay stamps a collection item as played now.
func (s *AnnotateService) RecordPlay(itemID string) error {
	playedAt := s.now()
	var releaseID int
	found := false
	s.Library.MutateCollection(func(items []domain.CollectionItem) {
		for i := range items {
			if items[i].ID == itemID {
				t := playedAt
				items[i].LastPlayed = &t
				releaseID = items[i].ReleaseID
				found = true
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("annotate: no collection item %s", itemID)
	}

	username := s.Resolver.Username()
	if err := s.Store.UpsertPlayHistory(username, releaseID, playedAt); err != nil {
		s.Logger.Warn("Failed to persist play", "release_id", releaseID, "error", err)
	}
	return nil
}

// SetPreference stores one user preference.
func (s *AnnotateService) SetPreference(key, value string) error {
	prefs := s.Library.Preferences()
	prefs[key] = value
	s.Library.SetPreferences(prefs)

	username := s.Resolver.Username()
	if err := s.Store.UpsertPreference(username, key, value); err != nil {
		s.Logger.Warn("Failed to persist preference", "key", key, "error", err)
	}
	return nil
}

// AddToWantlist adds a release to the local want-list. Adding a release that
// is already wanted is a no-op, regardless of the local id it arrives under.
func (s *AnnotateService) AddToWantlist(releaseID int, title, artist string, year int, coverURL string) domain.WantItem {
	want := domain.WantItem{
		ID:        "want-" + uuid.New().String(),
		ReleaseID: releaseID,
		Title:     title,
		Artist:    artist,
		Year:      year,
		CoverURL:  coverURL,
		DateAdded: s.now(),
	}
	if !s.Library.AppendWant(want) {
		s.Logger.Debug("Release already wanted, ignoring", "release_id", releaseID)
		for _, existing := range s.Library.Wants() {
			if existing.ReleaseID == releaseID {
				return existing
			}
		}
	}
	return want
}
