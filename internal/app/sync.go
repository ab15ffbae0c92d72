package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/discogs"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/hydrate"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// ErrSyncInFlight is returned when a sync is requested while another pass for
// the same session is still running. Callers check Running() first; this is
// the backstop.
var ErrSyncInFlight = errors.New("sync: already running")

// Fetcher is the slice of the Discogs client the orchestrator needs.
type Fetcher interface {
	AvatarURL(ctx context.Context, cred domain.Credential, username string) (string, error)
	FetchCollection(ctx context.Context, cred domain.Credential, username string, onProgress discogs.ProgressFunc) (*discogs.CollectionFetch, error)
	FetchWantlist(ctx context.Context, cred domain.Credential, username string, onProgress discogs.ProgressFunc) ([]domain.WantItem, error)
	CollectionValue(ctx context.Context, cred domain.Credential, username string) (*domain.CollectionValue, error)
}

// Store is the persisted-store collaborator: read-all-rows-by-username per
// annotation category plus fire-and-forget writes.
type Store interface {
	GetPurgeTags(username string) (map[int]domain.PurgeTag, error)
	GetPriorities(username string) (map[int]bool, error)
	GetPlayHistory(username string) (map[int]time.Time, error)
	GetPreferences(username string) (map[string]string, error)
	ListSessions(username string) ([]domain.Session, error)
	UpsertPurgeTag(username string, releaseID int, tag domain.PurgeTag) error
	UpsertPriority(username string, releaseID int, priority bool) error
	UpsertPlayHistory(username string, releaseID int, playedAt time.Time) error
	UpsertPreference(username, key, value string) error
	UpsertSession(username string, s domain.Session) error
	DeleteSession(username, id string) error
	SetAvatarURL(username, avatarURL string) error
	SetLastSynced(username string, at time.Time) error
	SaveManualToken(username, token string) error
	SaveDelegatedCredential(username, accessToken, tokenSecret string) error
	DeleteAccount(username string) error
	WipeUser(username string) error
}

// MarketCache is the slice of the pricing cache the orchestrator touches.
type MarketCache interface {
	Clear() error
}

// SyncService drives the end-to-end pull of collection, want-list and
// valuation data and reconciles it with persisted annotations.
type SyncService struct {
	Library  *Library
	Fetcher  Fetcher
	Store    Store
	Resolver *auth.Resolver
	Prices   MarketCache
	Flags    *hydrate.Reconciler
	Phases   *PhaseMachine
	Logger   *logger.Logger

	mu       sync.Mutex
	running  bool
	progress string
}

func NewSyncService(lib *Library, fetcher Fetcher, st Store, resolver *auth.Resolver, prices MarketCache, phases *PhaseMachine, log *logger.Logger) *SyncService {
	return &SyncService{
		Library:  lib,
		Fetcher:  fetcher,
		Store:    st,
		Resolver: resolver,
		Prices:   prices,
		Flags:    hydrate.NewReconciler(),
		Phases:   phases,
		Logger:   log.WithComponent("sync"),
	}
}

// Running reports whether a sync pass is in flight.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Progress returns the human-readable progress string, empty outside a pass.
func (s *SyncService) Progress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *SyncService) setProgress(msg string) {
	s.mu.Lock()
	s.progress = msg
	s.mu.Unlock()
}

// PerformSync runs one full sync pass. Steps run strictly in order; collection
// and want-list failures are fatal and propagate to the caller exactly once,
// avatar and valuation failures are not. The progress string is cleared on
// every exit path.
//
// Commit behavior on a fatal mid-pass failure is deliberately partial: a
// want-list failure leaves the already-committed collection in place and
// skips the last-synced write.
func (s *SyncService) PerformSync(ctx context.Context) (result domain.SyncResult, err error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.SyncResult{}, ErrSyncInFlight
	}
	s.running = true
	s.mu.Unlock()

	if s.Phases != nil {
		s.Phases.SetSyncRunning(true)
	}
	defer func() {
		s.setProgress("")
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if s.Phases != nil {
			if err != nil {
				s.Phases.SyncAborted()
			} else {
				s.Phases.SetSyncRunning(false)
			}
		}
	}()

	s.setProgress("Signing in to Discogs…")
	username, err := s.Resolver.Resolve(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	cred := s.Resolver.Credential()
	log := s.Logger.WithUser(username)

	if avatar, err := s.Fetcher.AvatarURL(ctx, cred, username); err != nil {
		log.Warn("Avatar fetch failed, continuing without", "error", err)
	} else {
		s.Library.SetAvatarURL(avatar)
		if err := s.Store.SetAvatarURL(username, avatar); err != nil {
			log.Warn("Failed to store avatar", "error", err)
		}
	}

	s.setProgress("Fetching collection…")
	fetch, err := s.Fetcher.FetchCollection(ctx, cred, username, func(loaded, total int) {
		s.setProgress(fmt.Sprintf("Loading records %d of %d…", loaded, total))
	})
	if err != nil {
		log.Error("Collection fetch failed", "error", err)
		return domain.SyncResult{}, fmt.Errorf("sync: collection fetch: %w", err)
	}

	// Fold in annotations the store has already delivered. When the store
	// read has not resolved yet, items keep their defaults and the
	// reconciler covers the merge later.
	ann := s.Library.Annotations()
	if ann.Loaded {
		hydrate.MergePurgeTags(fetch.Items, ann.PurgeTags)
		s.Flags.MarkHydrated(hydrate.CategoryRatings)
	}

	s.Library.SetCollection(fetch.Items, fetch.Folders)

	s.setProgress("Fetching want list…")
	wants, err := s.Fetcher.FetchWantlist(ctx, cred, username, func(loaded, total int) {
		s.setProgress(fmt.Sprintf("Loading wants %d of %d…", loaded, total))
	})
	if err != nil {
		log.Error("Wantlist fetch failed", "error", err)
		return domain.SyncResult{}, fmt.Errorf("sync: wantlist fetch: %w", err)
	}

	if ann.Loaded {
		hydrate.MergePriorities(wants, ann.Priorities)
		s.Flags.MarkHydrated(hydrate.CategoryPriorities)
	}
	s.Library.SetWants(wants)

	if ann.Loaded {
		s.Library.MutateCollection(func(items []domain.CollectionItem) {
			hydrate.MergePlayHistory(items, ann.PlayHistory)
		})
		s.Flags.MarkHydrated(hydrate.CategoryPlayHistory)
	}

	s.setProgress("Calculating collection value…")
	if value, err := s.Fetcher.CollectionValue(ctx, cred, username); err != nil {
		log.Warn("Valuation fetch failed, continuing without", "error", err)
	} else {
		s.Library.SetValue(value)
	}

	if err := s.Store.SetLastSynced(username, time.Now()); err != nil {
		log.Warn("Failed to record last-synced time", "error", err)
	}

	// Sessions and preferences are not part of the sync pass itself; now
	// that the collection exists they can hydrate if the store has resolved.
	s.ReconcileAll()

	result = domain.SyncResult{
		Albums:  len(fetch.Items),
		Folders: len(fetch.Folders),
		Wants:   len(wants),
	}
	log.Info("Sync finished", "albums", result.Albums, "folders", result.Folders, "wants", result.Wants)
	return result, nil
}

// DevSync is the account-switching-safe variant: it wipes every piece of
// local state, forgets the pinned identity and hydration flags, then runs a
// normal pass with the current credential.
func (s *SyncService) DevSync(ctx context.Context) (domain.SyncResult, error) {
	if s.Running() {
		return domain.SyncResult{}, ErrSyncInFlight
	}
	s.Library.Wipe()
	s.Flags.Reset()
	s.Resolver.ResetIdentity()
	if err := s.Prices.Clear(); err != nil {
		s.Logger.Warn("Failed to clear price cache", "error", err)
	}
	return s.PerformSync(ctx)
}

// LoadAnnotations reads every annotation category from the store into the
// library's snapshot and reconciles whatever the current state allows. Safe
// to call before or after a sync finishes; whichever side arrives second
// completes the merge.
func (s *SyncService) LoadAnnotations(username string) error {
	tags, err := s.Store.GetPurgeTags(username)
	if err != nil {
		return fmt.Errorf("loading purge tags: %w", err)
	}
	priorities, err := s.Store.GetPriorities(username)
	if err != nil {
		return fmt.Errorf("loading priorities: %w", err)
	}
	plays, err := s.Store.GetPlayHistory(username)
	if err != nil {
		return fmt.Errorf("loading play history: %w", err)
	}
	prefs, err := s.Store.GetPreferences(username)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	sessions, err := s.Store.ListSessions(username)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	s.Library.SetAnnotations(AnnotationSnapshot{
		PurgeTags:   tags,
		Priorities:  priorities,
		PlayHistory: plays,
		Preferences: prefs,
		Sessions:    sessions,
		Loaded:      true,
	})
	s.ReconcileAll()
	return nil
}

// ReconcileAll runs the one-shot hydration for every category. Each merge is
// idempotent and fires at most once per session, so calling this from both
// the store-load path and the sync path is safe in either order.
func (s *SyncService) ReconcileAll() {
	ann := s.Library.Annotations()
	nonEmpty := s.Library.CollectionSize() > 0

	s.Flags.Run(hydrate.CategoryRatings, ann.Loaded, nonEmpty, func() {
		s.Library.MutateCollection(func(items []domain.CollectionItem) {
			hydrate.MergePurgeTags(items, ann.PurgeTags)
		})
	})
	s.Flags.Run(hydrate.CategoryPlayHistory, ann.Loaded, nonEmpty, func() {
		s.Library.MutateCollection(func(items []domain.CollectionItem) {
			hydrate.MergePlayHistory(items, ann.PlayHistory)
		})
	})
	s.Flags.Run(hydrate.CategoryPriorities, ann.Loaded, len(s.Library.Wants()) > 0, func() {
		s.Library.MutateWants(func(wants []domain.WantItem) {
			hydrate.MergePriorities(wants, ann.Priorities)
		})
	})
	s.Flags.Run(hydrate.CategorySessions, ann.Loaded, nonEmpty, func() {
		s.Library.SetSessions(ann.Sessions)
	})
	s.Flags.Run(hydrate.CategoryPreferences, ann.Loaded, nonEmpty, func() {
		s.Library.SetPreferences(ann.Preferences)
	})
}
