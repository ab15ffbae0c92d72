package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/discogs"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/hydrate"
	"github.com/dkessler/cratekeeper/internal/logger"
)

type mockIdentity struct {
	username string
}

func (m *mockIdentity) Identity(ctx context.Context, cred domain.Credential) (string, error) {
	return m.username, nil
}

type mockFetcher struct {
	items     []domain.CollectionItem
	folders   []string
	wants     []domain.WantItem
	avatarErr error
	collErr   error
	wantErr   error
	valueErr  error
	collCalls int
	wantCalls int
}

func (m *mockFetcher) AvatarURL(ctx context.Context, cred domain.Credential, username string) (string, error) {
	if m.avatarErr != nil {
		return "", m.avatarErr
	}
	return "https://img/avatar.jpg", nil
}

func (m *mockFetcher) FetchCollection(ctx context.Context, cred domain.Credential, username string, onProgress discogs.ProgressFunc) (*discogs.CollectionFetch, error) {
	m.collCalls++
	if m.collErr != nil {
		return nil, m.collErr
	}
	if onProgress != nil {
		onProgress(len(m.items), len(m.items))
	}
	items := make([]domain.CollectionItem, len(m.items))
	copy(items, m.items)
	return &discogs.CollectionFetch{Items: items, Folders: m.folders}, nil
}

func (m *mockFetcher) FetchWantlist(ctx context.Context, cred domain.Credential, username string, onProgress discogs.ProgressFunc) ([]domain.WantItem, error) {
	m.wantCalls++
	if m.wantErr != nil {
		return nil, m.wantErr
	}
	wants := make([]domain.WantItem, len(m.wants))
	copy(wants, m.wants)
	return wants, nil
}

func (m *mockFetcher) CollectionValue(ctx context.Context, cred domain.Credential, username string) (*domain.CollectionValue, error) {
	if m.valueErr != nil {
		return nil, m.valueErr
	}
	return &domain.CollectionValue{Minimum: "$10", Median: "$20", Maximum: "$30"}, nil
}

type mockAppStore struct {
	purgeTags   map[int]domain.PurgeTag
	priorities  map[int]bool
	plays       map[int]time.Time
	prefs       map[string]string
	sessions    []domain.Session
	lastSynced  *time.Time
	avatarSaved string
	manualToken string
	accessPair  [2]string
	credUser    string
	deleted     string
	wipedUser   string
	wiped       bool
}

func newMockAppStore() *mockAppStore {
	return &mockAppStore{
		purgeTags:  make(map[int]domain.PurgeTag),
		priorities: make(map[int]bool),
		plays:      make(map[int]time.Time),
		prefs:      make(map[string]string),
	}
}

func (m *mockAppStore) GetPurgeTags(username string) (map[int]domain.PurgeTag, error) {
	return m.purgeTags, nil
}
func (m *mockAppStore) GetPriorities(username string) (map[int]bool, error) {
	return m.priorities, nil
}
func (m *mockAppStore) GetPlayHistory(username string) (map[int]time.Time, error) {
	return m.plays, nil
}
func (m *mockAppStore) GetPreferences(username string) (map[string]string, error) {
	return m.prefs, nil
}
func (m *mockAppStore) ListSessions(username string) ([]domain.Session, error) {
	return m.sessions, nil
}
func (m *mockAppStore) UpsertPurgeTag(username string, releaseID int, tag domain.PurgeTag) error {
	m.purgeTags[releaseID] = tag
	return nil
}
func (m *mockAppStore) UpsertPriority(username string, releaseID int, priority bool) error {
	m.priorities[releaseID] = priority
	return nil
}
func (m *mockAppStore) UpsertPlayHistory(username string, releaseID int, playedAt time.Time) error {
	m.plays[releaseID] = playedAt
	return nil
}
func (m *mockAppStore) UpsertPreference(username, key, value string) error {
	m.prefs[key] = value
	return nil
}
func (m *mockAppStore) UpsertSession(username string, s domain.Session) error {
	for i := range m.sessions {
		if m.sessions[i].ID == s.ID {
			m.sessions[i] = s
			return nil
		}
	}
	m.sessions = append(m.sessions, s)
	return nil
}
func (m *mockAppStore) DeleteSession(username, id string) error {
	out := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.sessions = out
	return nil
}
func (m *mockAppStore) SetAvatarURL(username, avatarURL string) error {
	m.avatarSaved = avatarURL
	return nil
}
func (m *mockAppStore) SetLastSynced(username string, at time.Time) error {
	m.lastSynced = &at
	return nil
}
func (m *mockAppStore) SaveManualToken(username, token string) error {
	m.credUser = username
	m.manualToken = token
	m.accessPair = [2]string{}
	return nil
}
func (m *mockAppStore) SaveDelegatedCredential(username, accessToken, tokenSecret string) error {
	m.credUser = username
	m.accessPair = [2]string{accessToken, tokenSecret}
	m.manualToken = ""
	return nil
}
func (m *mockAppStore) DeleteAccount(username string) error {
	m.deleted = username
	return nil
}
func (m *mockAppStore) WipeUser(username string) error {
	m.wiped = true
	m.wipedUser = username
	return nil
}

type mockPrices struct {
	cleared bool
}

func (m *mockPrices) Clear() error {
	m.cleared = true
	return nil
}

func newTestSync(fetcher *mockFetcher, st *mockAppStore) (*SyncService, *Library) {
	lib := NewLibrary()
	resolver := auth.NewResolver(&mockIdentity{username: "alice"}, logger.Default())
	resolver.UseManual("tok")
	svc := NewSyncService(lib, fetcher, st, resolver, &mockPrices{}, nil, logger.Default())
	return svc, lib
}

func TestPerformSync_Success(t *testing.T) {
	fetcher := &mockFetcher{
		items: []domain.CollectionItem{
			{ID: "a", ReleaseID: 1, Title: "One"},
			{ID: "b", ReleaseID: 2, Title: "Two"},
		},
		folders: []string{"All", "Shelf A"},
		wants:   []domain.WantItem{{ID: "want-x", ReleaseID: 9}},
	}
	st := newMockAppStore()
	svc, lib := newTestSync(fetcher, st)

	result, err := svc.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("PerformSync failed: %v", err)
	}
	if result.Albums != 2 || result.Folders != 2 || result.Wants != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(lib.Collection()) != 2 {
		t.Errorf("collection not committed")
	}
	if st.lastSynced == nil {
		t.Error("last-synced timestamp should be written on success")
	}
	if lib.AvatarURL() != "https://img/avatar.jpg" {
		t.Error("avatar should be applied")
	}
	if lib.Value() == nil {
		t.Error("valuation should be applied")
	}
	if svc.Progress() != "" {
		t.Errorf("progress should be cleared after the pass, got %q", svc.Progress())
	}
}

func TestPerformSync_WantlistFailurePartialCommit(t *testing.T) {
	fetcher := &mockFetcher{
		items:   []domain.CollectionItem{{ID: "a", ReleaseID: 1}},
		folders: []string{"All"},
		wantErr: errors.New("wantlist page 3 failed"),
	}
	st := newMockAppStore()
	svc, lib := newTestSync(fetcher, st)

	_, err := svc.PerformSync(context.Background())
	if err == nil {
		t.Fatal("expected the pass to fail")
	}

	// Partial commit is the documented behavior: the collection fetched
	// before the failure stays visible, but no last-synced is recorded.
	if len(lib.Collection()) != 1 {
		t.Error("collection committed before the failure should remain visible")
	}
	if st.lastSynced != nil {
		t.Error("last-synced must not be written on a failed pass")
	}
	if svc.Progress() != "" {
		t.Errorf("progress should be cleared after a failure, got %q", svc.Progress())
	}
	if svc.Running() {
		t.Error("running flag should drop after a failure")
	}
}

func TestPerformSync_CollectionFailureIsFatal(t *testing.T) {
	fetcher := &mockFetcher{collErr: errors.New("page 1 failed")}
	st := newMockAppStore()
	svc, lib := newTestSync(fetcher, st)

	_, err := svc.PerformSync(context.Background())
	if err == nil {
		t.Fatal("expected the pass to fail")
	}
	if len(lib.Collection()) != 0 {
		t.Error("nothing should be committed when the collection fetch fails")
	}
	if fetcher.wantCalls != 0 {
		t.Error("wantlist must not be fetched after a fatal collection failure")
	}
}

func TestPerformSync_AvatarAndValueFailuresAreNonFatal(t *testing.T) {
	fetcher := &mockFetcher{
		items:     []domain.CollectionItem{{ID: "a", ReleaseID: 1}},
		avatarErr: errors.New("profile down"),
		valueErr:  errors.New("value down"),
	}
	st := newMockAppStore()
	svc, lib := newTestSync(fetcher, st)

	if _, err := svc.PerformSync(context.Background()); err != nil {
		t.Fatalf("non-fatal failures should not abort the pass: %v", err)
	}
	if lib.AvatarURL() != "" {
		t.Error("avatar should stay at its previous value")
	}
	if lib.Value() != nil {
		t.Error("valuation should stay unset")
	}
	if st.lastSynced == nil {
		t.Error("last-synced should still be written")
	}
}

func TestPerformSync_InFlightGuard(t *testing.T) {
	fetcher := &mockFetcher{}
	svc, _ := newTestSync(fetcher, newMockAppStore())

	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	if _, err := svc.PerformSync(context.Background()); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("expected ErrSyncInFlight, got %v", err)
	}
}

func TestPerformSync_MergesLoadedAnnotations(t *testing.T) {
	fetcher := &mockFetcher{
		items: []domain.CollectionItem{{ID: "a", ReleaseID: 1}, {ID: "b", ReleaseID: 2}},
		wants: []domain.WantItem{{ID: "want-x", ReleaseID: 9}},
	}
	st := newMockAppStore()
	st.purgeTags[1] = domain.PurgeTagKeep
	st.priorities[9] = true
	st.plays[2] = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	svc, lib := newTestSync(fetcher, st)

	// Store read resolves first, sync arrives second.
	if err := svc.LoadAnnotations("alice"); err != nil {
		t.Fatalf("LoadAnnotations failed: %v", err)
	}
	if _, err := svc.PerformSync(context.Background()); err != nil {
		t.Fatalf("PerformSync failed: %v", err)
	}

	items := lib.Collection()
	if items[0].PurgeTag != domain.PurgeTagKeep {
		t.Error("purge tag should be merged during the sync pass")
	}
	if items[1].LastPlayed == nil {
		t.Error("play history should be merged during the sync pass")
	}
	if !lib.Wants()[0].Priority {
		t.Error("priority should be merged during the sync pass")
	}
}

func TestHydration_SyncFirstThenStoreRead(t *testing.T) {
	fetcher := &mockFetcher{
		items: []domain.CollectionItem{{ID: "a", ReleaseID: 1}},
		wants: []domain.WantItem{{ID: "want-x", ReleaseID: 9}},
	}
	st := newMockAppStore()
	st.purgeTags[1] = domain.PurgeTagCut
	st.priorities[9] = true
	svc, lib := newTestSync(fetcher, st)

	// Sync finishes before the store read resolves: the reconciler covers
	// the merge when LoadAnnotations lands.
	if _, err := svc.PerformSync(context.Background()); err != nil {
		t.Fatalf("PerformSync failed: %v", err)
	}
	if lib.Collection()[0].PurgeTag != domain.PurgeTagNone {
		t.Fatal("tag should not exist before the store read resolves")
	}

	if err := svc.LoadAnnotations("alice"); err != nil {
		t.Fatalf("LoadAnnotations failed: %v", err)
	}
	if lib.Collection()[0].PurgeTag != domain.PurgeTagCut {
		t.Error("purge tag should hydrate once the store read resolves")
	}
	if !lib.Wants()[0].Priority {
		t.Error("priority should hydrate once the store read resolves")
	}
}

func TestHydration_DoubleLoadIsIdempotent(t *testing.T) {
	fetcher := &mockFetcher{items: []domain.CollectionItem{{ID: "a", ReleaseID: 1}}}
	st := newMockAppStore()
	st.purgeTags[1] = domain.PurgeTagMaybe
	svc, lib := newTestSync(fetcher, st)

	if _, err := svc.PerformSync(context.Background()); err != nil {
		t.Fatalf("PerformSync failed: %v", err)
	}
	if err := svc.LoadAnnotations("alice"); err != nil {
		t.Fatalf("LoadAnnotations failed: %v", err)
	}
	before := lib.Collection()

	// A second load simulates the hydration race; state must not change.
	if err := svc.LoadAnnotations("alice"); err != nil {
		t.Fatalf("second LoadAnnotations failed: %v", err)
	}
	after := lib.Collection()
	if len(before) != len(after) || before[0].PurgeTag != after[0].PurgeTag {
		t.Error("double hydration changed state")
	}
	if svc.Flags.StateOf(hydrate.CategoryRatings) != hydrate.StateHydrated {
		t.Error("ratings category should be hydrated")
	}
}

func TestDevSync_WipesStateFirst(t *testing.T) {
	fetcher := &mockFetcher{items: []domain.CollectionItem{{ID: "new", ReleaseID: 7}}}
	st := newMockAppStore()
	lib := NewLibrary()
	lib.SetCollection([]domain.CollectionItem{{ID: "stale", ReleaseID: 1}}, []string{"Old"})
	resolver := auth.NewResolver(&mockIdentity{username: "bob"}, logger.Default())
	resolver.UseManual("tok")
	prices := &mockPrices{}
	svc := NewSyncService(lib, fetcher, st, resolver, prices, nil, logger.Default())
	svc.Flags.MarkHydrated(hydrate.CategoryRatings)

	result, err := svc.DevSync(context.Background())
	if err != nil {
		t.Fatalf("DevSync failed: %v", err)
	}
	if result.Albums != 1 {
		t.Errorf("result = %+v", result)
	}

	items := lib.Collection()
	if len(items) != 1 || items[0].ID != "new" {
		t.Errorf("stale state should be gone, got %v", items)
	}
	if !prices.cleared {
		t.Error("price cache should be cleared")
	}
	if svc.Flags.StateOf(hydrate.CategoryRatings) != hydrate.StatePending {
		t.Error("hydration flags should reset before the pass")
	}
}

func TestPerformSync_FailureDropsPhaseToIdle(t *testing.T) {
	fetcher := &mockFetcher{collErr: errors.New("page 1 failed")}
	lib := NewLibrary()
	resolver := auth.NewResolver(&mockIdentity{username: "alice"}, logger.Default())
	resolver.UseManual("tok")
	phases := NewPhaseMachine()
	phases.hold = time.Minute
	svc := NewSyncService(lib, fetcher, newMockAppStore(), resolver, &mockPrices{}, phases, logger.Default())

	if _, err := svc.PerformSync(context.Background()); err == nil {
		t.Fatal("expected the pass to fail")
	}
	if got := phases.Phase(); got != PhaseIdle {
		t.Errorf("phase after a failed pass = %v, want idle with no completed flash", got)
	}
}

func TestPerformSync_PhaseMachineObservesRun(t *testing.T) {
	fetcher := &mockFetcher{items: []domain.CollectionItem{{ID: "a", ReleaseID: 1}}}
	lib := NewLibrary()
	resolver := auth.NewResolver(&mockIdentity{username: "alice"}, logger.Default())
	resolver.UseManual("tok")
	phases := NewPhaseMachine()
	phases.hold = 5 * time.Millisecond
	svc := NewSyncService(lib, fetcher, newMockAppStore(), resolver, &mockPrices{}, phases, logger.Default())

	if _, err := svc.PerformSync(context.Background()); err != nil {
		t.Fatalf("PerformSync failed: %v", err)
	}
	if got := phases.Phase(); got != PhaseComplete {
		t.Errorf("phase right after the pass = %v, want complete", got)
	}
	time.Sleep(30 * time.Millisecond)
	if got := phases.Phase(); got != PhaseIdle {
		t.Errorf("phase after the hold = %v, want idle", got)
	}
}
