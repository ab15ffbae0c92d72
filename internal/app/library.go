// Package app holds the in-memory library state and the services that drive
// it: the sync orchestrator, annotation writes, curated sessions and the
// loading-phase machine the UI observes.
package app

import (
	"sync"
	"time"

	"github.com/dkessler/cratekeeper/internal/domain"
)

// AnnotationSnapshot is the persisted-store view of the user's annotations,
// loaded once per session. Loaded distinguishes "nothing stored" from "not
// read yet".
type AnnotationSnapshot struct {
	PurgeTags   map[int]domain.PurgeTag
	Priorities  map[int]bool
	PlayHistory map[int]time.Time
	Preferences map[string]string
	Sessions    []domain.Session
	Loaded      bool
}

// Library is the mutable in-memory mirror of the user's collection. All
// access goes through the mutex; readers get copies.
type Library struct {
	mu          sync.RWMutex
	items       []domain.CollectionItem
	folders     []string
	wants       []domain.WantItem
	sessions    []domain.Session
	avatarURL   string
	value       *domain.CollectionValue
	preferences map[string]string
	annotations AnnotationSnapshot
}

func NewLibrary() *Library {
	return &Library{preferences: make(map[string]string)}
}

func (l *Library) Collection() []domain.CollectionItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.CollectionItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Library) CollectionSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *Library) Folders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.folders))
	copy(out, l.folders)
	return out
}

// SetCollection replaces the collection and folder list wholesale, as a fresh
// sync does.
func (l *Library) SetCollection(items []domain.CollectionItem, folders []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
	l.folders = folders
}

// MutateCollection applies fn to the live item slice under the lock.
func (l *Library) MutateCollection(fn func(items []domain.CollectionItem)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.items)
}

func (l *Library) Wants() []domain.WantItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.WantItem, len(l.wants))
	copy(out, l.wants)
	return out
}

func (l *Library) SetWants(wants []domain.WantItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wants = wants
}

// MutateWants applies fn to the live want slice under the lock.
func (l *Library) MutateWants(fn func(wants []domain.WantItem)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.wants)
}

// AppendWant adds a want-list entry unless the release is already wanted.
// Duplicate adds are a no-op by design.
func (l *Library) AppendWant(w domain.WantItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.wants {
		if existing.ReleaseID == w.ReleaseID {
			return false
		}
	}
	l.wants = append(l.wants, w)
	return true
}

func (l *Library) Sessions() []domain.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}

func (l *Library) SetSessions(sessions []domain.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = sessions
}

// MutateSessions applies fn to the session list under the lock and stores the
// returned slice.
func (l *Library) MutateSessions(fn func(sessions []domain.Session) []domain.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = fn(l.sessions)
}

func (l *Library) AvatarURL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.avatarURL
}

func (l *Library) SetAvatarURL(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.avatarURL = url
}

func (l *Library) Value() *domain.CollectionValue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

func (l *Library) SetValue(v *domain.CollectionValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

func (l *Library) Preferences() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.preferences))
	for k, v := range l.preferences {
		out[k] = v
	}
	return out
}

func (l *Library) SetPreferences(prefs map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.preferences = prefs
}

func (l *Library) Annotations() AnnotationSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.annotations
}

func (l *Library) SetAnnotations(a AnnotationSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.annotations = a
}

// Wipe clears every piece of in-memory state. Used on sign-out and by the
// account-switching-safe sync.
func (l *Library) Wipe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.folders = nil
	l.wants = nil
	l.sessions = nil
	l.avatarURL = ""
	l.value = nil
	l.preferences = make(map[string]string)
	l.annotations = AnnotationSnapshot{}
}
