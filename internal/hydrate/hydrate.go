// Package hydrate covers the cold-start race between the persisted annotation
// store and a freshly synced in-memory library: each annotation category is
// merged into local state at most once per session, whichever side arrives
// first.
package hydrate

import (
	"sync"
	"time"

	"github.com/dkessler/cratekeeper/internal/domain"
)

type Category string

const (
	CategoryRatings     Category = "ratings"
	CategoryPriorities  Category = "priorities"
	CategoryPlayHistory Category = "play_history"
	CategorySessions    Category = "sessions"
	CategoryPreferences Category = "preferences"
)

// Categories lists every annotation category, for iteration and reset.
var Categories = []Category{
	CategoryRatings,
	CategoryPriorities,
	CategoryPlayHistory,
	CategorySessions,
	CategoryPreferences,
}

type State string

const (
	StatePending  State = "pending"
	StateHydrated State = "hydrated"
)

// Next is the transition function. Hydration fires only when the persisted
// read has resolved AND the local collection has something to attach to; once
// hydrated, a category stays hydrated for the session.
func Next(current State, storeResolved, localNonEmpty bool) State {
	if current == StateHydrated {
		return StateHydrated
	}
	if storeResolved && localNonEmpty {
		return StateHydrated
	}
	return StatePending
}

// Reconciler tracks per-category hydration state.
type Reconciler struct {
	mu    sync.Mutex
	state map[Category]State
}

func NewReconciler() *Reconciler {
	r := &Reconciler{}
	r.Reset()
	return r
}

// Run advances the category through the reducer and invokes merge exactly on
// the pending→hydrated edge. Reports whether the merge ran.
func (r *Reconciler) Run(cat Category, storeResolved, localNonEmpty bool, merge func()) bool {
	r.mu.Lock()
	current := r.state[cat]
	next := Next(current, storeResolved, localNonEmpty)
	r.state[cat] = next
	r.mu.Unlock()

	if current == StatePending && next == StateHydrated {
		merge()
		return true
	}
	return false
}

// MarkHydrated records that a category was already merged elsewhere (the sync
// pass folds annotations in itself), so Run will skip it.
func (r *Reconciler) MarkHydrated(cat Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[cat] = StateHydrated
}

// StateOf returns the current state of a category.
func (r *Reconciler) StateOf(cat Category) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state[cat]
}

// Reset returns every category to pending. Called on sign-out, full wipe and
// account switch only.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = make(map[Category]State, len(Categories))
	for _, c := range Categories {
		r.state[c] = StatePending
	}
}

// The merge functions below are the single implementation of the
// annotation-over-items merge, shared by the sync pass and the reconciler so
// the two paths cannot drift. All are idempotent: merging twice equals
// merging once.

// MergePurgeTags applies persisted purge tags onto collection items by
// release id. Items without a persisted tag keep whatever tag they carry.
func MergePurgeTags(items []domain.CollectionItem, tags map[int]domain.PurgeTag) {
	for i := range items {
		if tag, ok := tags[items[i].ReleaseID]; ok {
			items[i].PurgeTag = tag
		}
	}
}

// MergePriorities applies persisted priority flags onto want items.
func MergePriorities(wants []domain.WantItem, priorities map[int]bool) {
	for i := range wants {
		if p, ok := priorities[wants[i].ReleaseID]; ok {
			wants[i].Priority = p
		}
	}
}

// MergePlayHistory applies persisted last-played timestamps onto collection
// items.
func MergePlayHistory(items []domain.CollectionItem, plays map[int]time.Time) {
	for i := range items {
		if at, ok := plays[items[i].ReleaseID]; ok {
			t := at
			items[i].LastPlayed = &t
		}
	}
}
