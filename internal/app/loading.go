package app

import (
	"sync"
	"time"

	"github.com/dkessler/cratekeeper/internal/constants"
)

type Phase string

const (
	// PhaseIdle shows no loading UI.
	PhaseIdle Phase = "idle"
	// PhaseSyncing covers identity resolution and a running sync pass.
	PhaseSyncing Phase = "syncing"
	// PhaseComplete holds briefly after a sync so a progress indicator can
	// visibly reach 100% before disappearing.
	PhaseComplete Phase = "complete"
)

// PhaseMachine derives the single "what should the screen show" value from
// identity-resolution and sync-orchestrator status.
type PhaseMachine struct {
	mu          sync.Mutex
	phase       Phase
	syncRunning bool
	sawSync     bool
	loginFlight bool
	hold        time.Duration
	holdTimer   *time.Timer
}

func NewPhaseMachine() *PhaseMachine {
	return &PhaseMachine{
		phase: PhaseIdle,
		hold:  constants.CompletePhaseHold,
	}
}

func (m *PhaseMachine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// IdentityLoadingStarted signals that a returning session's identity
// resolution has begun.
func (m *PhaseMachine) IdentityLoadingStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseIdle {
		m.stopHoldLocked()
		m.phase = PhaseSyncing
		m.sawSync = false
	}
}

// IdentityConcluded signals the end of identity resolution. Without a session
// to restore, and with no sync running, the loading UI drops straight back to
// idle rather than faking a completion.
func (m *PhaseMachine) IdentityConcluded(hasSession bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseSyncing && !hasSession && !m.syncRunning {
		m.phase = PhaseIdle
	}
}

// SetSyncRunning tracks orchestrator activity. The syncing→complete edge
// fires only when a sync was actually observed during this phase, so a
// same-tick "nothing to do" resolution can never flash a completed state.
func (m *PhaseMachine) SetSyncRunning(running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncRunning = running
	if running {
		if m.phase == PhaseIdle || m.phase == PhaseComplete {
			m.stopHoldLocked()
			m.phase = PhaseSyncing
		}
		if m.phase == PhaseSyncing {
			m.sawSync = true
		}
		return
	}
	if m.phase == PhaseSyncing && m.sawSync {
		m.phase = PhaseComplete
		m.startHoldLocked()
	}
}

// SyncAborted records a sync pass that ended in failure. The loading UI drops
// straight to idle; a failed pass never shows the completed state.
func (m *PhaseMachine) SyncAborted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncRunning = false
	if m.phase == PhaseSyncing {
		m.stopHoldLocked()
		m.phase = PhaseIdle
		m.sawSync = false
	}
}

// LoginRedirectStarted marks that the user was sent to the external
// authorization page.
func (m *PhaseMachine) LoginRedirectStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFlight = true
}

// LoginRedirectCleared marks a successful return from the external page.
func (m *PhaseMachine) LoginRedirectCleared() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFlight = false
}

// Foregrounded is called when the host regains focus. Returning with the
// login redirect still marked in flight means the user backed out of the
// external page: drop any loading UI immediately.
func (m *PhaseMachine) Foregrounded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loginFlight {
		m.stopHoldLocked()
		m.phase = PhaseIdle
		m.sawSync = false
		m.loginFlight = false
	}
}

func (m *PhaseMachine) startHoldLocked() {
	m.stopHoldLocked()
	m.holdTimer = time.AfterFunc(m.hold, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.phase == PhaseComplete {
			m.phase = PhaseIdle
			m.sawSync = false
		}
	})
}

func (m *PhaseMachine) stopHoldLocked() {
	if m.holdTimer != nil {
		m.holdTimer.Stop()
		m.holdTimer = nil
	}
}
