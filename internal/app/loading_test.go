package app

import (
	"testing"
	"time"
)

func newTestPhases(hold time.Duration) *PhaseMachine {
	m := NewPhaseMachine()
	m.hold = hold
	return m
}

func TestPhaseMachine_ColdStartSequence(t *testing.T) {
	m := newTestPhases(5 * time.Millisecond)

	if m.Phase() != PhaseIdle {
		t.Fatalf("initial phase = %v, want idle", m.Phase())
	}

	m.IdentityLoadingStarted()
	if m.Phase() != PhaseSyncing {
		t.Errorf("phase after identity start = %v, want syncing", m.Phase())
	}

	m.IdentityConcluded(true)
	m.SetSyncRunning(true)
	if m.Phase() != PhaseSyncing {
		t.Errorf("phase during sync = %v, want syncing", m.Phase())
	}

	m.SetSyncRunning(false)
	if m.Phase() != PhaseComplete {
		t.Errorf("phase after sync = %v, want complete", m.Phase())
	}

	time.Sleep(30 * time.Millisecond)
	if m.Phase() != PhaseIdle {
		t.Errorf("phase after hold = %v, want idle", m.Phase())
	}
}

func TestPhaseMachine_NoSessionDropsToIdle(t *testing.T) {
	m := newTestPhases(time.Minute)

	m.IdentityLoadingStarted()
	m.IdentityConcluded(false)

	if m.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle when there is nothing to restore", m.Phase())
	}
}

func TestPhaseMachine_NoFalseCompleteWithoutSync(t *testing.T) {
	m := newTestPhases(time.Minute)

	// Identity resolution concludes while a stale running=false notification
	// arrives; no sync ever ran, so no completed state may appear.
	m.IdentityLoadingStarted()
	m.SetSyncRunning(false)

	if m.Phase() == PhaseComplete {
		t.Error("complete phase shown without any sync having run")
	}
}

func TestPhaseMachine_SyncStartedFromIdle(t *testing.T) {
	m := newTestPhases(5 * time.Millisecond)

	// A manual sync trigger with no identity-loading preamble.
	m.SetSyncRunning(true)
	if m.Phase() != PhaseSyncing {
		t.Errorf("phase = %v, want syncing", m.Phase())
	}
	m.SetSyncRunning(false)
	if m.Phase() != PhaseComplete {
		t.Errorf("phase = %v, want complete", m.Phase())
	}
}

func TestPhaseMachine_AbandonedLoginForcesIdle(t *testing.T) {
	m := newTestPhases(time.Minute)

	m.LoginRedirectStarted()
	m.IdentityLoadingStarted()
	if m.Phase() != PhaseSyncing {
		t.Fatalf("phase = %v, want syncing", m.Phase())
	}

	// The user backed out of the external authorization page and the app
	// came back to the foreground with the redirect still marked in flight.
	m.Foregrounded()
	if m.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle after abandoned login", m.Phase())
	}

	// A completed round trip clears the flag; foregrounding is then inert.
	m.LoginRedirectStarted()
	m.LoginRedirectCleared()
	m.SetSyncRunning(true)
	m.Foregrounded()
	if m.Phase() != PhaseSyncing {
		t.Errorf("phase = %v, foregrounding after a completed login must not reset", m.Phase())
	}
}

func TestPhaseMachine_AbortedSyncSkipsComplete(t *testing.T) {
	m := newTestPhases(time.Minute)

	m.SetSyncRunning(true)
	m.SyncAborted()

	if m.Phase() != PhaseIdle {
		t.Errorf("phase = %v, a failed sync must drop straight to idle", m.Phase())
	}

	// The machine is reusable afterwards: a later successful pass still
	// reaches the completed state.
	m.SetSyncRunning(true)
	m.SetSyncRunning(false)
	if m.Phase() != PhaseComplete {
		t.Errorf("phase = %v, want complete after a later clean pass", m.Phase())
	}
}

func TestPhaseMachine_NewSyncCancelsHold(t *testing.T) {
	m := newTestPhases(50 * time.Millisecond)

	m.SetSyncRunning(true)
	m.SetSyncRunning(false)
	if m.Phase() != PhaseComplete {
		t.Fatalf("phase = %v, want complete", m.Phase())
	}

	// A second sync begins inside the hold window; the pending drop to idle
	// must not fire mid-pass.
	m.SetSyncRunning(true)
	time.Sleep(80 * time.Millisecond)
	if m.Phase() != PhaseSyncing {
		t.Errorf("phase = %v, want syncing while the second pass runs", m.Phase())
	}
}
