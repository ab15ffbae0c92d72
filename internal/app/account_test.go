package app

import (
	"context"
	"testing"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/hydrate"
	"github.com/dkessler/cratekeeper/internal/logger"
)

func newTestAccounts(st *mockAppStore, identity *mockIdentity) (*AccountService, *auth.Resolver, *Library, *mockPrices) {
	lib := NewLibrary()
	resolver := auth.NewResolver(identity, logger.Default())
	prices := &mockPrices{}
	svc := NewAccountService(lib, st, resolver, prices, hydrate.NewReconciler(), logger.Default())
	return svc, resolver, lib, prices
}

func TestAdoptManualToken_ResolvesAndPersists(t *testing.T) {
	st := newMockAppStore()
	svc, resolver, _, _ := newTestAccounts(st, &mockIdentity{username: "alice"})

	username, err := svc.AdoptManualToken(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("AdoptManualToken failed: %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want alice", username)
	}
	if st.credUser != "alice" || st.manualToken != "tok-123" {
		t.Errorf("token not persisted: user=%q token=%q", st.credUser, st.manualToken)
	}
	if resolver.Username() != "alice" {
		t.Error("identity should be pinned after adoption")
	}
	if cred := resolver.Credential(); cred.Kind != domain.CredentialManual || cred.Token != "tok-123" {
		t.Errorf("credential = %+v", cred)
	}
}

func TestAdoptDelegated_PersistsAccessPair(t *testing.T) {
	st := newMockAppStore()
	svc, resolver, lib, _ := newTestAccounts(st, &mockIdentity{username: "alice"})

	username := svc.AdoptDelegated(auth.LoginResult{
		Username:    "alice",
		AvatarURL:   "https://img/alice.jpg",
		AccessToken: "access",
		TokenSecret: "secret",
	})
	if username != "alice" {
		t.Errorf("username = %q, want alice", username)
	}
	if st.credUser != "alice" || st.accessPair != [2]string{"access", "secret"} {
		t.Errorf("access pair not persisted: user=%q pair=%v", st.credUser, st.accessPair)
	}
	if st.avatarSaved != "https://img/alice.jpg" {
		t.Error("avatar should be persisted with the account")
	}
	if lib.AvatarURL() != "https://img/alice.jpg" {
		t.Error("avatar should be applied to the library")
	}
	if cred := resolver.Credential(); cred.Kind != domain.CredentialDelegated {
		t.Errorf("credential = %+v", cred)
	}
}

func TestAdoptDelegated_PinnedUsernameKeepsPartition(t *testing.T) {
	st := newMockAppStore()
	svc, resolver, _, _ := newTestAccounts(st, &mockIdentity{username: "alice"})

	resolver.UseManual("old-tok")
	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// A pair for a different account arrives late; the session keeps writing
	// under the originally pinned username.
	username := svc.AdoptDelegated(auth.LoginResult{
		Username:    "bob",
		AccessToken: "access",
		TokenSecret: "secret",
	})
	if username != "alice" {
		t.Errorf("username = %q, want pinned alice", username)
	}
	if st.credUser != "alice" {
		t.Errorf("credential persisted under %q, want alice", st.credUser)
	}
}

func TestSignOut_WipesEverything(t *testing.T) {
	st := newMockAppStore()
	svc, resolver, lib, prices := newTestAccounts(st, &mockIdentity{username: "alice"})

	if _, err := svc.AdoptManualToken(context.Background(), "tok"); err != nil {
		t.Fatalf("AdoptManualToken failed: %v", err)
	}
	lib.SetCollection([]domain.CollectionItem{{ID: "a", ReleaseID: 1}}, []string{"All"})

	if err := svc.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if st.wipedUser != "alice" {
		t.Errorf("wiped user = %q, want alice", st.wipedUser)
	}
	if st.deleted != "alice" {
		t.Errorf("deleted account = %q, want alice", st.deleted)
	}
	if resolver.Username() != "" || !resolver.Credential().IsZero() {
		t.Error("resolver should be fully reset")
	}
	if len(lib.Collection()) != 0 {
		t.Error("library should be wiped")
	}
	if !prices.cleared {
		t.Error("price cache should be cleared")
	}
}

func TestSignOut_WithoutAccountIsNoop(t *testing.T) {
	st := newMockAppStore()
	svc, _, _, _ := newTestAccounts(st, &mockIdentity{username: "alice"})

	if err := svc.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if st.wiped || st.deleted != "" {
		t.Error("no store rows should be touched without a resolved account")
	}
}
