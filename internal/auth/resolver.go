// Package auth decides which credential identifies the user and resolves it
// to the Discogs username used as the partition key for all stored data.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// ErrCredentialPending is returned while neither credential source has been
// provided. Downstream components must not run in that state.
var ErrCredentialPending = errors.New("auth: no credential configured yet")

// IdentityClient resolves a credential to a username via the identity
// endpoint.
type IdentityClient interface {
	Identity(ctx context.Context, cred domain.Credential) (string, error)
}

// Resolver holds the active credential and the resolved username. Once a
// username resolves it is pinned for the rest of the session: it is never
// re-derived, so a late swap between credential sources cannot change whose
// data downstream reads and writes.
type Resolver struct {
	client IdentityClient
	log    *logger.Logger

	mu       sync.Mutex
	cred     domain.Credential
	username string
}

func NewResolver(client IdentityClient, log *logger.Logger) *Resolver {
	return &Resolver{
		client: client,
		log:    log.WithComponent("auth"),
	}
}

// UseDelegated makes the OAuth pair the authoritative credential. Any manual
// token is dropped with it.
func (r *Resolver) UseDelegated(accessToken, tokenSecret string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cred = domain.NewDelegatedCredential(accessToken, tokenSecret)
}

// UseManual makes the personal token the authoritative credential. Any OAuth
// pair is dropped with it.
func (r *Resolver) UseManual(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cred = domain.NewManualCredential(token)
}

// Credential returns the active credential.
func (r *Resolver) Credential() domain.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cred
}

// Username returns the resolved username, or "" while unresolved.
func (r *Resolver) Username() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.username
}

// Resolve returns the session username, calling the identity endpoint at most
// once per session. A failed lookup is retryable by the caller; the pending
// state (no credential at all) is distinct and not an identity failure.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.username != "" {
		u := r.username
		r.mu.Unlock()
		return u, nil
	}
	cred := r.cred
	r.mu.Unlock()

	if cred.IsZero() {
		return "", ErrCredentialPending
	}

	username, err := r.client.Identity(ctx, cred)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// First resolution wins; a concurrent resolve with a different credential
	// must not replace an already-pinned username.
	if r.username == "" {
		r.username = username
		r.log.Info("Identity resolved", "username", username)
	}
	return r.username, nil
}

// AdoptIdentity installs a credential together with the username it already
// resolved to, pinning it the way a successful Resolve would. The first
// pinned username still wins: a late adoption for a different account keeps
// the session's partition key.
func (r *Resolver) AdoptIdentity(username string, cred domain.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cred = cred
	if r.username == "" {
		r.username = username
	}
}

// ResetIdentity forgets the pinned username but keeps the credential, so the
// next Resolve re-derives the account. Used by the account-switching-safe
// sync after the credential source changed.
func (r *Resolver) ResetIdentity() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username = ""
}

// Reset clears the credential and the pinned username. Called on sign-out,
// full data wipe and account switch.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cred = domain.Credential{}
	r.username = ""
}
