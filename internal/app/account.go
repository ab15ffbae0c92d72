package app

import (
	"context"
	"fmt"

	"github.com/dkessler/cratekeeper/internal/auth"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/hydrate"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// AccountService owns credential adoption and sign-out. Adoption installs the
// credential in the resolver and persists it so the next startup restores the
// account without re-entering anything.
type AccountService struct {
	Library  *Library
	Store    Store
	Resolver *auth.Resolver
	Prices   MarketCache
	Flags    *hydrate.Reconciler
	Logger   *logger.Logger
}

func NewAccountService(lib *Library, st Store, resolver *auth.Resolver, prices MarketCache, flags *hydrate.Reconciler, log *logger.Logger) *AccountService {
	return &AccountService{
		Library:  lib,
		Store:    st,
		Resolver: resolver,
		Prices:   prices,
		Flags:    flags,
		Logger:   log.WithComponent("account"),
	}
}

// AdoptManualToken installs a personal access token, resolves it to a
// username and persists it under that username. A token that fails the
// identity lookup is rejected and nothing is stored.
func (a *AccountService) AdoptManualToken(ctx context.Context, token string) (string, error) {
	a.Resolver.UseManual(token)
	username, err := a.Resolver.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("account: verifying token: %w", err)
	}
	if err := a.Store.SaveManualToken(username, token); err != nil {
		a.Logger.Warn("Failed to persist manual token", "error", err)
	}
	return username, nil
}

// AdoptDelegated installs the access pair a completed authorization flow
// produced. The flow already resolved the username, so the resolver adopts it
// directly. Returns the session's partition username, which stays pinned even
// if the new pair belongs to a different account.
func (a *AccountService) AdoptDelegated(res auth.LoginResult) string {
	a.Resolver.AdoptIdentity(res.Username, domain.NewDelegatedCredential(res.AccessToken, res.TokenSecret))
	username := a.Resolver.Username()
	if err := a.Store.SaveDelegatedCredential(username, res.AccessToken, res.TokenSecret); err != nil {
		a.Logger.Warn("Failed to persist access pair", "error", err)
	}
	if res.AvatarURL != "" {
		a.Library.SetAvatarURL(res.AvatarURL)
		if err := a.Store.SetAvatarURL(username, res.AvatarURL); err != nil {
			a.Logger.Warn("Failed to store avatar", "error", err)
		}
	}
	return username
}

// SignOut forgets the account entirely: in-memory state, the pinned identity,
// the price cache and every persisted row for the user, credential included.
func (a *AccountService) SignOut() error {
	username := a.Resolver.Username()

	a.Library.Wipe()
	a.Flags.Reset()
	a.Resolver.Reset()
	if err := a.Prices.Clear(); err != nil {
		a.Logger.Warn("Failed to clear price cache", "error", err)
	}

	if username == "" {
		return nil
	}
	if err := a.Store.WipeUser(username); err != nil {
		return fmt.Errorf("account: wiping user data: %w", err)
	}
	if err := a.Store.DeleteAccount(username); err != nil {
		return fmt.Errorf("account: deleting account: %w", err)
	}
	a.Logger.Info("Signed out", "username", username)
	return nil
}
