package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

// ErrLoginCancelled is returned when a handshake completes after the flow was
// cancelled; the result is discarded.
var ErrLoginCancelled = errors.New("auth: login flow cancelled")

// ErrNoLoginInFlight is returned when Complete arrives without a preceding
// Start.
var ErrNoLoginInFlight = errors.New("auth: no login in flight")

// LoginResult is what the external authorization flow hands back after the
// verifier exchange.
type LoginResult struct {
	Username    string
	AvatarURL   string
	AccessToken string
	TokenSecret string
}

// DelegatedLogin is the external three-step handshake (request token,
// redirect, verifier exchange), treated as one opaque call.
type DelegatedLogin interface {
	Complete(ctx context.Context, verifier string) (LoginResult, error)
}

// OAuthClient performs the two token exchanges of the authorization
// handshake.
type OAuthClient interface {
	RequestToken(ctx context.Context, callbackURL string) (token, secret, authorizeURL string, err error)
	AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (accessToken, accessSecret string, err error)
}

// CompletionGuard tracks whether the component that started a login flow has
// since been torn down. The completion path checks it before applying the
// result, so a late handshake cannot mutate state nobody owns anymore.
type CompletionGuard struct {
	mu        sync.Mutex
	cancelled bool
}

func (g *CompletionGuard) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
}

func (g *CompletionGuard) Cancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

// LoginFlow drives the delegated authorization handshake: Start obtains a
// request token and the URL to send the user to, Complete exchanges the
// verifier for the access pair and resolves the account it belongs to.
type LoginFlow struct {
	client   OAuthClient
	identity IdentityClient
	log      *logger.Logger

	mu        sync.Mutex
	reqToken  string
	reqSecret string
	guard     *CompletionGuard
}

func NewLoginFlow(client OAuthClient, identity IdentityClient, log *logger.Logger) *LoginFlow {
	return &LoginFlow{
		client:   client,
		identity: identity,
		log:      log.WithComponent("login"),
	}
}

// Start begins a handshake and returns the URL the user must authorize at.
// Starting again replaces any earlier in-flight handshake.
func (f *LoginFlow) Start(ctx context.Context, callbackURL string) (string, error) {
	token, secret, authorizeURL, err := f.client.RequestToken(ctx, callbackURL)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.reqToken = token
	f.reqSecret = secret
	f.guard = &CompletionGuard{}
	f.mu.Unlock()

	f.log.Info("Login flow started")
	return authorizeURL, nil
}

// Cancel abandons the in-flight handshake. A Complete that is already past
// the token exchange discards its result instead of applying it.
func (f *LoginFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.guard != nil {
		f.guard.Cancel()
	}
	f.reqToken = ""
	f.reqSecret = ""
}

// Complete exchanges the verifier for the access pair and resolves the
// username it belongs to.
func (f *LoginFlow) Complete(ctx context.Context, verifier string) (LoginResult, error) {
	f.mu.Lock()
	token, secret, guard := f.reqToken, f.reqSecret, f.guard
	f.mu.Unlock()
	if token == "" {
		return LoginResult{}, ErrNoLoginInFlight
	}

	access, accessSecret, err := f.client.AccessToken(ctx, token, secret, verifier)
	if err != nil {
		return LoginResult{}, err
	}
	if guard.Cancelled() {
		return LoginResult{}, ErrLoginCancelled
	}

	username, err := f.identity.Identity(ctx, domain.NewDelegatedCredential(access, accessSecret))
	if err != nil {
		return LoginResult{}, err
	}
	// The cancel may have landed while the identity lookup was in flight.
	if guard.Cancelled() {
		return LoginResult{}, ErrLoginCancelled
	}

	f.mu.Lock()
	f.reqToken = ""
	f.reqSecret = ""
	f.mu.Unlock()

	f.log.Info("Login flow completed", "username", username)
	return LoginResult{
		Username:    username,
		AccessToken: access,
		TokenSecret: accessSecret,
	}, nil
}
