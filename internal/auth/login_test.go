package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/logger"
)

type mockOAuth struct {
	requestErr error
	accessErr  error
}

func (m *mockOAuth) RequestToken(ctx context.Context, callbackURL string) (string, string, string, error) {
	if m.requestErr != nil {
		return "", "", "", m.requestErr
	}
	return "req-token", "req-secret", "https://auth.example/authorize?oauth_token=req-token", nil
}

func (m *mockOAuth) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (string, string, error) {
	if m.accessErr != nil {
		return "", "", m.accessErr
	}
	if requestToken != "req-token" || requestSecret != "req-secret" {
		return "", "", errors.New("unexpected request pair")
	}
	return "access-token", "access-secret", nil
}

type identityFunc func(ctx context.Context, cred domain.Credential) (string, error)

func (f identityFunc) Identity(ctx context.Context, cred domain.Credential) (string, error) {
	return f(ctx, cred)
}

func TestLoginFlow_StartAndComplete(t *testing.T) {
	flow := NewLoginFlow(&mockOAuth{}, &mockIdentity{username: "alice"}, logger.Default())

	authorizeURL, err := flow.Start(context.Background(), "myapp://callback")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if authorizeURL != "https://auth.example/authorize?oauth_token=req-token" {
		t.Errorf("authorizeURL = %q", authorizeURL)
	}

	res, err := flow.Complete(context.Background(), "verifier-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Username != "alice" || res.AccessToken != "access-token" || res.TokenSecret != "access-secret" {
		t.Errorf("result = %+v", res)
	}
}

func TestLoginFlow_CompleteWithoutStart(t *testing.T) {
	flow := NewLoginFlow(&mockOAuth{}, &mockIdentity{username: "alice"}, logger.Default())

	_, err := flow.Complete(context.Background(), "verifier-1")
	if !errors.Is(err, ErrNoLoginInFlight) {
		t.Errorf("err = %v, want ErrNoLoginInFlight", err)
	}
}

func TestLoginFlow_CancelDiscardsCompletion(t *testing.T) {
	flow := NewLoginFlow(&mockOAuth{}, &mockIdentity{username: "alice"}, logger.Default())

	if _, err := flow.Start(context.Background(), "myapp://callback"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	flow.Cancel()

	_, err := flow.Complete(context.Background(), "verifier-1")
	if !errors.Is(err, ErrNoLoginInFlight) && !errors.Is(err, ErrLoginCancelled) {
		t.Errorf("err = %v, want cancellation", err)
	}
}

func TestLoginFlow_CancelDuringIdentityLookup(t *testing.T) {
	var flow *LoginFlow
	// Cancel lands while the identity lookup is in flight; the result must be
	// discarded even though both network calls succeeded.
	identity := identityFunc(func(ctx context.Context, cred domain.Credential) (string, error) {
		flow.Cancel()
		return "alice", nil
	})
	flow = NewLoginFlow(&mockOAuth{}, identity, logger.Default())

	if _, err := flow.Start(context.Background(), "myapp://callback"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_, err := flow.Complete(context.Background(), "verifier-1")
	if !errors.Is(err, ErrLoginCancelled) {
		t.Errorf("err = %v, want ErrLoginCancelled", err)
	}
}

func TestLoginFlow_RestartReplacesHandshake(t *testing.T) {
	flow := NewLoginFlow(&mockOAuth{}, &mockIdentity{username: "alice"}, logger.Default())

	if _, err := flow.Start(context.Background(), "myapp://callback"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	flow.Cancel()
	if _, err := flow.Start(context.Background(), "myapp://callback"); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	if _, err := flow.Complete(context.Background(), "verifier-2"); err != nil {
		t.Errorf("Complete after restart failed: %v", err)
	}
}
