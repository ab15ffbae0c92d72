package discogs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOAuth(baseURL string) *OAuthFlow {
	return &OAuthFlow{
		Client:         newTestClient(baseURL),
		ConsumerKey:    "consumer-key",
		ConsumerSecret: "consumer-secret",
		AuthorizeURL:   "https://auth.example/authorize",
	}
}

func TestRequestToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/request_token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.Contains(auth, `oauth_consumer_key="consumer-key"`) ||
			!strings.Contains(auth, `oauth_signature="consumer-secret&"`) ||
			!strings.Contains(auth, `oauth_callback="myapp%3A%2F%2Fcallback"`) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("oauth_token=req-tok&oauth_token_secret=req-sec&oauth_callback_confirmed=true"))
	}))
	defer srv.Close()

	flow := newTestOAuth(srv.URL)
	token, secret, authorizeURL, err := flow.RequestToken(context.Background(), "myapp://callback")
	if err != nil {
		t.Fatalf("RequestToken failed: %v", err)
	}
	if token != "req-tok" || secret != "req-sec" {
		t.Errorf("pair = %q/%q", token, secret)
	}
	if authorizeURL != "https://auth.example/authorize?oauth_token=req-tok" {
		t.Errorf("authorizeURL = %q", authorizeURL)
	}
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.Contains(auth, `oauth_token="req-tok"`) ||
			!strings.Contains(auth, `oauth_signature="consumer-secret&req-sec"`) ||
			!strings.Contains(auth, `oauth_verifier="verif"`) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("oauth_token=access-tok&oauth_token_secret=access-sec"))
	}))
	defer srv.Close()

	flow := newTestOAuth(srv.URL)
	access, secret, err := flow.AccessToken(context.Background(), "req-tok", "req-sec", "verif")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if access != "access-tok" || secret != "access-sec" {
		t.Errorf("pair = %q/%q", access, secret)
	}
}

func TestRequestToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	flow := newTestOAuth(srv.URL)
	_, _, _, err := flow.RequestToken(context.Background(), "myapp://callback")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("err = %v, want AuthError 401", err)
	}
}

func TestAccessToken_MissingPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_problem=token_rejected"))
	}))
	defer srv.Close()

	flow := newTestOAuth(srv.URL)
	_, _, err := flow.AccessToken(context.Background(), "req-tok", "req-sec", "verif")
	if err == nil {
		t.Fatal("expected error on response without a token pair")
	}
}
