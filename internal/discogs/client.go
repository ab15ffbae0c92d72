// Package discogs implements the client for the Discogs API: identity and
// profile lookups, paginated collection and want-list retrieval, collection
// valuation and marketplace price suggestions.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dkessler/cratekeeper/internal/constants"
	"github.com/dkessler/cratekeeper/internal/domain"
	"github.com/dkessler/cratekeeper/internal/httpclient"
	"github.com/dkessler/cratekeeper/internal/logger"
)

const userAgent = "cratekeeper/1.0 +https://github.com/dkessler/cratekeeper"

// ProgressFunc is invoked after every fetched page with the number of entries
// accumulated so far and the server-reported total.
type ProgressFunc func(loaded, total int)

// AuthError is returned when the API rejects the credential.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("discogs: authentication failed (status %d)", e.StatusCode)
}

// PageError is returned when a paginated fetch fails mid-way. The whole fetch
// is abandoned; accumulated pages are never returned alongside it.
type PageError struct {
	Endpoint   string
	Page       int
	StatusCode int
}

func (e *PageError) Error() string {
	return fmt.Sprintf("discogs: %s page %d failed (status %d)", e.Endpoint, e.Page, e.StatusCode)
}

type Client struct {
	BaseURL string
	Client  *httpclient.Client
	Logger  *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  httpclient.NewClient(nil, constants.MinRequestInterval),
		Logger:  log.WithComponent("discogs"),
	}
}

// get performs an authenticated GET and decodes the JSON body into out.
// A transport-level failure (never reached the server) is wrapped so callers
// can tell it apart from an HTTP-level rejection.
func (c *Client) get(ctx context.Context, cred domain.Credential, url string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if auth := authorizationHeader(cred); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.Client.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("discogs: network request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("discogs: unexpected status %d for %s", resp.StatusCode, url)
	}

	if out != nil {
		// Status 0 here: the server accepted the request, so the failure must
		// not be classified like an HTTP rejection by callers keying on status.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("discogs: decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// authorizationHeader builds the auth header for the active credential kind.
func authorizationHeader(cred domain.Credential) string {
	switch cred.Kind {
	case domain.CredentialManual:
		return "Discogs token=" + cred.Token
	case domain.CredentialDelegated:
		return fmt.Sprintf(
			`OAuth oauth_token="%s", oauth_signature_method="PLAINTEXT", oauth_signature="&%s", oauth_timestamp="%d"`,
			cred.AccessToken, cred.TokenSecret, time.Now().Unix(),
		)
	}
	return ""
}

// Identity resolves the credential to the account's username.
func (c *Client) Identity(ctx context.Context, cred domain.Credential) (string, error) {
	var resp struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	status, err := c.get(ctx, cred, c.BaseURL+"/oauth/identity", &resp)
	if err != nil {
		if status != 0 {
			return "", &AuthError{StatusCode: status}
		}
		return "", err
	}
	return resp.Username, nil
}

// AvatarURL fetches the profile avatar. Callers treat a failure as non-fatal.
func (c *Client) AvatarURL(ctx context.Context, cred domain.Credential, username string) (string, error) {
	var resp struct {
		AvatarURL string `json:"avatar_url"`
	}
	if _, err := c.get(ctx, cred, fmt.Sprintf("%s/users/%s", c.BaseURL, username), &resp); err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

// CollectionValue fetches the aggregate valuation for the whole collection.
func (c *Client) CollectionValue(ctx context.Context, cred domain.Credential, username string) (*domain.CollectionValue, error) {
	var resp domain.CollectionValue
	if _, err := c.get(ctx, cred, fmt.Sprintf("%s/users/%s/collection/value", c.BaseURL, username), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
