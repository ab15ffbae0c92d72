package discogs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dkessler/cratekeeper/internal/constants"
)

// OAuthFlow signs the two token exchanges of the authorization handshake with
// the application's consumer pair. Discogs accepts PLAINTEXT signatures over
// TLS, so no request signing beyond the header is needed.
type OAuthFlow struct {
	Client         *Client
	ConsumerKey    string
	ConsumerSecret string
	AuthorizeURL   string
}

// RequestToken obtains a request token and the URL the user must authorize
// at.
func (f *OAuthFlow) RequestToken(ctx context.Context, callbackURL string) (string, string, string, error) {
	header := fmt.Sprintf(
		`OAuth oauth_consumer_key="%s", oauth_signature_method="PLAINTEXT", oauth_signature="%s&", oauth_timestamp="%d", oauth_nonce="%s", oauth_callback="%s"`,
		f.ConsumerKey, f.ConsumerSecret, time.Now().Unix(), uuid.NewString(), url.QueryEscape(callbackURL),
	)
	values, err := f.exchange(ctx, f.Client.BaseURL+"/oauth/request_token", header)
	if err != nil {
		return "", "", "", err
	}

	token := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", "", fmt.Errorf("discogs: request token response missing token pair")
	}

	authorizeURL := f.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = constants.DefaultAuthorizeURL
	}
	return token, secret, authorizeURL + "?oauth_token=" + url.QueryEscape(token), nil
}

// AccessToken trades the request token and the user's verifier for the
// access pair.
func (f *OAuthFlow) AccessToken(ctx context.Context, requestToken, requestSecret, verifier string) (string, string, error) {
	header := fmt.Sprintf(
		`OAuth oauth_consumer_key="%s", oauth_token="%s", oauth_signature_method="PLAINTEXT", oauth_signature="%s&%s", oauth_timestamp="%d", oauth_nonce="%s", oauth_verifier="%s"`,
		f.ConsumerKey, requestToken, f.ConsumerSecret, requestSecret, time.Now().Unix(), uuid.NewString(), url.QueryEscape(verifier),
	)
	values, err := f.exchange(ctx, f.Client.BaseURL+"/oauth/access_token", header)
	if err != nil {
		return "", "", err
	}

	access := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")
	if access == "" || secret == "" {
		return "", "", fmt.Errorf("discogs: access token response missing token pair")
	}
	return access, secret, nil
}

// exchange posts one handshake request and parses the form-encoded response.
func (f *OAuthFlow) exchange(ctx context.Context, endpoint, authorization string) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.Client.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("discogs: network request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("discogs: reading handshake response: %w", err)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("discogs: parsing handshake response: %w", err)
	}
	return values, nil
}
