// Package oauth performs the authorization-code round trips against external
// providers: code -> provider access token -> profile. The provider's access
// token is used exactly once, server-side, and never leaves this package's
// callers; only the derived profile does.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
)

// Provider is one configured external identity provider.
type Provider interface {
	// Exchange trades an authorization code for the provider's access token.
	Exchange(ctx context.Context, code, redirectURI string) (string, error)
	// FetchProfile loads the identity behind a provider access token.
	FetchProfile(ctx context.Context, accessToken string) (model.OAuthProfile, error)
}

// Client routes exchange calls to the configured providers. Providers with
// no client credentials in the configuration are simply absent, and logins
// against them fail with auth.ErrUnknownProvider.
type Client struct {
	providers map[string]Provider
}

// NewClient registers the known providers for which credentials exist.
func NewClient(creds map[string]config.OAuthClient) *Client {
	hc := &http.Client{Timeout: 10 * time.Second}
	c := &Client{providers: map[string]Provider{}}
	if g, ok := creds["google"]; ok {
		c.providers["google"] = NewGoogle(g.ClientID, g.ClientSecret, hc)
	}
	if g, ok := creds["github"]; ok {
		c.providers["github"] = NewGitHub(g.ClientID, g.ClientSecret, hc)
	}
	return c
}

// Exchange performs the code exchange for the named provider.
func (c *Client) Exchange(ctx context.Context, provider, code, redirectURI string) (string, error) {
	p, ok := c.providers[provider]
	if !ok {
		return "", auth.ErrUnknownProvider
	}
	return p.Exchange(ctx, code, redirectURI)
}

// FetchProfile loads the profile for the named provider.
func (c *Client) FetchProfile(ctx context.Context, provider, accessToken string) (model.OAuthProfile, error) {
	p, ok := c.providers[provider]
	if !ok {
		return model.OAuthProfile{}, auth.ErrUnknownProvider
	}
	return p.FetchProfile(ctx, accessToken)
}

// postForm POSTs a form to a token endpoint and decodes the JSON response.
// Any transport error, timeout or non-2xx status fails closed as a provider
// exchange error with no provider internals attached.
func postForm(ctx context.Context, hc *http.Client, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", auth.ErrProviderExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token endpoint: %v", auth.ErrProviderExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: token endpoint status %d", auth.ErrProviderExchange, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode token response: %v", auth.ErrProviderExchange, err)
	}
	return nil
}

// getJSON GETs a provider API endpoint with a bearer token and decodes the
// JSON response, with the same fail-closed posture as postForm.
func getJSON(ctx context.Context, hc *http.Client, endpoint, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", auth.ErrProviderExchange, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: profile endpoint: %v", auth.ErrProviderExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: profile endpoint status %d", auth.ErrProviderExchange, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode profile response: %v", auth.ErrProviderExchange, err)
	}
	return nil
}
