package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
)

const (
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Google exchanges authorization codes against Google's OAuth 2.0 endpoints.
type Google struct {
	ClientID     string
	ClientSecret string

	// Endpoint overrides for tests; constructors set the real endpoints.
	TokenURL    string
	UserInfoURL string

	http *http.Client
}

func NewGoogle(clientID, clientSecret string, hc *http.Client) *Google {
	return &Google{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     googleTokenEndpoint,
		UserInfoURL:  googleUserInfoEndpoint,
		http:         hc,
	}
}

func (g *Google) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")

	var tr struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := postForm(ctx, g.http, g.TokenURL, form, &tr); err != nil {
		return "", err
	}
	if tr.Error != "" || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token granted", auth.ErrProviderExchange)
	}
	return tr.AccessToken, nil
}

func (g *Google) FetchProfile(ctx context.Context, accessToken string) (model.OAuthProfile, error) {
	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, g.http, g.UserInfoURL, accessToken, &info); err != nil {
		return model.OAuthProfile{}, err
	}
	if info.ID == "" || info.Email == "" {
		return model.OAuthProfile{}, fmt.Errorf("%w: incomplete profile", auth.ErrProviderExchange)
	}
	return model.OAuthProfile{
		Provider:  "google",
		SubjectID: info.ID,
		Email:     info.Email,
		Name:      info.Name,
	}, nil
}
