package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
)

const (
	githubTokenEndpoint  = "https://github.com/login/oauth/access_token"
	githubUserEndpoint   = "https://api.github.com/user"
	githubEmailsEndpoint = "https://api.github.com/user/emails"
)

// GitHub exchanges authorization codes against GitHub's OAuth 2.0 endpoints.
// GitHub issues plain OAuth tokens without ID tokens, and users may hide
// their email from /user, so a second call to /user/emails is sometimes
// needed to obtain a verified address.
type GitHub struct {
	ClientID     string
	ClientSecret string

	// Endpoint overrides for tests; constructors set the real endpoints.
	TokenURL  string
	UserURL   string
	EmailsURL string

	http *http.Client
}

func NewGitHub(clientID, clientSecret string, hc *http.Client) *GitHub {
	return &GitHub{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     githubTokenEndpoint,
		UserURL:      githubUserEndpoint,
		EmailsURL:    githubEmailsEndpoint,
		http:         hc,
	}
}

func (g *GitHub) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

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

func (g *GitHub) FetchProfile(ctx context.Context, accessToken string) (model.OAuthProfile, error) {
	var info struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, g.http, g.UserURL, accessToken, &info); err != nil {
		return model.OAuthProfile{}, err
	}
	if info.ID == 0 {
		return model.OAuthProfile{}, fmt.Errorf("%w: incomplete profile", auth.ErrProviderExchange)
	}
	email := info.Email
	if email == "" {
		var err error
		email, err = g.primaryEmail(ctx, accessToken)
		if err != nil {
			return model.OAuthProfile{}, err
		}
	}
	name := info.Name
	if name == "" {
		name = info.Login
	}
	return model.OAuthProfile{
		Provider:  "github",
		SubjectID: strconv.FormatInt(info.ID, 10),
		Email:     email,
		Name:      name,
	}, nil
}

// primaryEmail resolves a usable address for accounts with a private email:
// the primary verified one, else any verified one.
func (g *GitHub) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, g.http, g.EmailsURL, accessToken, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("%w: no verified email", auth.ErrProviderExchange)
}
