// Package service implements the token lifecycle: registration, login,
// OAuth login, refresh rotation, logout and access verification. It owns no
// transport or storage details; those arrive through small interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/password"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/token"
)

// UserStore is the persistence the service needs for users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByProvider(ctx context.Context, provider, providerUserID string) (*model.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	BindProvider(ctx context.Context, id, provider, providerUserID string) error
}

// TokenStore is the persistence the service needs for refresh tokens. All
// methods take hashes; raw token material never reaches storage.
type TokenStore interface {
	Store(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	Verify(ctx context.Context, tokenHash string, now time.Time) (string, error)
	Rotate(ctx context.Context, oldHash, userID, newHash string, expiresAt time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, userID string) error
}

// Exchanger performs the OAuth provider round trips.
type Exchanger interface {
	Exchange(ctx context.Context, provider, code, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, provider, accessToken string) (model.OAuthProfile, error)
}

// EventPublisher emits audit events. Publishing is best-effort: a broker
// outage never fails the request that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Bundle is the result of every operation that authenticates a user: a
// signed access token, a fresh opaque refresh token (returned raw exactly
// once) and the user it belongs to.
type Bundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access-token lifetime in seconds
	User         *model.User
}

// Service orchestrates the token lifecycle.
type Service struct {
	users      UserStore
	tokens     TokenStore
	codec      *token.Codec
	hasher     *password.Hasher
	exchanger  Exchanger
	events     EventPublisher // nil disables event publishing
	refreshTTL time.Duration

	// dummyHash absorbs a bcrypt comparison for logins against unknown
	// usernames so the two invalid-credential cases share a timing bucket.
	dummyHash string

	now func() time.Time
}

func New(users UserStore, tokens TokenStore, codec *token.Codec, hasher *password.Hasher,
	exchanger Exchanger, events EventPublisher, refreshTTL time.Duration) *Service {
	dummy, _ := hasher.Hash("no-such-password")
	return &Service{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		hasher:     hasher,
		exchanger:  exchanger,
		events:     events,
		refreshTTL: refreshTTL,
		dummyHash:  dummy,
		now:        time.Now,
	}
}

// Register creates a password account and issues its first token pair.
// Username and email collisions are reported distinctly; unlike login
// failures this leaks nothing about other users' accounts.
func (s *Service) Register(ctx context.Context, username, email, plainPassword, fullName string) (*Bundle, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, auth.ErrDuplicateUsername
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, auth.ErrDuplicateEmail
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		IsActive:     true,
	}
	// The pre-checks race concurrent registrations; the store's unique
	// indices are the backstop and report the same duplicate errors.
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	b, err := s.issueBundle(ctx, u)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventRegistered, u, "")
	return b, nil
}

// Login authenticates a password account. Unknown username and wrong
// password produce the identical outcome, and both paths pay one bcrypt
// comparison.
func (s *Service) Login(ctx context.Context, username, plainPassword string) (*Bundle, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, auth.ErrUserNotFound) {
		s.hasher.Verify(s.dummyHash, plainPassword)
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		// OAuth-only account; a password login against it is just invalid.
		s.hasher.Verify(s.dummyHash, plainPassword)
		return nil, auth.ErrInvalidCredentials
	}
	if !s.hasher.Verify(u.PasswordHash, plainPassword) {
		return nil, auth.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, auth.ErrAccountInactive
	}
	if err := s.touchLogin(ctx, u); err != nil {
		return nil, err
	}
	b, err := s.issueBundle(ctx, u)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventLogin, u, "")
	return b, nil
}

// LoginOAuth runs the full provider flow: code exchange, profile fetch,
// identity resolution, token issuance. Exchange failures surface as
// provider-exchange errors, distinct from credential failures, and perform
// no mutation.
func (s *Service) LoginOAuth(ctx context.Context, provider, code, redirectURI string) (*Bundle, error) {
	providerToken, err := s.exchanger.Exchange(ctx, provider, code, redirectURI)
	if err != nil {
		return nil, err
	}
	profile, err := s.exchanger.FetchProfile(ctx, provider, providerToken)
	if err != nil {
		return nil, err
	}
	u, err := s.resolveOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrAccountInactive
	}
	if err := s.touchLogin(ctx, u); err != nil {
		return nil, err
	}
	b, err := s.issueBundle(ctx, u)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventOAuthLogin, u, provider)
	return b, nil
}

// Refresh rotates a refresh token: the presented token is verified, then
// revoked and replaced in one atomic store operation, and a new access token
// is minted. A raced double-use loses at the store's conditional update and
// fails exactly like an unknown token. A deactivated user's token is still
// revoked before the operation fails, so the account cannot refresh again.
func (s *Service) Refresh(ctx context.Context, refreshRaw string) (*Bundle, error) {
	now := s.now().UTC()
	oldHash := token.HashRefreshRaw(strings.TrimSpace(refreshRaw))

	userID, err := s.tokens.Verify(ctx, oldHash, now)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, auth.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		_ = s.tokens.Revoke(ctx, oldHash) // fail-secure: burn the token anyway
		return nil, auth.ErrAccountInactive
	}

	next, err := token.NewRefresh(s.refreshTTL, now)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, oldHash, u.ID, next.Hash, next.ExpiresAt); err != nil {
		return nil, err
	}
	access, _, err := s.codec.Issue(u.ID, u.Username, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventTokenRotated, u, "")
	return &Bundle{
		AccessToken:  access,
		RefreshToken: next.Raw,
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
		User:         u,
	}, nil
}

// LogoutAll revokes every live refresh token the user owns. Succeeds even
// when there is nothing to revoke.
func (s *Service) LogoutAll(ctx context.Context, u *model.User) error {
	if err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	s.publish(ctx, queue.EventLogoutAll, u, "")
	return nil
}

// LogoutToken revokes the single session behind one refresh token.
func (s *Service) LogoutToken(ctx context.Context, refreshRaw string) error {
	hash := token.HashRefreshRaw(strings.TrimSpace(refreshRaw))
	userID, err := s.tokens.Verify(ctx, hash, s.now().UTC())
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, hash); err != nil {
		return err
	}
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		s.publish(ctx, queue.EventLogout, u, "")
	}
	return nil
}

// VerifyAccess decodes an access token, loads its user and confirms the
// account is active. Every token failure collapses to one outcome at the
// HTTP boundary; the distinct errors here feed internal logs only.
func (s *Service) VerifyAccess(ctx context.Context, accessRaw string) (*model.User, error) {
	claims, err := s.codec.Verify(accessRaw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, auth.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrAccountInactive
	}
	return u, nil
}

// issueBundle mints an access token and a stored refresh token for u.
func (s *Service) issueBundle(ctx context.Context, u *model.User) (*Bundle, error) {
	now := s.now().UTC()
	access, _, err := s.codec.Issue(u.ID, u.Username, now)
	if err != nil {
		return nil, err
	}
	ref, err := token.NewRefresh(s.refreshTTL, now)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, u.ID, ref.Hash, ref.ExpiresAt); err != nil {
		return nil, err
	}
	return &Bundle{
		AccessToken:  access,
		RefreshToken: ref.Raw,
		ExpiresIn:    int64(s.codec.TTL().Seconds()),
		User:         u,
	}, nil
}

func (s *Service) touchLogin(ctx context.Context, u *model.User) error {
	at := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		return err
	}
	u.LastLogin = &at
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, u *model.User, provider string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, queue.AuthEvent{
		Type:     typ,
		UserID:   u.ID,
		Username: u.Username,
		Provider: provider,
		At:       s.now().UTC().Format(time.RFC3339),
	})
}
