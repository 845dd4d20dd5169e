package model

import (
	"errors"
	"time"
)

// ErrNoCredential is returned by User.Validate when a record carries neither a
// password hash nor an OAuth provider binding.  Such a user could never
// authenticate and must not be persisted.
var ErrNoCredential = errors.New("user has neither password nor provider binding")

// User mirrors the `users` table.  PasswordHash is empty for OAuth-only
// accounts; Provider/ProviderUserID are empty for password-only accounts.
// At least one of the two credential sources must be present.
//
// Fields:
//  ID             – UUID primary key (users.id).
//  Username       – unique username.
//  Email          – unique, normalized (lowercase) email address.
//  PasswordHash   – bcrypt hash, empty when the account is OAuth-only.
//  Provider       – OAuth provider name ("google", "github"), empty if unbound.
//  ProviderUserID – provider-assigned subject id; unique together with Provider.
//  FullName       – optional display name.
//  IsActive       – whether the account may authenticate.
//  LastLogin      – last successful authentication (nil before first login).
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Provider       string
	ProviderUserID string
	FullName       string
	IsActive       bool
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate enforces the construction invariant: a user authenticates with a
// password or through a provider, never with neither.
func (u *User) Validate() error {
	if u.PasswordHash == "" && (u.Provider == "" || u.ProviderUserID == "") {
		return ErrNoCredential
	}
	return nil
}

// HasProvider reports whether the user carries an OAuth binding.
func (u *User) HasProvider() bool {
	return u.Provider != "" && u.ProviderUserID != ""
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// OAuthProfile is the transient identity a provider asserts after a
// successful code exchange.  It is never persisted as-is; only the fields
// copied onto a User record survive the login.
type OAuthProfile struct {
	Provider  string
	SubjectID string
	Email     string
	Name      string
}
