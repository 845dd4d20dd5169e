package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
)

// resolveOrCreate maps a verified provider profile onto a local account,
// creating one when none exists.
//
// Linking policy, explicit and deliberate: an OAuth login whose email
// already belongs to a password account links to that account instead of
// being rejected. The registered providers (google, github) only assert
// verified emails, which is what makes the silent link acceptable; the
// existing password is left untouched.
//
// Two near-simultaneous first logins for the same email must not create two
// rows. The email unique index is the backstop: a duplicate-key failure on
// create means someone else just won the race, so we re-read their row
// instead of propagating the error.
func (s *Service) resolveOrCreate(ctx context.Context, p model.OAuthProfile) (*model.User, error) {
	// Exact binding first: a returning OAuth user may have changed email at
	// the provider, and the (provider, subject) pair is the stable identity.
	u, err := s.users.GetByProvider(ctx, p.Provider, p.SubjectID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	u, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if !u.HasProvider() {
			if err := s.users.BindProvider(ctx, u.ID, p.Provider, p.SubjectID); err != nil {
				return nil, err
			}
			u.Provider, u.ProviderUserID = p.Provider, p.SubjectID
		}
		return u, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return nil, err
	}

	// Brand-new identity: password-less user with a placeholder username
	// derived from the new id. A username collision gets a fresh id and
	// another attempt; an email collision means we lost the creation race.
	for attempt := 0; attempt < 3; attempt++ {
		nu := &model.User{
			ID:             uuid.NewString(),
			Email:          email,
			Provider:       p.Provider,
			ProviderUserID: p.SubjectID,
			FullName:       p.Name,
			IsActive:       true,
		}
		nu.Username = "user_" + strings.ReplaceAll(nu.ID, "-", "")[:8]

		err := s.users.Create(ctx, nu)
		switch {
		case err == nil:
			return nu, nil
		case errors.Is(err, auth.ErrDuplicateEmail):
			return s.users.GetByEmail(ctx, email)
		case errors.Is(err, auth.ErrDuplicateUsername):
			continue
		default:
			return nil, err
		}
	}
	return nil, errors.New("identity: could not allocate placeholder username")
}
