package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepo persists user records in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user row. Uniqueness collisions are mapped to the
// specific duplicate error for the violated key so callers can report which
// field collided (registration) or retry a lookup (OAuth resolve race).
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, provider, provider_user_id, full_name, is_active)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email,
		nullStr(u.PasswordHash), nullStr(u.Provider), nullStr(u.ProviderUserID), nullStr(u.FullName),
		u.IsActive)
	if err != nil {
		return mapDuplicate(err)
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getWhere(ctx, "email=?", email)
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getWhere(ctx, "username=?", username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByProvider fetches a user by its OAuth binding.
func (r *UserRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	return r.getWhere(ctx, "provider=? AND provider_user_id=?", provider, providerUserID)
}

// TouchLastLogin records a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=? WHERE id=?", at.UTC(), id)
	return err
}

// BindProvider links an OAuth identity to an existing account that has none.
// The WHERE guard keeps a concurrent bind from overwriting another provider.
func (r *UserRepo) BindProvider(ctx context.Context, id, provider, providerUserID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET provider=?, provider_user_id=? WHERE id=? AND provider IS NULL",
		provider, providerUserID, id)
	return mapDuplicate(err)
}

// SetActive toggles the account's ability to authenticate.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

func (r *UserRepo) getWhere(ctx context.Context, where string, args ...any) (*model.User, error) {
	var (
		u         model.User
		pwHash    sql.NullString
		provider  sql.NullString
		provUID   sql.NullString
		fullName  sql.NullString
		lastLogin sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, provider, provider_user_id, full_name,
		        is_active, last_login, created_at, updated_at
		 FROM users WHERE `+where+` LIMIT 1`, args...).
		Scan(&u.ID, &u.Username, &u.Email, &pwHash, &provider, &provUID, &fullName,
			&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.PasswordHash = pwHash.String
	u.Provider = provider.String
	u.ProviderUserID = provUID.String
	u.FullName = fullName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// mapDuplicate converts a MySQL 1062 duplicate-key error into the sentinel
// for the violated unique index. Index names come from the migration.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	switch {
	case strings.Contains(msg, "uq_users_username"):
		return auth.ErrDuplicateUsername
	case strings.Contains(msg, "uq_users_email"):
		return auth.ErrDuplicateEmail
	case strings.Contains(msg, "uq_users_provider"):
		return auth.ErrDuplicateEmail // same account already bound; caller re-resolves
	}
	return err
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
