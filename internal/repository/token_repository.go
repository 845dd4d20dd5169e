package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/auth-service/internal/auth"
)

// TokenRepo persists refresh tokens. Only SHA-256 hashes of token material
// ever reach this layer; the raw string stays with the caller.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh-token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, expiresAt.UTC())
	return err
}

// Verify returns the owning user id for a live token hash. Not-found,
// revoked and expired are distinct errors here for logging; callers collapse
// them before anything leaves the process. A token expiring exactly at now
// is already expired.
func (r *TokenRepo) Verify(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return "", auth.ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	if revokedAt.Valid {
		return "", auth.ErrTokenRevoked
	}
	if !expiresAt.After(now) {
		return "", auth.ErrTokenExpired
	}
	return userID, nil
}

// Revoke marks one token revoked. Idempotent: revoking an already-revoked
// or unknown hash is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAll revokes every live token owned by the user ("logout everywhere").
func (r *TokenRepo) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// Rotate atomically replaces oldHash with a new token in one transaction:
// the new row is inserted first, then the old row is revoked with a
// conditional update. Zero rows affected means another call already used or
// revoked the token, so the whole transaction rolls back and the caller
// fails exactly as it would for an unknown token. A crash mid-rotation can
// therefore never leave the user logged out without a replacement.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, userID, newHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, expiresAt.UTC()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrTokenRevoked
	}
	return tx.Commit()
}
