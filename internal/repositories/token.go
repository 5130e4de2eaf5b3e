package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// TokenRepository records session tokens revoked before they expire.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Revoke marks the token identified by jti as revoked. Revoking twice is not an error.
func (r *TokenRepository) Revoke(jti, userID string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		"INSERT OR IGNORE INTO revoked_tokens (jti, user_id, expires_at, revoked_at) VALUES (?, ?, ?, ?)",
		jti, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *TokenRepository) IsRevoked(jti string) (bool, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(1) FROM revoked_tokens WHERE jti = ?", jti).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query revoked token: %w", err)
	}
	return n > 0, nil
}

// Purge deletes revocations for tokens that expired before cutoff and returns how many were removed.
func (r *TokenRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM revoked_tokens WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	return result.RowsAffected()
}
