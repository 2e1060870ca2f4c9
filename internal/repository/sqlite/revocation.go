package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/fitplan/internal/repository"
)

var (
	_ repository.RevocationStore = (*RevocationDB)(nil)
	_ repository.Purger          = (*RevocationDB)(nil)
)

// RevocationDB persists logged-out token ids. It is the fallback store when
// no Redis address is configured; rows are removed by PurgeExpired once the
// token could no longer validate anyway.
type RevocationDB struct {
	db *DB
}

// Revoke records tokenID until expiresAt. Revoking twice keeps the later expiry.
func (r *RevocationDB) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.db.x.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)
		 ON CONFLICT (token_id) DO UPDATE SET expires_at = max(expires_at, excluded.expires_at)`,
		tokenID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (r *RevocationDB) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int
	err := r.db.x.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ? AND expires_at > ?`,
		tokenID, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking token revocation: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired deletes revocations whose token expired before now.
func (r *RevocationDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.x.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
