package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts and gesture mappings.
type UserDB struct {
	db *DB
}

const userColumns = `id, username, email, name, password_hash, github_id, avatar_url, created_at, updated_at`

// Create inserts a password account together with its gesture mappings.
// A taken username or email surfaces as apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User, gestures []model.Gesture) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	return u.db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			user.ID, user.Username, user.Email, user.Name, user.PasswordHash,
			user.GitHubID, user.AvatarURL, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		} else if n == 0 {
			return apperror.Conflict("user", user.Username)
		}

		return insertGestures(ctx, tx, user.ID, gestures)
	})
}

// UpsertGitHub creates an OAuth account on first login and refreshes its
// profile afterwards. The internal id of an existing account never changes.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User, gestures []model.Gesture) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user: missing github id")
	}

	now := time.Now().UTC()
	newID := xid.New().String()

	return u.db.withTx(ctx, func(tx *sqlx.Tx) error {
		// Insert-or-refresh is a single write statement so the transaction
		// starts by taking the write lock.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES (?, ?, ?, ?, '', ?, ?, ?, ?)
			 ON CONFLICT (github_id) DO UPDATE SET
			     email = excluded.email,
			     avatar_url = excluded.avatar_url,
			     updated_at = excluded.updated_at`,
			newID, user.Username, user.Email, user.Name,
			user.GitHubID, user.AvatarURL, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", user.Username)
			}
			return fmt.Errorf("sqlite: upserting GitHub user %d: %w", *user.GitHubID, err)
		}

		var stored model.User
		if err := tx.GetContext(ctx, &stored,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID,
		); err != nil {
			return fmt.Errorf("sqlite: reading GitHub user %d: %w", *user.GitHubID, err)
		}
		*user = stored

		if stored.ID != newID {
			return nil // existing account, gestures already seeded
		}
		return insertGestures(ctx, tx, stored.ID, gestures)
	})
}

// GetUserByID retrieves a user by internal id.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := u.db.x.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by login name.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := u.db.x.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return &user, nil
}

// ListGestures returns the user's gesture mappings in name order.
func (u *UserDB) ListGestures(ctx context.Context, userID string) ([]model.Gesture, error) {
	gestures := []model.Gesture{}
	err := u.db.x.SelectContext(ctx, &gestures,
		`SELECT id, user_id, name, action FROM gestures WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing gestures for %s: %w", userID, err)
	}
	return gestures, nil
}

// ReplaceGestures swaps the user's mappings for the given set atomically.
func (u *UserDB) ReplaceGestures(ctx context.Context, userID string, gestures []model.Gesture) error {
	return u.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM gestures WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("sqlite: clearing gestures for %s: %w", userID, err)
		}
		return insertGestures(ctx, tx, userID, gestures)
	})
}

func insertGestures(ctx context.Context, tx *sqlx.Tx, userID string, gestures []model.Gesture) error {
	for i := range gestures {
		g := &gestures[i]
		g.ID = xid.New().String()
		g.UserID = userID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gestures (id, user_id, name, action) VALUES (?, ?, ?, ?)`,
			g.ID, g.UserID, g.Name, g.Action,
		); err != nil {
			return fmt.Errorf("sqlite: inserting gesture %q: %w", g.Name, err)
		}
	}
	return nil
}

// isUniqueViolation reports a UNIQUE constraint failure. The driver error
// text is stable ("UNIQUE constraint failed: table.column").
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
