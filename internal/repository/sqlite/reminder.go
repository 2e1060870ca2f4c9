package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

var _ repository.ReminderRepository = (*ReminderDB)(nil)

// ReminderDB stores reminders. Every read and write past Create is scoped by
// owner, so a foreign id behaves exactly like a missing one.
type ReminderDB struct {
	db *DB
}

const reminderColumns = `id, user_id, time, description, created_at`

func (r *ReminderDB) Create(ctx context.Context, rem *model.Reminder) error {
	rem.ID = xid.New().String()
	rem.CreatedAt = time.Now().UTC()

	_, err := r.db.x.ExecContext(ctx,
		`INSERT INTO reminders (`+reminderColumns+`) VALUES (?, ?, ?, ?, ?)`,
		rem.ID, rem.UserID, rem.Time, rem.Description, rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating reminder: %w", err)
	}
	return nil
}

// ListByUser returns the user's reminders ordered by time.
func (r *ReminderDB) ListByUser(ctx context.Context, userID string) ([]model.Reminder, error) {
	reminders := []model.Reminder{}
	err := r.db.x.SelectContext(ctx, &reminders,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY time, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reminders for %s: %w", userID, err)
	}
	return reminders, nil
}

func (r *ReminderDB) Get(ctx context.Context, userID, id string) (*model.Reminder, error) {
	var rem model.Reminder
	err := r.db.x.GetContext(ctx, &rem,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotAllowed("reminder")
		}
		return nil, fmt.Errorf("sqlite: getting reminder %s: %w", id, err)
	}
	return &rem, nil
}

func (r *ReminderDB) Update(ctx context.Context, rem *model.Reminder) error {
	res, err := r.db.x.ExecContext(ctx,
		`UPDATE reminders SET time = ?, description = ? WHERE id = ? AND user_id = ?`,
		rem.Time, rem.Description, rem.ID, rem.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating reminder %s: %w", rem.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	} else if n == 0 {
		return apperror.NotAllowed("reminder")
	}
	return nil
}

func (r *ReminderDB) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.x.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reminder %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	} else if n == 0 {
		return apperror.NotAllowed("reminder")
	}
	return nil
}
