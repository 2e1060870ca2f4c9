package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

var _ repository.WorkoutRepository = (*WorkoutDB)(nil)

// WorkoutDB stores created workouts, saved workouts and their checklists.
//
// The two workout kinds live in separate tables. A checklist row points at
// one of them through a kind-specific foreign key (created_workout_id or
// saved_workout_id, exactly one set), so an item can never be attached to
// the wrong kind of workout.
type WorkoutDB struct {
	db *DB
}

const (
	createdColumns = `id, user_id, name, description, equipment, image_url, asset_id, created_at, updated_at`
	savedColumns   = `id, user_id, template_id, name, description, equipment, type, muscles, level, created_at, updated_at`
	itemColumns    = `ci.id, ci.created_workout_id, ci.saved_workout_id, ci.position, ci.task, ci.done`
)

// workoutTable describes where one kind of workout is stored.
type workoutTable struct {
	name     string // workout table
	itemsFK  string // checklist_items column pointing at it
	resource string // name used in error messages
}

var tables = map[model.WorkoutKind]workoutTable{
	model.KindCreated: {name: "created_workouts", itemsFK: "created_workout_id", resource: "workout"},
	model.KindSaved:   {name: "saved_workouts", itemsFK: "saved_workout_id", resource: "saved workout"},
}

// checklistRow is the storage shape of a checklist item.
type checklistRow struct {
	ID               string         `db:"id"`
	CreatedWorkoutID sql.NullString `db:"created_workout_id"`
	SavedWorkoutID   sql.NullString `db:"saved_workout_id"`
	Position         int            `db:"position"`
	Task             string         `db:"task"`
	Done             bool           `db:"done"`
}

func (r checklistRow) item() model.ChecklistItem {
	ref := model.WorkoutRef{Kind: model.KindCreated, ID: r.CreatedWorkoutID.String}
	if r.SavedWorkoutID.Valid {
		ref = model.WorkoutRef{Kind: model.KindSaved, ID: r.SavedWorkoutID.String}
	}
	return model.ChecklistItem{
		ID:       r.ID,
		Workout:  ref,
		Position: r.Position,
		Task:     r.Task,
		Done:     r.Done,
	}
}

// CreateAuthored inserts w and its checklist in one transaction.
func (r *WorkoutDB) CreateAuthored(ctx context.Context, w *model.CreatedWorkout, tasks []model.ChecklistTask) ([]model.ChecklistItem, error) {
	now := time.Now().UTC()
	w.ID = xid.New().String()
	w.CreatedAt = now
	w.UpdatedAt = now

	var items []model.ChecklistItem
	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO created_workouts (`+createdColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.UserID, w.Name, w.Description, w.Equipment,
			w.ImageURL, w.AssetID, w.CreatedAt, w.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating workout: %w", err)
		}

		items, err = insertChecklist(ctx, tx, w.Ref(), tasks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetAuthored returns a created workout or apperror.ErrNotFound.
func (r *WorkoutDB) GetAuthored(ctx context.Context, id string) (*model.CreatedWorkout, error) {
	var w model.CreatedWorkout
	err := r.db.x.GetContext(ctx, &w, `SELECT `+createdColumns+` FROM created_workouts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("workout", id)
		}
		return nil, fmt.Errorf("sqlite: getting workout %s: %w", id, err)
	}
	return &w, nil
}

// UpdateAuthored writes every mutable column of w. The row must still belong
// to w.UserID. A non-nil tasks slice replaces the checklist in the same
// transaction, so readers never see new equipment with old items.
func (r *WorkoutDB) UpdateAuthored(ctx context.Context, w *model.CreatedWorkout, tasks []model.ChecklistTask) error {
	w.UpdatedAt = time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE created_workouts
			 SET name = ?, description = ?, equipment = ?, image_url = ?, asset_id = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			w.Name, w.Description, w.Equipment, w.ImageURL, w.AssetID, w.UpdatedAt,
			w.ID, w.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating workout %s: %w", w.ID, err)
		}
		if err := expectOneRow(res, "workout", w.ID); err != nil {
			return err
		}

		if tasks == nil {
			return nil
		}
		return replaceChecklist(ctx, tx, w.Ref(), tasks)
	})
}

// DeleteAuthored removes the user's created workouts among ids, or all of
// them when all is set. Ids that are missing or owned by someone else are
// skipped. The returned slice holds exactly the ids deleted, sorted.
func (r *WorkoutDB) DeleteAuthored(ctx context.Context, userID string, ids []string, all bool) ([]string, error) {
	return r.deleteOwned(ctx, tables[model.KindCreated], userID, ids, all)
}

// GetSaved returns a saved workout or apperror.ErrNotFound.
func (r *WorkoutDB) GetSaved(ctx context.Context, id string) (*model.SavedWorkout, error) {
	var w model.SavedWorkout
	err := r.db.x.GetContext(ctx, &w, `SELECT `+savedColumns+` FROM saved_workouts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("saved workout", id)
		}
		return nil, fmt.Errorf("sqlite: getting saved workout %s: %w", id, err)
	}
	return &w, nil
}

// FindSaved returns the user's adoption of templateID or apperror.ErrNotFound.
func (r *WorkoutDB) FindSaved(ctx context.Context, userID string, templateID int64) (*model.SavedWorkout, error) {
	var w model.SavedWorkout
	err := r.db.x.GetContext(ctx, &w,
		`SELECT `+savedColumns+` FROM saved_workouts WHERE user_id = ? AND template_id = ?`,
		userID, templateID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("saved workout", strconv.FormatInt(templateID, 10))
		}
		return nil, fmt.Errorf("sqlite: finding saved workout for template %d: %w", templateID, err)
	}
	return &w, nil
}

// UpdateSaved mirrors UpdateAuthored for saved workouts.
func (r *WorkoutDB) UpdateSaved(ctx context.Context, w *model.SavedWorkout, tasks []model.ChecklistTask) error {
	w.UpdatedAt = time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE saved_workouts
			 SET name = ?, description = ?, equipment = ?, type = ?, muscles = ?, level = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			w.Name, w.Description, w.Equipment, w.Type, w.Muscles, w.Level, w.UpdatedAt,
			w.ID, w.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating saved workout %s: %w", w.ID, err)
		}
		if err := expectOneRow(res, "saved workout", w.ID); err != nil {
			return err
		}

		if tasks == nil {
			return nil
		}
		return replaceChecklist(ctx, tx, w.Ref(), tasks)
	})
}

// DeleteSaved mirrors DeleteAuthored for saved workouts.
func (r *WorkoutDB) DeleteSaved(ctx context.Context, userID string, ids []string, all bool) ([]string, error) {
	return r.deleteOwned(ctx, tables[model.KindSaved], userID, ids, all)
}

// Adopt inserts every draft and its checklist in one transaction.
//
// IDEMPOTENCY:
// The unique index on (user_id, template_id) is the guard. Each insert uses
// ON CONFLICT DO NOTHING; when nothing was inserted another request (or an
// earlier draft in this batch) already adopted the template, and the
// existing row is returned with Created=false. Losing that race is therefore
// never an error, and the loser never generates a second checklist.
func (r *WorkoutDB) Adopt(ctx context.Context, drafts []repository.AdoptDraft) ([]repository.AdoptOutcome, error) {
	outcomes := make([]repository.AdoptOutcome, 0, len(drafts))

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, d := range drafts {
			w := d.Workout
			now := time.Now().UTC()
			w.ID = xid.New().String()
			w.CreatedAt = now
			w.UpdatedAt = now

			res, err := tx.ExecContext(ctx,
				`INSERT INTO saved_workouts (`+savedColumns+`)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (user_id, template_id) DO NOTHING`,
				w.ID, w.UserID, w.TemplateID, w.Name, w.Description, w.Equipment,
				w.Type, w.Muscles, w.Level, w.CreatedAt, w.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("sqlite: adopting template: %w", err)
			}
			inserted, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: checking rows affected: %w", err)
			}

			if inserted == 0 {
				existing, items, err := existingAdoption(ctx, tx, w.UserID, w.TemplateID)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, repository.AdoptOutcome{Workout: existing, Checklist: items})
				continue
			}

			items, err := insertChecklist(ctx, tx, w.Ref(), d.Tasks)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, repository.AdoptOutcome{Workout: w, Checklist: items, Created: true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func existingAdoption(ctx context.Context, tx *sqlx.Tx, userID string, templateID *int64) (*model.SavedWorkout, []model.ChecklistItem, error) {
	var existing model.SavedWorkout
	if err := tx.GetContext(ctx, &existing,
		`SELECT `+savedColumns+` FROM saved_workouts WHERE user_id = ? AND template_id = ?`,
		userID, templateID,
	); err != nil {
		return nil, nil, fmt.Errorf("sqlite: reading existing adoption: %w", err)
	}

	items, err := checklistFor(ctx, tx, existing.Ref())
	if err != nil {
		return nil, nil, err
	}
	return &existing, items, nil
}

// Checklist returns the items of one workout in generation order.
func (r *WorkoutDB) Checklist(ctx context.Context, ref model.WorkoutRef) ([]model.ChecklistItem, error) {
	return checklistFor(ctx, r.db.x, ref)
}

// LoadUserWorkouts reads both workout kinds and every checklist item the
// user owns inside one transaction, giving a consistent snapshot.
func (r *WorkoutDB) LoadUserWorkouts(ctx context.Context, userID string) (*model.UserWorkouts, error) {
	out := &model.UserWorkouts{
		Created:    []model.CreatedWorkout{},
		Saved:      []model.SavedWorkout{},
		Checklists: map[model.WorkoutRef][]model.ChecklistItem{},
	}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &out.Created,
			`SELECT `+createdColumns+` FROM created_workouts WHERE user_id = ? ORDER BY id`, userID,
		); err != nil {
			return fmt.Errorf("sqlite: listing workouts for %s: %w", userID, err)
		}

		if err := tx.SelectContext(ctx, &out.Saved,
			`SELECT `+savedColumns+` FROM saved_workouts WHERE user_id = ? ORDER BY id`, userID,
		); err != nil {
			return fmt.Errorf("sqlite: listing saved workouts for %s: %w", userID, err)
		}

		var rows []checklistRow
		if err := tx.SelectContext(ctx, &rows,
			`SELECT `+itemColumns+`
			 FROM checklist_items ci
			 LEFT JOIN created_workouts cw ON cw.id = ci.created_workout_id
			 LEFT JOIN saved_workouts sw ON sw.id = ci.saved_workout_id
			 WHERE cw.user_id = ? OR sw.user_id = ?
			 ORDER BY ci.position, ci.id`,
			userID, userID,
		); err != nil {
			return fmt.Errorf("sqlite: listing checklist items for %s: %w", userID, err)
		}

		for _, row := range rows {
			item := row.item()
			out.Checklists[item.Workout] = append(out.Checklists[item.Workout], item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleChecklistItem flips done on an item whose workout belongs to userID.
// The ownership join is part of the UPDATE itself, so a missing item and an
// item owned by someone else are indistinguishable: both are NotAllowed.
func (r *WorkoutDB) ToggleChecklistItem(ctx context.Context, userID, itemID string) (*model.ToggleResult, error) {
	result := &model.ToggleResult{ID: itemID}

	err := r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE checklist_items SET done = NOT done
			 WHERE id = ? AND (
			     created_workout_id IN (SELECT id FROM created_workouts WHERE user_id = ?)
			     OR saved_workout_id IN (SELECT id FROM saved_workouts WHERE user_id = ?)
			 )`,
			itemID, userID, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: toggling checklist item %s: %w", itemID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotAllowed("checklist item")
		}

		if err := tx.GetContext(ctx, &result.Done,
			`SELECT done FROM checklist_items WHERE id = ?`, itemID,
		); err != nil {
			return fmt.Errorf("sqlite: reading checklist item %s: %w", itemID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *WorkoutDB) deleteOwned(ctx context.Context, t workoutTable, userID string, ids []string, all bool) ([]string, error) {
	if !all && len(ids) == 0 {
		return []string{}, nil
	}

	scope := `user_id = ?`
	args := []any{userID}
	if !all {
		scope = `user_id = ? AND id IN (?)`
		args = append(args, ids)
	}

	itemsQuery, itemsArgs, err := sqlx.In(
		`DELETE FROM checklist_items WHERE `+t.itemsFK+` IN (SELECT id FROM `+t.name+` WHERE `+scope+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building checklist delete: %w", err)
	}
	rowsQuery, rowsArgs, err := sqlx.In(
		`DELETE FROM `+t.name+` WHERE `+scope+` RETURNING id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building %s delete: %w", t.resource, err)
	}

	deleted := []string{}
	err = r.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(itemsQuery), itemsArgs...); err != nil {
			return fmt.Errorf("sqlite: deleting %s checklist items: %w", t.resource, err)
		}
		if err := tx.SelectContext(ctx, &deleted, tx.Rebind(rowsQuery), rowsArgs...); err != nil {
			return fmt.Errorf("sqlite: deleting %s rows: %w", t.resource, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(deleted)
	return deleted, nil
}

func insertChecklist(ctx context.Context, tx *sqlx.Tx, ref model.WorkoutRef, tasks []model.ChecklistTask) ([]model.ChecklistItem, error) {
	t, ok := tables[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("sqlite: unknown workout kind %q", ref.Kind)
	}

	items := make([]model.ChecklistItem, 0, len(tasks))
	for i, task := range tasks {
		item := model.ChecklistItem{
			ID:       xid.New().String(),
			Workout:  ref,
			Position: i,
			Task:     task.Task,
			Done:     task.Done,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checklist_items (id, `+t.itemsFK+`, position, task, done) VALUES (?, ?, ?, ?, ?)`,
			item.ID, ref.ID, item.Position, item.Task, item.Done,
		); err != nil {
			return nil, fmt.Errorf("sqlite: inserting checklist item for %s: %w", ref, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func replaceChecklist(ctx context.Context, tx *sqlx.Tx, ref model.WorkoutRef, tasks []model.ChecklistTask) error {
	t := tables[ref.Kind]
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM checklist_items WHERE `+t.itemsFK+` = ?`, ref.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing checklist for %s: %w", ref, err)
	}
	_, err := insertChecklist(ctx, tx, ref, tasks)
	return err
}

func checklistFor(ctx context.Context, q sqlx.QueryerContext, ref model.WorkoutRef) ([]model.ChecklistItem, error) {
	t, ok := tables[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("sqlite: unknown workout kind %q", ref.Kind)
	}

	var rows []checklistRow
	if err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT `+itemColumns+` FROM checklist_items ci WHERE ci.`+t.itemsFK+` = ? ORDER BY ci.position, ci.id`,
		ref.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: listing checklist for %s: %w", ref, err)
	}

	items := make([]model.ChecklistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
