// Package repository declares the storage contracts used by the service layer.
// Implementations live in subpackages (sqlite, redis).
package repository

import (
	"context"
	"time"

	"github.com/sakif/fitplan/internal/model"
)

// UserRepository stores accounts and their gesture mappings.
type UserRepository interface {
	// Create inserts a password account and seeds gestures in one transaction.
	// Duplicate username or email yields apperror.ErrConflict.
	Create(ctx context.Context, user *model.User, gestures []model.Gesture) error
	// UpsertGitHub creates or refreshes an OAuth account keyed by GitHub id.
	UpsertGitHub(ctx context.Context, user *model.User, gestures []model.Gesture) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	ListGestures(ctx context.Context, userID string) ([]model.Gesture, error)
	ReplaceGestures(ctx context.Context, userID string, gestures []model.Gesture) error
}

// CatalogRepository is the read path over catalog templates.
type CatalogRepository interface {
	ListTemplates(ctx context.Context, filter model.CatalogFilter) ([]model.CatalogWorkout, error)
	GetTemplate(ctx context.Context, id int64) (*model.CatalogWorkout, error)
	// ReplaceCatalog upserts templates by id and removes the rest.
	ReplaceCatalog(ctx context.Context, templates []model.CatalogWorkout) error
}

// AdoptDraft is a saved workout ready to insert plus its generated checklist.
type AdoptDraft struct {
	Workout *model.SavedWorkout
	Tasks   []model.ChecklistTask
}

// AdoptOutcome is the stored state for one draft. Created is false when the
// (user, template) pair already existed, in which case Workout and Checklist
// describe the existing row.
type AdoptOutcome struct {
	Workout   *model.SavedWorkout
	Checklist []model.ChecklistItem
	Created   bool
}

// WorkoutRepository owns created workouts, saved workouts and checklist items.
// Every multi-row write runs in a single transaction.
type WorkoutRepository interface {
	// CreateAuthored inserts w and its checklist in one transaction and
	// returns the stored items.
	CreateAuthored(ctx context.Context, w *model.CreatedWorkout, tasks []model.ChecklistTask) ([]model.ChecklistItem, error)
	GetAuthored(ctx context.Context, id string) (*model.CreatedWorkout, error)
	// UpdateAuthored writes w (matched by id and user id). When tasks is
	// non-nil the checklist is replaced in the same transaction.
	UpdateAuthored(ctx context.Context, w *model.CreatedWorkout, tasks []model.ChecklistTask) error
	// DeleteAuthored deletes the user's workouts among ids (or all of them)
	// together with their checklist items and returns the ids removed.
	DeleteAuthored(ctx context.Context, userID string, ids []string, all bool) ([]string, error)

	GetSaved(ctx context.Context, id string) (*model.SavedWorkout, error)
	FindSaved(ctx context.Context, userID string, templateID int64) (*model.SavedWorkout, error)
	UpdateSaved(ctx context.Context, w *model.SavedWorkout, tasks []model.ChecklistTask) error
	DeleteSaved(ctx context.Context, userID string, ids []string, all bool) ([]string, error)
	// Adopt inserts drafts in one transaction. A draft whose (user, template)
	// pair already exists resolves to the existing row instead of failing.
	Adopt(ctx context.Context, drafts []AdoptDraft) ([]AdoptOutcome, error)

	Checklist(ctx context.Context, ref model.WorkoutRef) ([]model.ChecklistItem, error)
	LoadUserWorkouts(ctx context.Context, userID string) (*model.UserWorkouts, error)
	// ToggleChecklistItem flips done on an item the user owns. Missing and
	// foreign items both yield apperror.ErrNotAllowed.
	ToggleChecklistItem(ctx context.Context, userID, itemID string) (*model.ToggleResult, error)
}

// PaymentRepository stores entitlement records.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, reference string, status model.PaymentStatus, paidAt *time.Time) error
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}

// ReminderRepository stores reminders. Get/Update/Delete are owner-scoped.
type ReminderRepository interface {
	Create(ctx context.Context, r *model.Reminder) error
	ListByUser(ctx context.Context, userID string) ([]model.Reminder, error)
	Get(ctx context.Context, userID, id string) (*model.Reminder, error)
	Update(ctx context.Context, r *model.Reminder) error
	Delete(ctx context.Context, userID, id string) error
}

// RevocationStore remembers logged-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Purger is implemented by stores whose expired rows must be removed by a
// periodic job.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
