package model

import (
	"fmt"
	"time"
)

// WorkoutKind says which table a workout id lives in.
//
// Created (user-authored) and saved (adopted from the catalog) workouts are
// separate entities. Ids are globally unique xids, but every reference to a
// workout still carries its kind so a lookup never has to guess.
type WorkoutKind string

const (
	KindCreated WorkoutKind = "created"
	KindSaved   WorkoutKind = "saved"
)

// ParseWorkoutKind accepts "created" or "saved". An empty string defaults to
// created, which is what the authored-workout endpoints operate on.
func ParseWorkoutKind(s string) (WorkoutKind, error) {
	switch WorkoutKind(s) {
	case "", KindCreated:
		return KindCreated, nil
	case KindSaved:
		return KindSaved, nil
	default:
		return "", fmt.Errorf("unknown workout kind %q", s)
	}
}

// WorkoutRef is the composite identity of a workout.
type WorkoutRef struct {
	Kind WorkoutKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r WorkoutRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// CatalogWorkout is an immutable, system-owned template.
type CatalogWorkout struct {
	ID           int64      `json:"id"           db:"id"`
	Name         string     `json:"name"         db:"name"`
	Equipment    StringList `json:"equipment"    db:"equipment"`
	Muscles      StringList `json:"muscles"      db:"muscles"`
	Type         string     `json:"type"         db:"type"`
	Level        string     `json:"level"        db:"level"`
	Instructions string     `json:"instructions" db:"instructions"`
}

// CatalogFilter narrows a catalog listing. Empty fields do not filter.
type CatalogFilter struct {
	Type   string
	Muscle string
	Level  string
}

// CreatedWorkout is a workout authored from scratch by its owner.
// AssetID is an opaque reference produced by the upload collaborator.
type CreatedWorkout struct {
	ID          string     `json:"id"          db:"id"`
	UserID      string     `json:"-"           db:"user_id"`
	Name        string     `json:"name"        db:"name"`
	Description string     `json:"description" db:"description"`
	Equipment   StringList `json:"equipment"   db:"equipment"`
	ImageURL    string     `json:"imageUrl"    db:"image_url"`
	AssetID     string     `json:"assetId"     db:"asset_id"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
}

// Ref returns the composite identity of w.
func (w *CreatedWorkout) Ref() WorkoutRef {
	return WorkoutRef{Kind: KindCreated, ID: w.ID}
}

// SavedWorkout is a user's adopted copy of a catalog template.
// TemplateID is kept for provenance and becomes nil if the template is
// removed from the catalog.
type SavedWorkout struct {
	ID          string     `json:"id"                   db:"id"`
	UserID      string     `json:"-"                    db:"user_id"`
	TemplateID  *int64     `json:"templateId,omitempty" db:"template_id"`
	Name        string     `json:"name"                 db:"name"`
	Description string     `json:"description"          db:"description"`
	Equipment   StringList `json:"equipment"            db:"equipment"`
	Type        string     `json:"type"                 db:"type"`
	Muscles     StringList `json:"muscles"              db:"muscles"`
	Level       string     `json:"level"                db:"level"`
	CreatedAt   time.Time  `json:"createdAt"            db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"            db:"updated_at"`
}

// Ref returns the composite identity of w.
func (w *SavedWorkout) Ref() WorkoutRef {
	return WorkoutRef{Kind: KindSaved, ID: w.ID}
}

// ChecklistTask is one generated preparation step, before it is stored.
type ChecklistTask struct {
	Task string `json:"task"`
	Done bool   `json:"done"`
}

// ChecklistItem is a stored task attached to exactly one workout.
type ChecklistItem struct {
	ID       string     `json:"id"`
	Workout  WorkoutRef `json:"-"`
	Position int        `json:"-"`
	Task     string     `json:"task"`
	Done     bool       `json:"done"`
}

// ToggleResult is what a checklist toggle reports back.
type ToggleResult struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

// Workout is one entry of the unified per-user listing.
type Workout struct {
	ID          string          `json:"id"`
	Source      WorkoutKind     `json:"source"`
	TemplateID  *int64          `json:"templateId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Equipment   []string        `json:"equipment"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Type        string          `json:"type,omitempty"`
	Muscles     []string        `json:"muscles"`
	Level       string          `json:"level,omitempty"`
	Checklist   []ChecklistItem `json:"checklist"`
}

// UserWorkouts is a consistent snapshot of everything a user owns,
// read in one transaction.
type UserWorkouts struct {
	Created    []CreatedWorkout
	Saved      []SavedWorkout
	Checklists map[WorkoutRef][]ChecklistItem
}
