// Package service holds the business rules. Handlers call services with
// plain Go values; services validate, check ownership and entitlement, and
// delegate persistence to the repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/checklist"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/observability"
	"github.com/sakif/fitplan/internal/repository"
)

// Validation limits.
const (
	MaxWorkoutNameLength        = 100
	MaxWorkoutDescriptionLength = 2000
)

// EntitlementChecker decides whether a user may author workouts.
type EntitlementChecker interface {
	HasCreateEntitlement(ctx context.Context, userID string) bool
}

// WorkoutService reconciles catalog templates, created workouts and saved
// workouts into one per-user view and owns every workout mutation.
type WorkoutService struct {
	workouts repository.WorkoutRepository
	catalog  repository.CatalogRepository
	gate     EntitlementChecker
	logger   *slog.Logger
}

func NewWorkoutService(
	workouts repository.WorkoutRepository,
	catalog repository.CatalogRepository,
	gate EntitlementChecker,
	logger *slog.Logger,
) *WorkoutService {
	return &WorkoutService{
		workouts: workouts,
		catalog:  catalog,
		gate:     gate,
		logger:   logger,
	}
}

// AdoptOverrides replaces template fields at adoption time. A nil field
// keeps the template value. Blank strings also keep the template value,
// while a non-nil Equipment or Muscles always wins, even when empty.
type AdoptOverrides struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Equipment   *[]string `json:"equipment"`
	Type        *string   `json:"type"`
	Muscles     *[]string `json:"muscles"`
	Level       *string   `json:"level"`
}

// AdoptResult is one adopted template. Created is false when the user had
// already adopted it and the existing copy is returned.
type AdoptResult struct {
	Workout   *model.SavedWorkout
	Checklist []model.ChecklistItem
	Created   bool
}

// CreateWorkoutInput is the canonical input for authoring a workout.
type CreateWorkoutInput struct {
	Name        string
	Description string
	Equipment   []string
	ImageURL    string
	AssetID     string
}

// WorkoutPatch is a partial update. Nil fields are left alone. Fields that
// do not exist on the target kind (Type/Muscles/Level on created workouts,
// ImageURL on saved ones) are ignored.
type WorkoutPatch struct {
	Name        *string
	Description *string
	Equipment   *[]string
	ImageURL    *string
	Type        *string
	Muscles     *[]string
	Level       *string
}

func (p WorkoutPatch) emptyFor(kind model.WorkoutKind) bool {
	common := p.Name == nil && p.Description == nil && p.Equipment == nil
	if kind == model.KindCreated {
		return common && p.ImageURL == nil
	}
	return common && p.Type == nil && p.Muscles == nil && p.Level == nil
}

// ListForUser returns every workout the user owns, each with its checklist.
// Saved workouts come first, then created ones; within a group entries are
// ordered by name (case-insensitive) and then id, so the order is stable.
func (s *WorkoutService) ListForUser(ctx context.Context, userID string) ([]model.Workout, error) {
	snap, err := s.workouts.LoadUserWorkouts(ctx, userID)
	if err != nil {
		s.logStorage("failed to load workouts", userID, err)
		return nil, apperror.Wrap("listing workouts", err)
	}

	out := make([]model.Workout, 0, len(snap.Saved)+len(snap.Created))
	for i := range snap.Saved {
		w := &snap.Saved[i]
		out = append(out, savedView(w, snap.Checklists[w.Ref()]))
	}
	for i := range snap.Created {
		w := &snap.Created[i]
		out = append(out, createdView(w, snap.Checklists[w.Ref()]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			return a.Source == model.KindSaved
		}
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})

	return out, nil
}

// Adopt copies templateID into the user's saved workouts. A missing template
// is NotFound. Adopting the same template twice returns the first copy and
// its checklist untouched.
func (s *WorkoutService) Adopt(ctx context.Context, userID string, templateID int64, overrides *AdoptOverrides) (*AdoptResult, error) {
	results, err := s.adopt(ctx, userID, []int64{templateID}, func(int64) *AdoptOverrides { return overrides })
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperror.NotFound("catalog workout", fmt.Sprint(templateID))
	}
	return &results[0], nil
}

// AdoptMany adopts several templates in one transaction. Duplicate ids are
// collapsed, missing templates are skipped, and results follow input order.
// If nothing at all could be saved the call fails with a Conflict.
func (s *WorkoutService) AdoptMany(ctx context.Context, userID string, templateIDs []int64, overrides map[int64]AdoptOverrides) ([]AdoptResult, error) {
	if len(templateIDs) == 0 {
		return nil, apperror.ValidationFailed("template_ids", "at least one template id is required")
	}

	results, err := s.adopt(ctx, userID, templateIDs, func(id int64) *AdoptOverrides {
		if o, ok := overrides[id]; ok {
			return &o
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperror.ConflictMessage("nothing saved")
	}
	return results, nil
}

// adopt resolves each distinct template, reuses existing adoptions and
// writes the rest with a single repository call.
func (s *WorkoutService) adopt(ctx context.Context, userID string, templateIDs []int64, overridesFor func(int64) *AdoptOverrides) ([]AdoptResult, error) {
	type slot struct {
		result *AdoptResult // set for an existing adoption
		draft  int          // index into drafts otherwise
	}

	var (
		slots  []slot
		drafts []repository.AdoptDraft
		seen   = make(map[int64]bool, len(templateIDs))
	)

	for _, id := range templateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		tmpl, err := s.catalog.GetTemplate(ctx, id)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				observability.RecordAdoption(observability.AdoptionMissing)
				continue
			}
			s.logStorage("failed to load template", userID, err)
			return nil, apperror.Wrap("loading template", err)
		}

		existing, err := s.existingAdoption(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			observability.RecordAdoption(observability.AdoptionExisting)
			slots = append(slots, slot{result: existing})
			continue
		}

		w := resolveAdoption(userID, tmpl, overridesFor(id))
		slots = append(slots, slot{draft: len(drafts)})
		drafts = append(drafts, repository.AdoptDraft{
			Workout: w,
			Tasks:   checklist.Generate(w.Equipment),
		})
	}

	var outcomes []repository.AdoptOutcome
	if len(drafts) > 0 {
		var err error
		outcomes, err = s.workouts.Adopt(ctx, drafts)
		if err != nil {
			s.logStorage("failed to adopt templates", userID, err)
			return nil, apperror.Wrap("adopting templates", err)
		}
	}

	results := make([]AdoptResult, 0, len(slots))
	for _, sl := range slots {
		if sl.result != nil {
			results = append(results, *sl.result)
			continue
		}
		o := outcomes[sl.draft]
		if o.Created {
			observability.RecordAdoption(observability.AdoptionCreated)
			s.logger.Info("template adopted",
				slog.String("user_id", userID),
				slog.String("workout_id", o.Workout.ID),
			)
		} else {
			// lost an insert race to a concurrent request
			observability.RecordAdoption(observability.AdoptionExisting)
		}
		results = append(results, AdoptResult{Workout: o.Workout, Checklist: o.Checklist, Created: o.Created})
	}
	return results, nil
}

func (s *WorkoutService) existingAdoption(ctx context.Context, userID string, templateID int64) (*AdoptResult, error) {
	w, err := s.workouts.FindSaved(ctx, userID, templateID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		s.logStorage("failed to look up adoption", userID, err)
		return nil, apperror.Wrap("looking up adoption", err)
	}

	items, err := s.workouts.Checklist(ctx, w.Ref())
	if err != nil {
		s.logStorage("failed to load checklist", userID, err)
		return nil, apperror.Wrap("loading checklist", err)
	}
	return &AdoptResult{Workout: w, Checklist: items}, nil
}

// resolveAdoption merges a template with optional overrides.
func resolveAdoption(userID string, tmpl *model.CatalogWorkout, o *AdoptOverrides) *model.SavedWorkout {
	if o == nil {
		o = &AdoptOverrides{}
	}
	templateID := tmpl.ID

	w := &model.SavedWorkout{
		UserID:      userID,
		TemplateID:  &templateID,
		Name:        firstNonBlank(o.Name, tmpl.Name),
		Description: firstNonBlank(o.Description, tmpl.Instructions),
		Type:        firstNonBlank(o.Type, tmpl.Type),
		Level:       firstNonBlank(o.Level, tmpl.Level),
		Equipment:   checklist.Normalize(tmpl.Equipment),
		Muscles:     checklist.Normalize(tmpl.Muscles),
	}
	if o.Equipment != nil {
		w.Equipment = checklist.Normalize(*o.Equipment)
	}
	if o.Muscles != nil {
		w.Muscles = checklist.Normalize(*o.Muscles)
	}
	return w
}

func firstNonBlank(override *string, fallback string) string {
	if override != nil {
		if v := strings.TrimSpace(*override); v != "" {
			return v
		}
	}
	return fallback
}

// CreateAuthored validates in, checks the entitlement gate and stores the
// workout with a generated checklist. A denied gate writes nothing.
func (s *WorkoutService) CreateAuthored(ctx context.Context, userID string, in CreateWorkoutInput) (*model.Workout, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	if !s.gate.HasCreateEntitlement(ctx, userID) {
		s.logger.Info("workout creation denied", slog.String("user_id", userID))
		return nil, apperror.Forbidden("an active subscription is required to create workouts")
	}

	w := &model.CreatedWorkout{
		UserID:      userID,
		Name:        name,
		Description: description,
		Equipment:   checklist.Normalize(in.Equipment),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		AssetID:     strings.TrimSpace(in.AssetID),
	}

	items, err := s.workouts.CreateAuthored(ctx, w, checklist.Generate(w.Equipment))
	if err != nil {
		s.logStorage("failed to create workout", userID, err)
		return nil, apperror.Wrap("creating workout", err)
	}

	s.logger.Info("workout created",
		slog.String("user_id", userID),
		slog.String("workout_id", w.ID),
	)

	view := createdView(w, items)
	return &view, nil
}

// UpdateWorkout applies patch to the user's workout of the given kind. An
// equipment change regenerates the checklist in the same transaction.
func (s *WorkoutService) UpdateWorkout(ctx context.Context, userID string, kind model.WorkoutKind, id string, patch WorkoutPatch) (*model.Workout, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "workout id is required")
	}
	if patch.emptyFor(kind) {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	var name string
	if patch.Name != nil {
		n, err := validateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		name = n
	}
	var description string
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
	}

	var tasks []model.ChecklistTask
	var equipment []string
	if patch.Equipment != nil {
		equipment = checklist.Normalize(*patch.Equipment)
		tasks = checklist.Generate(equipment)
	}

	switch kind {
	case model.KindCreated:
		w, err := s.workouts.GetAuthored(ctx, id)
		if err != nil {
			return nil, s.ownershipError(err, "workout", userID)
		}
		if w.UserID != userID {
			return nil, apperror.NotAllowed("workout")
		}

		if patch.Name != nil {
			w.Name = name
		}
		if patch.Description != nil {
			w.Description = description
		}
		if patch.Equipment != nil {
			w.Equipment = equipment
		}
		if patch.ImageURL != nil {
			w.ImageURL = strings.TrimSpace(*patch.ImageURL)
		}

		if err := s.workouts.UpdateAuthored(ctx, w, tasks); err != nil {
			return nil, s.ownershipError(err, "workout", userID)
		}
		items, err := s.workouts.Checklist(ctx, w.Ref())
		if err != nil {
			return nil, apperror.Wrap("loading checklist", err)
		}
		view := createdView(w, items)
		return &view, nil

	case model.KindSaved:
		w, err := s.workouts.GetSaved(ctx, id)
		if err != nil {
			return nil, s.ownershipError(err, "saved workout", userID)
		}
		if w.UserID != userID {
			return nil, apperror.NotAllowed("saved workout")
		}

		if patch.Name != nil {
			w.Name = name
		}
		if patch.Description != nil {
			w.Description = description
		}
		if patch.Equipment != nil {
			w.Equipment = equipment
		}
		if patch.Type != nil {
			w.Type = strings.TrimSpace(*patch.Type)
		}
		if patch.Level != nil {
			w.Level = strings.TrimSpace(*patch.Level)
		}
		if patch.Muscles != nil {
			w.Muscles = checklist.Normalize(*patch.Muscles)
		}

		if err := s.workouts.UpdateSaved(ctx, w, tasks); err != nil {
			return nil, s.ownershipError(err, "saved workout", userID)
		}
		items, err := s.workouts.Checklist(ctx, w.Ref())
		if err != nil {
			return nil, apperror.Wrap("loading checklist", err)
		}
		view := savedView(w, items)
		return &view, nil
	}

	return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown workout kind %q", kind))
}

// DeleteWorkouts removes the user's workouts of one kind, either the listed
// ids or all of them. Foreign and missing ids are skipped; the result is
// exactly what was deleted.
func (s *WorkoutService) DeleteWorkouts(ctx context.Context, userID string, kind model.WorkoutKind, ids []string, all bool) ([]string, error) {
	ids = dedupeIDs(ids)
	if !all && len(ids) == 0 {
		return nil, apperror.ValidationFailed("ids", "at least one workout id or \"all\" is required")
	}

	var (
		deleted []string
		err     error
	)
	switch kind {
	case model.KindCreated:
		deleted, err = s.workouts.DeleteAuthored(ctx, userID, ids, all)
	case model.KindSaved:
		deleted, err = s.workouts.DeleteSaved(ctx, userID, ids, all)
	default:
		return nil, apperror.ValidationFailed("kind", fmt.Sprintf("unknown workout kind %q", kind))
	}
	if err != nil {
		s.logStorage("failed to delete workouts", userID, err)
		return nil, apperror.Wrap("deleting workouts", err)
	}

	s.logger.Info("workouts deleted",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.Int("count", len(deleted)),
	)
	return deleted, nil
}

// ToggleChecklistItem flips an item the user owns. Missing and foreign
// items are both NotAllowed.
func (s *WorkoutService) ToggleChecklistItem(ctx context.Context, userID, itemID string) (*model.ToggleResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperror.ValidationFailed("id", "checklist item id is required")
	}

	res, err := s.workouts.ToggleChecklistItem(ctx, userID, itemID)
	if err != nil {
		return nil, s.ownershipError(err, "checklist item", userID)
	}

	observability.RecordChecklistToggle()
	return res, nil
}

// ownershipError reports missing and foreign entities identically and logs
// anything else as a storage failure.
func (s *WorkoutService) ownershipError(err error, resource, userID string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotAllowed(resource)
	}
	s.logStorage("failed to access "+resource, userID, err)
	return apperror.Wrap("accessing "+resource, err)
}

func (s *WorkoutService) logStorage(msg, userID string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperror.ErrStorage) {
		return
	}
	s.logger.Error(msg,
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperror.ValidationFailed("name", "workout name is required")
	}
	if utf8.RuneCountInString(name) > MaxWorkoutNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("workout name must be %d characters or less", MaxWorkoutNameLength))
	}
	return name, nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxWorkoutDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxWorkoutDescriptionLength))
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func createdView(w *model.CreatedWorkout, items []model.ChecklistItem) model.Workout {
	return model.Workout{
		ID:          w.ID,
		Source:      model.KindCreated,
		Name:        w.Name,
		Description: w.Description,
		Equipment:   nonNil(w.Equipment),
		ImageURL:    w.ImageURL,
		Muscles:     []string{},
		Checklist:   nonNilItems(items),
	}
}

func savedView(w *model.SavedWorkout, items []model.ChecklistItem) model.Workout {
	return model.Workout{
		ID:          w.ID,
		Source:      model.KindSaved,
		TemplateID:  w.TemplateID,
		Name:        w.Name,
		Description: w.Description,
		Equipment:   nonNil(w.Equipment),
		Type:        w.Type,
		Muscles:     nonNil(w.Muscles),
		Level:       w.Level,
		Checklist:   nonNilItems(items),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilItems(items []model.ChecklistItem) []model.ChecklistItem {
	if items == nil {
		return []model.ChecklistItem{}
	}
	return items
}
