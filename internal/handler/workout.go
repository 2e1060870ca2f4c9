package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/service"
)

// WorkoutHandler serves the per-user workout endpoints: the unified listing,
// authoring, updates, deletes and checklist toggles.
//
// The handler only parses and validates request shape; ownership, the
// entitlement check and checklist regeneration all live in
// service.WorkoutService.
type WorkoutHandler struct {
	workouts *service.WorkoutService
	logger   *slog.Logger
}

// NewWorkoutHandler creates a WorkoutHandler.
func NewWorkoutHandler(workouts *service.WorkoutService, logger *slog.Logger) *WorkoutHandler {
	return &WorkoutHandler{workouts: workouts, logger: logger}
}

// createWorkoutRequest is the body of POST /api/workouts. Forms send
// equipment as one comma-separated field.
type createWorkoutRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Equipment   []string `json:"equipment"`
	ImageURL    string   `json:"imageUrl"`
	AssetID     string   `json:"assetId"`
}

func (req *createWorkoutRequest) fromForm(form url.Values) {
	req.Name = form.Get("name")
	req.Description = form.Get("description")
	if eq := formList(form, "equipment"); eq != nil {
		req.Equipment = *eq
	}
	req.ImageURL = form.Get("imageUrl")
	req.AssetID = form.Get("assetId")
}

// updateWorkoutRequest is the body of PUT /api/workouts/{id}. Absent fields
// are left unchanged.
type updateWorkoutRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Equipment   *[]string `json:"equipment"`
	ImageURL    *string   `json:"imageUrl"`
	Type        *string   `json:"type"`
	Muscles     *[]string `json:"muscles"`
	Level       *string   `json:"level"`
}

func (req *updateWorkoutRequest) fromForm(form url.Values) {
	req.Name = formString(form, "name")
	req.Description = formString(form, "description")
	req.Equipment = formList(form, "equipment")
	req.ImageURL = formString(form, "imageUrl")
	req.Type = formString(form, "type")
	req.Muscles = formList(form, "muscles")
	req.Level = formString(form, "level")
}

func (req *updateWorkoutRequest) patch() service.WorkoutPatch {
	return service.WorkoutPatch{
		Name:        req.Name,
		Description: req.Description,
		Equipment:   req.Equipment,
		ImageURL:    req.ImageURL,
		Type:        req.Type,
		Muscles:     req.Muscles,
		Level:       req.Level,
	}
}

// HandleList returns every workout the caller owns, saved ones first.
//
// HTTP: GET /api/workouts
func (h *WorkoutHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	workouts, err := h.workouts.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

// HandleCreate authors a new workout. Without an active subscription the
// request is refused with 403 and nothing is stored.
//
// HTTP: POST /api/workouts
// REQUEST BODY: {"name": "Leg day", "equipment": ["barbell", "bench"]}
// or a form with equipment=barbell,bench
func (h *WorkoutHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createWorkoutRequest
	if err := decodeRequest(r, &req); err != nil {
		h.logger.Warn("invalid workout request", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	workout, err := h.workouts.CreateAuthored(r.Context(), userID, service.CreateWorkoutInput{
		Name:        req.Name,
		Description: req.Description,
		Equipment:   req.Equipment,
		ImageURL:    req.ImageURL,
		AssetID:     req.AssetID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

// HandleUpdate applies a partial update to one workout.
//
// HTTP: PUT /api/workouts/{id}?kind=created|saved
//
// kind defaults to created. An equipment change regenerates the checklist.
func (h *WorkoutHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	kind, err := model.ParseWorkoutKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req updateWorkoutRequest
	if err := decodeRequest(r, &req); err != nil {
		h.logger.Warn("invalid workout update", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	workout, err := h.workouts.UpdateWorkout(r.Context(), userID, kind, chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// HandleDelete removes workouts of one kind.
//
// HTTP: DELETE /api/workouts/{ids}?kind=created|saved
//
// {ids} is a comma-separated list or the literal "all". Ids the caller does
// not own are skipped, so the response lists exactly what was removed:
//
//	{"deleted": ["cq2...", "cq3..."]}
func (h *WorkoutHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	kind, err := model.ParseWorkoutKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	raw := chi.URLParam(r, "ids")
	all := strings.EqualFold(strings.TrimSpace(raw), "all")
	var ids []string
	if !all {
		ids = splitIDs(raw)
	}

	deleted, err := h.workouts.DeleteWorkouts(r.Context(), userID, kind, ids, all)
	if err != nil {
		writeError(w, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"deleted": deleted})
}

// HandleToggleChecklistItem flips one checklist item's done flag.
//
// HTTP: PATCH /api/checklist/items/{id}
// RESPONSE: {"id": "...", "done": true}
func (h *WorkoutHandler) HandleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.workouts.ToggleChecklistItem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
