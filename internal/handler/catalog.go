package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/service"
)

// CatalogHandler serves the read-only template catalog and adoption of
// templates into a user's saved workouts.
type CatalogHandler struct {
	catalog  *service.CatalogService
	workouts *service.WorkoutService
	logger   *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, workouts *service.WorkoutService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, workouts: workouts, logger: logger}
}

type catalogListResponse struct {
	Count    int                    `json:"count"`
	Workouts []model.CatalogWorkout `json:"workouts"`
}

// adoptResponse describes one adopted template.
type adoptResponse struct {
	Workout   *model.SavedWorkout   `json:"workout"`
	Checklist []model.ChecklistItem `json:"checklist"`
	Created   bool                  `json:"created"`
}

func toAdoptResponse(res service.AdoptResult) adoptResponse {
	items := res.Checklist
	if items == nil {
		items = []model.ChecklistItem{}
	}
	return adoptResponse{Workout: res.Workout, Checklist: items, Created: res.Created}
}

// bulkAdoptRequest is the body of POST /api/catalog/adopt. Overrides are
// keyed by template id:
//
//	{"template_ids": [1, 3], "overrides": {"3": {"name": "Heavy bench"}}}
type bulkAdoptRequest struct {
	TemplateIDs []int64                          `json:"template_ids"`
	Overrides   map[int64]service.AdoptOverrides `json:"overrides"`
}

type bulkAdoptResponse struct {
	Saved []adoptResponse `json:"saved"`
}

// HandleList returns catalog templates, optionally filtered.
//
// HTTP: GET /api/catalog?type=strength&muscle=chest&level=beginner
// RESPONSE: {"count": 2, "workouts": [...]}
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	templates, err := h.catalog.List(r.Context(), model.CatalogFilter{
		Type:   q.Get("type"),
		Muscle: q.Get("muscle"),
		Level:  q.Get("level"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogListResponse{Count: len(templates), Workouts: templates})
}

// HandleGet returns one template.
//
// HTTP: GET /api/catalog/{id}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := templateIDParam(w, r)
	if !ok {
		return
	}

	tmpl, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// HandleAdopt copies one template into the caller's saved workouts.
//
// HTTP: POST /api/catalog/{id}/adopt
// REQUEST BODY (optional): {"name": "My push-ups", "equipment": ["mat"]}
//
// The first adoption answers 201. Adopting the same template again is not an
// error: the existing copy comes back with 200.
func (h *CatalogHandler) HandleAdopt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := templateIDParam(w, r)
	if !ok {
		return
	}

	var overrides *service.AdoptOverrides
	var body service.AdoptOverrides
	if r.ContentLength != 0 {
		if err := decodeRequest(r, &body); err != nil {
			h.logger.Warn("invalid adopt request", slog.String("error", err.Error()))
			writeBadRequest(w, err.Error())
			return
		}
		overrides = &body
	}

	res, err := h.workouts.Adopt(r.Context(), userID, id, overrides)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toAdoptResponse(*res))
}

// HandleAdoptMany adopts several templates in one transaction.
//
// HTTP: POST /api/catalog/adopt
//
// Missing templates are skipped. The answer is 201 when at least one new
// copy was made, 200 when every template was already adopted, and 409 when
// nothing could be saved at all.
func (h *CatalogHandler) HandleAdoptMany(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req bulkAdoptRequest
	if err := decodeRequest(r, &req); err != nil {
		h.logger.Warn("invalid bulk adopt request", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	results, err := h.workouts.AdoptMany(r.Context(), userID, req.TemplateIDs, req.Overrides)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	resp := bulkAdoptResponse{Saved: make([]adoptResponse, 0, len(results))}
	for _, res := range results {
		if res.Created {
			status = http.StatusCreated
		}
		resp.Saved = append(resp.Saved, toAdoptResponse(res))
	}
	writeJSON(w, status, resp)
}

// templateIDParam parses the {id} URL parameter as a catalog id.
func templateIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "catalog id must be a positive integer")
		return 0, false
	}
	return id, true
}
