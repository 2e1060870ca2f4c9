package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitplan/internal/service"
)

// AccountHandler serves per-user settings that sit beside the workouts:
// reminders and gesture mappings.
type AccountHandler struct {
	reminders *service.ReminderService
	gestures  *service.GestureService
	logger    *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(reminders *service.ReminderService, gestures *service.GestureService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{reminders: reminders, gestures: gestures, logger: logger}
}

// reminderRequest accepts JSON or a form with the same field names.
type reminderRequest struct {
	service.ReminderInput
}

func (req *reminderRequest) fromForm(form url.Values) {
	req.Time = form.Get("time")
	req.Description = form.Get("description")
}

type gesturesRequest struct {
	Mappings []service.GestureMapping `json:"mappings"`
}

// HandleListReminders returns the caller's reminders ordered by time.
//
// HTTP: GET /api/reminders
func (h *AccountHandler) HandleListReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reminders, err := h.reminders.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

// HandleCreateReminder stores a reminder.
//
// HTTP: POST /api/reminders
// REQUEST BODY: {"time": "07:30", "description": "Morning run"}
func (h *AccountHandler) HandleCreateReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reminder, err := h.reminders.Create(r.Context(), userID, req.ReminderInput)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

// HandleUpdateReminder replaces a reminder's time and description.
//
// HTTP: PUT /api/reminders/{id}
func (h *AccountHandler) HandleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reminder, err := h.reminders.Update(r.Context(), userID, chi.URLParam(r, "id"), req.ReminderInput)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// HandleDeleteReminder removes a reminder the caller owns.
//
// HTTP: DELETE /api/reminders/{id}
func (h *AccountHandler) HandleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.reminders.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reminder deleted"})
}

// HandleListGestures returns the caller's gesture mappings.
//
// HTTP: GET /api/gestures
func (h *AccountHandler) HandleListGestures(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	gestures, err := h.gestures.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gestures)
}

// HandleReplaceGestures swaps all of the caller's mappings.
//
// HTTP: PUT /api/gestures
// REQUEST BODY: {"mappings": [{"name": "shake", "action": "reset"}]}
func (h *AccountHandler) HandleReplaceGestures(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req gesturesRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	gestures, err := h.gestures.Replace(r.Context(), userID, req.Mappings)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("gestures replaced", slog.String("user_id", userID), slog.Int("count", len(gestures)))
	writeJSON(w, http.StatusOK, gestures)
}
