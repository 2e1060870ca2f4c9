package handler_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitplan/internal/model"
)

func TestAccountHandler_ReminderCRUD(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")
	_, otherToken := api.createUser("other")

	rr := api.do(http.MethodPost, "/api/reminders", token, `{"time":"18:00","description":"Evening stretch"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	evening := decodeBody[model.Reminder](t, rr)

	rr = api.doForm(http.MethodPost, "/api/reminders", token, url.Values{"time": {"07:30"}, "description": {"Morning run"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	list := decodeBody[[]model.Reminder](t, api.do(http.MethodGet, "/api/reminders", token, ""))
	require.Len(t, list, 2)
	assert.Equal(t, "07:30", list[0].Time, "reminders are ordered by time")

	rr = api.do(http.MethodPut, "/api/reminders/"+evening.ID, token, `{"time":"19:00","description":"Later stretch"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "19:00", decodeBody[model.Reminder](t, rr).Time)

	// other users can neither see, edit nor delete it
	assert.Empty(t, decodeBody[[]model.Reminder](t, api.do(http.MethodGet, "/api/reminders", otherToken, "")))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, "/api/reminders/"+evening.ID, otherToken, `{"time":"01:00"}`).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/reminders/"+evening.ID, otherToken, "").Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/reminders/"+evening.ID, token, "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/reminders/"+evening.ID, token, "").Code)
	assert.Len(t, decodeBody[[]model.Reminder](t, api.do(http.MethodGet, "/api/reminders", token, "")), 1)
}

func TestAccountHandler_ReminderValidation(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")

	rr := api.do(http.MethodPost, "/api/reminders", token, `{"time":"  ","description":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(http.MethodPost, "/api/reminders", token, `{"time":7}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_Gestures(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")

	rr := api.do(http.MethodGet, "/api/gestures", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.Gesture](t, rr), len(model.DefaultGestures()), "new accounts get the default gestures")

	rr = api.do(http.MethodPut, "/api/gestures", token, `{"mappings":[{"name":"double_tap","action":"start timer"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	gestures := decodeBody[[]model.Gesture](t, api.do(http.MethodGet, "/api/gestures", token, ""))
	require.Len(t, gestures, 1)
	assert.Equal(t, "double_tap", gestures[0].Name)
	assert.Equal(t, "start timer", gestures[0].Action)

	rr = api.do(http.MethodPut, "/api/gestures", token, `{"mappings":[{"name":"shake","action":"a"},{"name":"Shake","action":"b"}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
