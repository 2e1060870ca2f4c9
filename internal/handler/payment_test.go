package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitplan/internal/model"
)

type initiateBody struct {
	Status string `json:"status"`
	Data   struct {
		Reference        string `json:"reference"`
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
	} `json:"data"`
}

type verifyBody struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Payment *model.Payment `json:"payment"`
	Data    map[string]any `json:"data"`
}

func TestPaymentHandler_SubscriptionUnlocksAuthoring(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")

	rr := api.do(http.MethodPost, "/api/payments/initiate", token, `{"amount":5000,"type":"subscription"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	started := decodeBody[initiateBody](t, rr)
	assert.Equal(t, "success", started.Status)
	assert.Equal(t, "https://checkout.example/pay", started.Data.AuthorizationURL)
	require.NotEmpty(t, started.Data.Reference)

	payments := decodeBody[[]model.Payment](t, api.do(http.MethodGet, "/api/payments", token, ""))
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentPending, payments[0].Status)
	assert.Equal(t, int64(500000), payments[0].Amount, "stored in minor units")

	// still pending, so no entitlement yet
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/workouts", token, `{"name":"Leg day"}`).Code)

	rr = api.do(http.MethodGet, "/api/payments/verify/"+started.Data.Reference, token, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := decodeBody[verifyBody](t, rr)
	assert.Equal(t, "success", v.Status)
	assert.Equal(t, model.PaymentSuccess, v.Payment.Status)
	assert.NotNil(t, v.Payment.PaidAt)
	assert.Equal(t, "success", v.Data["status"])

	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/workouts", token, `{"name":"Leg day"}`).Code)
}

func TestPaymentHandler_VerifyFailed(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")
	api.gatewayStatus = "abandoned"

	rr := api.do(http.MethodPost, "/api/payments/initiate", token, `{"amount":10}`)
	require.Equal(t, http.StatusOK, rr.Code)
	ref := decodeBody[initiateBody](t, rr).Data.Reference

	rr = api.do(http.MethodGet, "/api/payments/verify/"+ref, token, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	v := decodeBody[verifyBody](t, rr)
	assert.Equal(t, "failed", v.Status)
	assert.Equal(t, model.PaymentFailed, v.Payment.Status)
	assert.Equal(t, model.PaymentOneTime, v.Payment.Kind)
}

func TestPaymentHandler_OneTimeDoesNotUnlockAuthoring(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")

	rr := api.do(http.MethodPost, "/api/payments/initiate", token, `{"amount":99.99,"type":"one-time"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	ref := decodeBody[initiateBody](t, rr).Data.Reference
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/payments/verify/"+ref, token, "").Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/workouts", token, `{"name":"Leg day"}`).Code)
}

func TestPaymentHandler_Errors(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.createUser("ada")
	_, otherToken := api.createUser("other")

	rr := api.do(http.MethodPost, "/api/payments/initiate", token, `{"amount":50}`)
	require.Equal(t, http.StatusOK, rr.Code)
	ref := decodeBody[initiateBody](t, rr).Data.Reference

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"zero amount", http.MethodPost, "/api/payments/initiate", token, `{"amount":0}`, http.StatusBadRequest},
		{"unknown type", http.MethodPost, "/api/payments/initiate", token, `{"amount":10,"type":"lifetime"}`, http.StatusBadRequest},
		{"foreign reference", http.MethodGet, "/api/payments/verify/" + ref, otherToken, "", http.StatusNotFound},
		{"unknown reference", http.MethodGet, "/api/payments/verify/nope", token, "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	others := decodeBody[[]model.Payment](t, api.do(http.MethodGet, "/api/payments", otherToken, ""))
	assert.Empty(t, others)
}
