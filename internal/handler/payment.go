package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/service"
)

// PaymentHandler exposes the payment flow: start a gateway transaction,
// verify it once the user has paid, and list the caller's records.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type initiateResponse struct {
	Status string                  `json:"status"`
	Data   *service.InitiateResult `json:"data"`
}

type verifyResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Payment *model.Payment  `json:"payment"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HandleList returns the caller's payment records, newest first.
//
// HTTP: GET /api/payments
func (h *PaymentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// HandleInitiate starts a gateway transaction.
//
// HTTP: POST /api/payments/initiate
// REQUEST BODY: {"amount": 5000, "type": "subscription"}
// RESPONSE: {"status": "success", "data": {"reference": "...", "authorization_url": "...", "access_code": "..."}}
//
// amount is in major currency units. type defaults to one-time.
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in service.InitiateInput
	if err := decodeRequest(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.payments.Initiate(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiateResponse{Status: "success", Data: res})
}

// HandleVerify asks the gateway whether a payment went through and records
// the outcome.
//
// HTTP: GET /api/payments/verify/{reference}
//
// A confirmed payment answers 200 with the gateway's transaction data. Any
// other gateway answer marks the payment failed and answers 400.
func (h *PaymentHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.payments.Verify(r.Context(), userID, chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !res.Succeeded() {
		writeJSON(w, http.StatusBadRequest, verifyResponse{
			Status:  "failed",
			Message: "Payment verification failed",
			Payment: res.Payment,
		})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Status:  "success",
		Message: "Payment verified",
		Payment: res.Payment,
		Data:    res.Data,
	})
}
