package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/payment"
	"github.com/sakif/fitplan/internal/repository"
)

// DefaultCurrency is what payments are billed in.
const DefaultCurrency = "NGN"

// maxPaymentAmount caps a single payment in major units.
const maxPaymentAmount = 10_000_000

// PaymentGateway is the slice of the gateway client the service needs.
type PaymentGateway interface {
	Configured() bool
	Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.Authorization, error)
	Verify(ctx context.Context, reference string) (*payment.Verification, error)
}

// PaymentService starts and verifies gateway transactions and keeps the
// payment records the entitlement gate reads.
type PaymentService struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	gateway  PaymentGateway
	logger   *slog.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway PaymentGateway,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		users:    users,
		gateway:  gateway,
		logger:   logger,
	}
}

// InitiateInput starts a payment. Amount is in major units (naira); Kind
// defaults to one-time.
type InitiateInput struct {
	Amount float64 `json:"amount"`
	Kind   string  `json:"type"`
}

// InitiateResult tells the client where to complete payment.
type InitiateResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// VerifyResult is the outcome of a verification. Data is the gateway's raw
// transaction object, present when the gateway answered.
type VerifyResult struct {
	Payment *model.Payment  `json:"payment"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Succeeded reports whether the payment is now recorded as successful.
func (r *VerifyResult) Succeeded() bool {
	return r.Payment != nil && r.Payment.Status == model.PaymentSuccess
}

// Initiate opens a gateway transaction for the user and records it as
// pending under a fresh uuid reference.
func (s *PaymentService) Initiate(ctx context.Context, userID string, in InitiateInput) (*InitiateResult, error) {
	kind := model.PaymentKind(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = model.PaymentOneTime
	}
	if !kind.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown payment type %q", in.Kind))
	}
	minor, err := toMinorUnits(in.Amount)
	if err != nil {
		return nil, err
	}
	if !s.gateway.Configured() {
		return nil, apperror.Unavailable("payments are not configured")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Wrap("loading user", err)
	}
	if user.Email == "" {
		return nil, apperror.ValidationFailed("email", "an email address is required to pay")
	}

	reference := uuid.NewString()
	auth, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:     user.Email,
		Amount:    minor,
		Reference: reference,
		Currency:  DefaultCurrency,
	})
	if err != nil {
		return nil, s.gatewayError("payment initialization failed", userID, err)
	}

	record := &model.Payment{
		UserID:    userID,
		Reference: reference,
		Amount:    minor,
		Currency:  DefaultCurrency,
		Status:    model.PaymentPending,
		Kind:      kind,
	}
	if err := s.payments.Create(ctx, record); err != nil {
		s.logger.Error("failed to record payment",
			slog.String("user_id", userID),
			slog.String("reference", reference),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Wrap("recording payment", err)
	}

	s.logger.Info("payment initiated",
		slog.String("user_id", userID),
		slog.String("reference", reference),
		slog.String("kind", string(kind)),
	)
	return &InitiateResult{
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
	}, nil
}

// Verify asks the gateway about the user's payment and records the outcome:
// success when the gateway confirms it, failed otherwise. A payment already
// recorded as successful is returned without another gateway call.
func (s *PaymentService) Verify(ctx context.Context, userID, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.ValidationFailed("reference", "payment reference is required")
	}

	record, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotAllowed("payment")
		}
		return nil, apperror.Wrap("loading payment", err)
	}
	if record.UserID != userID {
		return nil, apperror.NotAllowed("payment")
	}
	if record.Status == model.PaymentSuccess {
		return &VerifyResult{Payment: record}, nil
	}
	if !s.gateway.Configured() {
		return nil, apperror.Unavailable("payments are not configured")
	}

	v, err := s.gateway.Verify(ctx, reference)
	var rejected *payment.RejectedError
	switch {
	case errors.As(err, &rejected):
		v = nil
	case err != nil:
		return nil, s.gatewayError("payment verification failed", userID, err)
	}

	status, paidAt := model.PaymentFailed, (*time.Time)(nil)
	if v.Succeeded() {
		status = model.PaymentSuccess
		now := time.Now().UTC()
		paidAt = &now
		if v.PaidAt != nil {
			paidAt = v.PaidAt
		}
	}

	if err := s.payments.UpdateStatus(ctx, reference, status, paidAt); err != nil {
		s.logger.Error("failed to update payment",
			slog.String("reference", reference),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Wrap("updating payment", err)
	}
	record.Status = status
	record.PaidAt = paidAt

	s.logger.Info("payment verified",
		slog.String("user_id", userID),
		slog.String("reference", reference),
		slog.String("status", string(status)),
	)

	result := &VerifyResult{Payment: record}
	if v != nil {
		result.Data = v.Raw
	}
	return result, nil
}

// List returns the user's payment records, newest first.
func (s *PaymentService) List(ctx context.Context, userID string) ([]model.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap("listing payments", err)
	}
	return payments, nil
}

// gatewayError logs a gateway failure and maps it for the client. Rejections
// carry the gateway's message; transport failures are Unavailable.
func (s *PaymentService) gatewayError(msg, userID string, err error) error {
	s.logger.Error(msg,
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)

	var rejected *payment.RejectedError
	if errors.As(err, &rejected) {
		return apperror.ValidationFailed("", msg+": "+rejected.Message)
	}
	return apperror.Unavailable("payment gateway unavailable")
}

// toMinorUnits converts a major-unit amount to the gateway's minor units.
func toMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, apperror.ValidationFailed("amount", "amount must be a positive number")
	}
	if amount > maxPaymentAmount {
		return 0, apperror.ValidationFailed("amount", "amount is too large")
	}
	minor := int64(math.Round(amount * 100))
	if minor <= 0 {
		return 0, apperror.ValidationFailed("amount", "amount must be at least 0.01")
	}
	return minor, nil
}
