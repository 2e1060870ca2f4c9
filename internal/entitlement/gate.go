// Package entitlement decides whether a user may author workouts.
package entitlement

import (
	"context"
	"log/slog"

	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/observability"
)

// PaymentLister is the slice of the payment repository the gate needs.
type PaymentLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}

// Gate grants authoring rights to users holding a successful subscription.
// One-time purchases never qualify.
type Gate struct {
	payments PaymentLister
	logger   *slog.Logger
}

func NewGate(payments PaymentLister, logger *slog.Logger) *Gate {
	return &Gate{payments: payments, logger: logger}
}

// HasCreateEntitlement reports whether userID may create workouts. It fails
// closed: a lookup error denies and is logged.
func (g *Gate) HasCreateEntitlement(ctx context.Context, userID string) bool {
	payments, err := g.payments.ListByUser(ctx, userID)
	if err != nil {
		g.logger.Error("entitlement lookup failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		observability.RecordEntitlement(observability.DecisionError)
		return false
	}

	for _, p := range payments {
		if p.Status == model.PaymentSuccess && p.Kind == model.PaymentSubscription {
			observability.RecordEntitlement(observability.DecisionGranted)
			return true
		}
	}

	observability.RecordEntitlement(observability.DecisionDenied)
	return false
}
