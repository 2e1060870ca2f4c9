package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/fitplan/internal/model"
)

type fakePayments struct {
	payments []model.Payment
	err      error
}

func (f *fakePayments) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestGate(repo *fakePayments) *Gate {
	return NewGate(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHasCreateEntitlement(t *testing.T) {
	tests := []struct {
		name     string
		payments []model.Payment
		want     bool
	}{
		{"no payments", nil, false},
		{"successful subscription", []model.Payment{
			{UserID: "u1", Status: model.PaymentSuccess, Kind: model.PaymentSubscription},
		}, true},
		{"pending subscription", []model.Payment{
			{UserID: "u1", Status: model.PaymentPending, Kind: model.PaymentSubscription},
		}, false},
		{"failed subscription", []model.Payment{
			{UserID: "u1", Status: model.PaymentFailed, Kind: model.PaymentSubscription},
		}, false},
		{"one-time purchase only", []model.Payment{
			{UserID: "u1", Status: model.PaymentSuccess, Kind: model.PaymentOneTime},
		}, false},
		{"someone else's subscription", []model.Payment{
			{UserID: "u2", Status: model.PaymentSuccess, Kind: model.PaymentSubscription},
		}, false},
		{"mixed history", []model.Payment{
			{UserID: "u1", Status: model.PaymentFailed, Kind: model.PaymentSubscription},
			{UserID: "u1", Status: model.PaymentSuccess, Kind: model.PaymentSubscription},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newTestGate(&fakePayments{payments: tt.payments})
			assert.Equal(t, tt.want, gate.HasCreateEntitlement(context.Background(), "u1"))
		})
	}
}

func TestHasCreateEntitlement_FailsClosed(t *testing.T) {
	gate := newTestGate(&fakePayments{err: errors.New("database is locked")})
	assert.False(t, gate.HasCreateEntitlement(context.Background(), "u1"))
}
