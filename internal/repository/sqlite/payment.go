package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

var _ repository.PaymentRepository = (*PaymentDB)(nil)

// PaymentDB stores payment records. A successful subscription row is what
// the entitlement gate looks for.
type PaymentDB struct {
	db *DB
}

const paymentColumns = `id, user_id, reference, amount, currency, status, kind, created_at, paid_at`

// Create inserts a pending payment. A reused reference is a conflict.
func (p *PaymentDB) Create(ctx context.Context, pay *model.Payment) error {
	pay.ID = xid.New().String()
	pay.CreatedAt = time.Now().UTC()
	if pay.Status == "" {
		pay.Status = model.PaymentPending
	}

	_, err := p.db.x.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pay.ID, pay.UserID, pay.Reference, pay.Amount, pay.Currency,
		pay.Status, pay.Kind, pay.CreatedAt, pay.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("payment", pay.Reference)
		}
		return fmt.Errorf("sqlite: creating payment %s: %w", pay.Reference, err)
	}
	return nil
}

// GetByReference returns the payment with the given gateway reference.
func (p *PaymentDB) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var pay model.Payment
	err := p.db.x.GetContext(ctx, &pay,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = ?`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("payment", reference)
		}
		return nil, fmt.Errorf("sqlite: getting payment %s: %w", reference, err)
	}
	return &pay, nil
}

// UpdateStatus records the verification outcome of a payment.
func (p *PaymentDB) UpdateStatus(ctx context.Context, reference string, status model.PaymentStatus, paidAt *time.Time) error {
	res, err := p.db.x.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = ? WHERE reference = ?`,
		status, paidAt, reference,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating payment %s: %w", reference, err)
	}
	return expectOneRow(res, "payment", reference)
}

// ListByUser returns the user's payments, newest first.
func (p *PaymentDB) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	payments := []model.Payment{}
	err := p.db.x.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing payments for %s: %w", userID, err)
	}
	return payments, nil
}
