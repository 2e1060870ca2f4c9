package model

import "time"

// PaymentStatus is the lifecycle state of a gateway transaction.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentKind distinguishes one-off purchases from subscriptions. Only a
// successful subscription grants the right to author workouts.
type PaymentKind string

const (
	PaymentOneTime      PaymentKind = "one-time"
	PaymentSubscription PaymentKind = "subscription"
)

// Valid reports whether k is a known payment kind.
func (k PaymentKind) Valid() bool {
	return k == PaymentOneTime || k == PaymentSubscription
}

// Payment is an entitlement record written by the payment flow.
// Amount is in minor currency units (kobo for NGN), as the gateway bills.
type Payment struct {
	ID        string        `json:"id"               db:"id"`
	UserID    string        `json:"userId"           db:"user_id"`
	Reference string        `json:"reference"        db:"reference"`
	Amount    int64         `json:"amount"           db:"amount"`
	Currency  string        `json:"currency"         db:"currency"`
	Status    PaymentStatus `json:"status"           db:"status"`
	Kind      PaymentKind   `json:"kind"             db:"kind"`
	CreatedAt time.Time     `json:"createdAt"        db:"created_at"`
	PaidAt    *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
}
