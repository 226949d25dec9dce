package entity

import "time"

// CloverPayment holds the Clover identifiers of one POS payment line. Rows are never updated.
type CloverPayment struct {
	ID uint64

	PosPaymentID    uint64
	PosOrderID      *uint64
	PaymentMethodID uint64

	CloverPaymentID   *string
	OrderID           *string
	ExternalPaymentID *string
	RefundID          *string
	EmployeeID        *string
	Result            *string
	AmountCents       *int64
	AuthCode          *string
	CardType          *string
	CardLastFour      *string
	Reference         *string
	CreatedTime       *time.Time
	Type              *string

	CreatedAt time.Time
}
