package entity

import "time"

type TerminalEvent struct {
	ID uint64

	PaymentMethodID  uint64
	TransactionLogID *uint64
	Reference        *string

	PayloadJSON string

	CreatedAt time.Time
}
