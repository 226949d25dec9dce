package entity

import "time"

const (
	TransactionTypeSale     = "sale"
	TransactionTypeAuth     = "auth"
	TransactionTypeCapture  = "capture"
	TransactionTypeRefund   = "refund"
	TransactionTypeVoid     = "void"
	TransactionTypeCancel   = "cancel"
	TransactionTypeStatus   = "status"
	TransactionTypeWelcome  = "welcome"
	TransactionTypeThankYou = "thank_you"
)

const (
	TransactionStatusPending    = "pending"
	TransactionStatusProcessing = "processing"
	TransactionStatusSuccess    = "success"
	TransactionStatusFailed     = "failed"
	TransactionStatusCancelled  = "cancelled"
	TransactionStatusTimeout    = "timeout"
)

// InFlightTransactionStatuses are the statuses of a call a terminal webhook may still belong to.
var InFlightTransactionStatuses = []string{
	TransactionStatusPending,
	TransactionStatusProcessing,
	TransactionStatusSuccess,
}

func IsInFlightTransactionStatus(v string) bool {
	for _, status := range InFlightTransactionStatuses {
		if v == status {
			return true
		}
	}
	return false
}

func ValidTransactionType(v string) bool {
	switch v {
	case TransactionTypeSale, TransactionTypeAuth, TransactionTypeCapture, TransactionTypeRefund,
		TransactionTypeVoid, TransactionTypeCancel, TransactionTypeStatus, TransactionTypeWelcome,
		TransactionTypeThankYou:
		return true
	default:
		return false
	}
}

func ValidTransactionStatus(v string) bool {
	switch v {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusSuccess,
		TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusTimeout:
		return true
	default:
		return false
	}
}

type TransactionLog struct {
	ID uint64

	Reference       string
	PaymentMethodID uint64
	PosOrderID      *uint64
	PosPaymentID    *uint64

	ExternalPaymentID *string

	Type   string
	Status string

	AmountCents int64
	Currency    string

	ErrorMessage *string
	RequestData  *string
	ResponseData *string

	RequestTimestamp  time.Time
	ResponseTimestamp *time.Time
	DurationSeconds   *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
