package clover

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrNoPaymentDetails = errors.New("response carries no clover payment")

// PaymentDetails are the identifiers Clover reports for a completed sale or refund.
type PaymentDetails struct {
	PaymentID         string
	OrderID           string
	ExternalPaymentID string
	RefundID          string
	EmployeeID        string
	Result            string
	AmountCents       *int64
	AuthCode          string
	CardType          string
	CardLastFour      string
	Reference         string
	CreatedTime       *time.Time
	Type              string
}

type idRef struct {
	ID string `json:"id"`
}

type cardTransaction struct {
	AuthCode    string `json:"authCode"`
	CardType    string `json:"cardType"`
	Last4       string `json:"last4"`
	ReferenceID string `json:"referenceId"`
	Type        string `json:"type"`
}

type paymentObject struct {
	ID                string           `json:"id"`
	Order             *idRef           `json:"order"`
	Amount            *int64           `json:"amount"`
	ExternalPaymentID string           `json:"externalPaymentId"`
	Employee          *idRef           `json:"employee"`
	Result            string           `json:"result"`
	CreatedTime       *int64           `json:"createdTime"`
	CardTransaction   *cardTransaction `json:"cardTransaction"`
}

type refundObject struct {
	ID          string         `json:"id"`
	Amount      *int64         `json:"amount"`
	Payment     *paymentObject `json:"payment"`
	Employee    *idRef         `json:"employee"`
	CreatedTime *int64         `json:"createdTime"`
}

type envelope struct {
	Payment *paymentObject `json:"payment"`
	Refund  *refundObject  `json:"refund"`
}

// ParsePaymentDetails reads a sale or refund response, or a bare payment object.
func ParsePaymentDetails(body []byte) (*PaymentDetails, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	if env.Refund != nil && env.Refund.ID != "" {
		details := &PaymentDetails{}
		if env.Refund.Payment != nil {
			fillFromPayment(details, env.Refund.Payment)
		}
		details.RefundID = env.Refund.ID
		if env.Refund.Amount != nil {
			details.AmountCents = env.Refund.Amount
		}
		if env.Refund.Employee != nil && env.Refund.Employee.ID != "" {
			details.EmployeeID = env.Refund.Employee.ID
		}
		if env.Refund.CreatedTime != nil {
			details.CreatedTime = millisToTime(*env.Refund.CreatedTime)
		}
		details.Type = "REFUND"
		return details, nil
	}

	if env.Payment != nil && env.Payment.ID != "" {
		details := &PaymentDetails{}
		fillFromPayment(details, env.Payment)
		return details, nil
	}

	var bare paymentObject
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	if bare.ID == "" {
		return nil, ErrNoPaymentDetails
	}
	details := &PaymentDetails{}
	fillFromPayment(details, &bare)
	return details, nil
}

// ExternalPaymentID extracts the correlation id from a terminal payload, if any.
func ExternalPaymentID(payload map[string]any) string {
	if v, ok := payload["externalPaymentId"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if payment, ok := payload["payment"].(map[string]any); ok {
		if v, ok := payment["externalPaymentId"].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	if refund, ok := payload["refund"].(map[string]any); ok {
		if payment, ok := refund["payment"].(map[string]any); ok {
			if v, ok := payment["externalPaymentId"].(string); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func fillFromPayment(details *PaymentDetails, p *paymentObject) {
	details.PaymentID = p.ID
	details.ExternalPaymentID = p.ExternalPaymentID
	details.Result = p.Result
	details.AmountCents = p.Amount
	if p.Order != nil {
		details.OrderID = p.Order.ID
	}
	if p.Employee != nil {
		details.EmployeeID = p.Employee.ID
	}
	if p.CreatedTime != nil {
		details.CreatedTime = millisToTime(*p.CreatedTime)
	}
	if p.CardTransaction != nil {
		details.AuthCode = p.CardTransaction.AuthCode
		details.CardType = p.CardTransaction.CardType
		details.CardLastFour = lastFour(p.CardTransaction.Last4)
		details.Reference = p.CardTransaction.ReferenceID
		details.Type = p.CardTransaction.Type
	}
}

// lastFour keeps the trailing four characters, so a masked card number still yields its last digits.
func lastFour(v string) string {
	runes := []rune(strings.TrimSpace(v))
	if len(runes) <= 4 {
		return string(runes)
	}
	return string(runes[len(runes)-4:])
}

func millisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
