package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
)

type recordPaymentRequest interface {
	GetPaymentMethodId() uint64
	GetPosPaymentId() uint64
	GetPosOrderId() uint64
	GetResponse() json.RawMessage
}

// RecordPayment stores the Clover identifiers of a completed sale or refund on a POS payment.
// A POS payment can be recorded only once.
func (s *TerminalService) RecordPayment(ctx context.Context, req recordPaymentRequest) (*entity.CloverPayment, error) {
	if req.GetPosPaymentId() == 0 {
		return nil, fmt.Errorf("%w: pos_payment_id is required", ErrInvalidRequest)
	}

	method, err := s.methodRepo.FindByID(ctx, req.GetPaymentMethodId())
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}

	details, err := clover.ParsePaymentDetails(req.GetResponse())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	payment := &entity.CloverPayment{
		PosPaymentID:      req.GetPosPaymentId(),
		PosOrderID:        optionalUint64(req.GetPosOrderId()),
		PaymentMethodID:   method.ID,
		CloverPaymentID:   normalizeOptionalString(details.PaymentID),
		OrderID:           normalizeOptionalString(details.OrderID),
		ExternalPaymentID: normalizeOptionalString(details.ExternalPaymentID),
		RefundID:          normalizeOptionalString(details.RefundID),
		EmployeeID:        normalizeOptionalString(details.EmployeeID),
		Result:            normalizeOptionalString(details.Result),
		AmountCents:       details.AmountCents,
		AuthCode:          normalizeOptionalString(details.AuthCode),
		CardType:          normalizeOptionalString(details.CardType),
		CardLastFour:      normalizeOptionalString(details.CardLastFour),
		Reference:         normalizeOptionalString(details.Reference),
		CreatedTime:       details.CreatedTime,
		Type:              normalizeOptionalString(details.Type),
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyRecorded) {
			return nil, ErrPaymentAlreadyRecorded
		}
		return nil, err
	}
	return payment, nil
}

func (s *TerminalService) GetCloverPayment(ctx context.Context, posPaymentID uint64) (*entity.CloverPayment, error) {
	payment, err := s.paymentRepo.FindByPosPaymentID(ctx, posPaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrCloverPaymentNotFound
	}
	return payment, nil
}
