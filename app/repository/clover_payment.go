package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
)

var ErrPaymentAlreadyRecorded = errors.New("clover payment already recorded")

type CloverPaymentRepository struct {
	db DBTX
}

func NewCloverPaymentRepository(db DBTX) *CloverPaymentRepository {
	return &CloverPaymentRepository{db: db}
}

func (r *CloverPaymentRepository) Create(ctx context.Context, payment *entity.CloverPayment) error {
	query := `
		INSERT INTO clover_pos_payments (
			pos_payment_id, pos_order_id, payment_method_id,
			clover_payment_id, order_id, external_payment_id, refund_id, employee_id,
			result, amount_cents, auth_code, card_type, card_last_four, reference,
			created_time, type, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.PosPaymentID,
		nullableUint64Value(payment.PosOrderID),
		payment.PaymentMethodID,
		nullableStringValue(payment.CloverPaymentID),
		nullableStringValue(payment.OrderID),
		nullableStringValue(payment.ExternalPaymentID),
		nullableStringValue(payment.RefundID),
		nullableStringValue(payment.EmployeeID),
		nullableStringValue(payment.Result),
		nullableInt64Value(payment.AmountCents),
		nullableStringValue(payment.AuthCode),
		nullableStringValue(payment.CardType),
		nullableStringValue(payment.CardLastFour),
		nullableStringValue(payment.Reference),
		nullableTimeValue(payment.CreatedTime),
		nullableStringValue(payment.Type),
		payment.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyRecorded
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *CloverPaymentRepository) FindByPosPaymentID(ctx context.Context, posPaymentID uint64) (*entity.CloverPayment, error) {
	query := `
		SELECT id, pos_payment_id, pos_order_id, payment_method_id,
			clover_payment_id, order_id, external_payment_id, refund_id, employee_id,
			result, amount_cents, auth_code, card_type, card_last_four, reference,
			created_time, type, created_at
		FROM clover_pos_payments
		WHERE pos_payment_id = ?
	`

	var posOrderID sql.NullInt64
	var cloverPaymentID, orderID, externalPaymentID, refundID, employeeID sql.NullString
	var resultValue, authCode, cardType, cardLastFour, reference, kind sql.NullString
	var amount sql.NullInt64
	var createdTime sql.NullTime

	payment := &entity.CloverPayment{}
	err := r.db.QueryRowContext(ctx, query, posPaymentID).Scan(
		&payment.ID,
		&payment.PosPaymentID,
		&posOrderID,
		&payment.PaymentMethodID,
		&cloverPaymentID,
		&orderID,
		&externalPaymentID,
		&refundID,
		&employeeID,
		&resultValue,
		&amount,
		&authCode,
		&cardType,
		&cardLastFour,
		&reference,
		&createdTime,
		&kind,
		&payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payment.PosOrderID = uint64PtrFromNull(posOrderID)
	payment.CloverPaymentID = stringPtrFromNull(cloverPaymentID)
	payment.OrderID = stringPtrFromNull(orderID)
	payment.ExternalPaymentID = stringPtrFromNull(externalPaymentID)
	payment.RefundID = stringPtrFromNull(refundID)
	payment.EmployeeID = stringPtrFromNull(employeeID)
	payment.Result = stringPtrFromNull(resultValue)
	payment.AmountCents = int64PtrFromNull(amount)
	payment.AuthCode = stringPtrFromNull(authCode)
	payment.CardType = stringPtrFromNull(cardType)
	payment.CardLastFour = stringPtrFromNull(cardLastFour)
	payment.Reference = stringPtrFromNull(reference)
	payment.CreatedTime = timePtrFromNull(createdTime)
	payment.Type = stringPtrFromNull(kind)

	return payment, nil
}
