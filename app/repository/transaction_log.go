package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
)

var (
	ErrTransactionLogNotFound      = errors.New("transaction log not found")
	ErrTransactionLogAlreadyExists = errors.New("transaction log already exists")
)

const transactionLogColumns = `
	id, reference, payment_method_id, pos_order_id, pos_payment_id, external_payment_id, type, status,
	amount_cents, currency, error_message, request_data, response_data,
	request_timestamp, response_timestamp, duration_seconds, created_at, updated_at
`

type TransactionLogFilter struct {
	PaymentMethodID uint64
	Type            string
	Status          string
	Limit           int32
	Offset          int32
}

type TransactionLogRepository struct {
	db DBTX
}

func NewTransactionLogRepository(db DBTX) *TransactionLogRepository {
	return &TransactionLogRepository{db: db}
}

func (r *TransactionLogRepository) Create(ctx context.Context, log *entity.TransactionLog) error {
	query := `
		INSERT INTO clover_transaction_logs (
			reference, payment_method_id, pos_order_id, pos_payment_id, external_payment_id, type, status,
			amount_cents, currency, error_message, request_data, response_data,
			request_timestamp, response_timestamp, duration_seconds, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		log.Reference,
		log.PaymentMethodID,
		nullableUint64Value(log.PosOrderID),
		nullableUint64Value(log.PosPaymentID),
		nullableStringValue(log.ExternalPaymentID),
		log.Type,
		log.Status,
		log.AmountCents,
		log.Currency,
		nullableStringValue(log.ErrorMessage),
		nullableStringValue(log.RequestData),
		nullableStringValue(log.ResponseData),
		log.RequestTimestamp,
		nullableTimeValue(log.ResponseTimestamp),
		nullableFloat64Value(log.DurationSeconds),
		log.CreatedAt,
		log.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionLogAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)
	return nil
}

// Complete records the outcome of the call that created the row.
func (r *TransactionLogRepository) Complete(ctx context.Context, log *entity.TransactionLog) error {
	query := `
		UPDATE clover_transaction_logs SET
			status = ?,
			error_message = ?,
			response_data = ?,
			response_timestamp = ?,
			duration_seconds = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		log.Status,
		nullableStringValue(log.ErrorMessage),
		nullableStringValue(log.ResponseData),
		nullableTimeValue(log.ResponseTimestamp),
		nullableFloat64Value(log.DurationSeconds),
		log.UpdatedAt,
		log.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrTransactionLogNotFound)
}

// MarkTimeout only transitions rows that are still pending.
func (r *TransactionLogRepository) MarkTimeout(ctx context.Context, log *entity.TransactionLog) (bool, error) {
	query := `
		UPDATE clover_transaction_logs SET
			status = ?,
			error_message = ?,
			response_timestamp = ?,
			duration_seconds = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.TransactionStatusTimeout,
		nullableStringValue(log.ErrorMessage),
		nullableTimeValue(log.ResponseTimestamp),
		nullableFloat64Value(log.DurationSeconds),
		log.UpdatedAt,
		log.ID,
		entity.TransactionStatusPending,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TransactionLogRepository) FindByReference(ctx context.Context, reference string) (*entity.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + ` FROM clover_transaction_logs WHERE reference = ? LIMIT 1`

	log := &entity.TransactionLog{}
	if err := scanTransactionLog(r.db.QueryRowContext(ctx, query, reference), log); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return log, nil
}

func (r *TransactionLogRepository) FindByExternalPaymentID(ctx context.Context, paymentMethodID uint64, externalPaymentID string) (*entity.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + `
		FROM clover_transaction_logs
		WHERE payment_method_id = ? AND external_payment_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	log := &entity.TransactionLog{}
	if err := scanTransactionLog(r.db.QueryRowContext(ctx, query, paymentMethodID, externalPaymentID), log); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return log, nil
}

// FindLatestInFlightByTypes returns the most recent in-flight row of the given types requested at or
// after since. Failed, cancelled and timed out rows never match.
func (r *TransactionLogRepository) FindLatestInFlightByTypes(ctx context.Context, paymentMethodID uint64, kinds []string, since time.Time) (*entity.TransactionLog, error) {
	if len(kinds) == 0 {
		return nil, nil
	}

	typePlaceholders := strings.TrimSuffix(strings.Repeat("?, ", len(kinds)), ", ")
	statusPlaceholders := strings.TrimSuffix(strings.Repeat("?, ", len(entity.InFlightTransactionStatuses)), ", ")
	query := `SELECT ` + transactionLogColumns + `
		FROM clover_transaction_logs
		WHERE payment_method_id = ?
		  AND type IN (` + typePlaceholders + `)
		  AND status IN (` + statusPlaceholders + `)
		  AND request_timestamp >= ?
		ORDER BY request_timestamp DESC, id DESC
		LIMIT 1
	`

	args := make([]interface{}, 0, len(kinds)+len(entity.InFlightTransactionStatuses)+2)
	args = append(args, paymentMethodID)
	for _, kind := range kinds {
		args = append(args, kind)
	}
	for _, status := range entity.InFlightTransactionStatuses {
		args = append(args, status)
	}
	args = append(args, since)

	log := &entity.TransactionLog{}
	if err := scanTransactionLog(r.db.QueryRowContext(ctx, query, args...), log); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return log, nil
}

func (r *TransactionLogRepository) List(ctx context.Context, filter TransactionLogFilter) ([]*entity.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + ` FROM clover_transaction_logs`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if filter.PaymentMethodID > 0 {
		conditions = append(conditions, "payment_method_id = ?")
		args = append(args, filter.PaymentMethodID)
	}
	if strings.TrimSpace(filter.Type) != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if strings.TrimSpace(filter.Status) != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY request_timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.query(ctx, query, args...)
}

func (r *TransactionLogRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + `
		FROM clover_transaction_logs
		WHERE status = ?
		  AND request_timestamp <= ?
		ORDER BY request_timestamp ASC
		LIMIT ?
	`
	return r.query(ctx, query, entity.TransactionStatusPending, cutoff, limit)
}

func (r *TransactionLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.TransactionLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*entity.TransactionLog, 0)
	for rows.Next() {
		item := &entity.TransactionLog{}
		if err := scanTransactionLog(rows, item); err != nil {
			return nil, err
		}
		logs = append(logs, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

func scanTransactionLog(scan rowScanner, log *entity.TransactionLog) error {
	var posOrderID sql.NullInt64
	var posPaymentID sql.NullInt64
	var externalPaymentID sql.NullString
	var errorMessage sql.NullString
	var requestData sql.NullString
	var responseData sql.NullString
	var responseTimestamp sql.NullTime
	var duration sql.NullFloat64

	err := scan.Scan(
		&log.ID,
		&log.Reference,
		&log.PaymentMethodID,
		&posOrderID,
		&posPaymentID,
		&externalPaymentID,
		&log.Type,
		&log.Status,
		&log.AmountCents,
		&log.Currency,
		&errorMessage,
		&requestData,
		&responseData,
		&log.RequestTimestamp,
		&responseTimestamp,
		&duration,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		return err
	}

	log.PosOrderID = uint64PtrFromNull(posOrderID)
	log.PosPaymentID = uint64PtrFromNull(posPaymentID)
	log.ExternalPaymentID = stringPtrFromNull(externalPaymentID)
	log.ErrorMessage = stringPtrFromNull(errorMessage)
	log.RequestData = stringPtrFromNull(requestData)
	log.ResponseData = stringPtrFromNull(responseData)
	log.ResponseTimestamp = timePtrFromNull(responseTimestamp)
	log.DurationSeconds = float64PtrFromNull(duration)

	return nil
}
