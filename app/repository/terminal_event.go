package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
)

type TerminalEventRepository struct {
	db DBTX
}

func NewTerminalEventRepository(db DBTX) *TerminalEventRepository {
	return &TerminalEventRepository{db: db}
}

func (r *TerminalEventRepository) Create(ctx context.Context, event *entity.TerminalEvent) error {
	query := `
		INSERT INTO clover_terminal_events (
			payment_method_id, transaction_log_id, reference, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentMethodID,
		nullableUint64Value(event.TransactionLogID),
		nullableStringValue(event.Reference),
		event.PayloadJSON,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *TerminalEventRepository) ListByReference(ctx context.Context, reference string) ([]*entity.TerminalEvent, error) {
	query := `
		SELECT id, payment_method_id, transaction_log_id, reference, payload_json, created_at
		FROM clover_terminal_events
		WHERE reference = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.TerminalEvent, 0)
	for rows.Next() {
		item := &entity.TerminalEvent{}
		if err := scanTerminalEvent(rows, item); err != nil {
			return nil, err
		}
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *TerminalEventRepository) FindFirstByReference(ctx context.Context, reference string) (*entity.TerminalEvent, error) {
	query := `
		SELECT id, payment_method_id, transaction_log_id, reference, payload_json, created_at
		FROM clover_terminal_events
		WHERE reference = ?
		ORDER BY id ASC
		LIMIT 1
	`

	event := &entity.TerminalEvent{}
	if err := scanTerminalEvent(r.db.QueryRowContext(ctx, query, reference), event); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return event, nil
}

func scanTerminalEvent(scan rowScanner, event *entity.TerminalEvent) error {
	var transactionLogID sql.NullInt64
	var reference sql.NullString

	if err := scan.Scan(
		&event.ID,
		&event.PaymentMethodID,
		&transactionLogID,
		&reference,
		&event.PayloadJSON,
		&event.CreatedAt,
	); err != nil {
		return err
	}

	event.TransactionLogID = uint64PtrFromNull(transactionLogID)
	event.Reference = stringPtrFromNull(reference)
	return nil
}
