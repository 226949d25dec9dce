package repository

import (
	"context"
	"time"
)

type PosConfigRepository struct {
	db DBTX
}

func NewPosConfigRepository(db DBTX) *PosConfigRepository {
	return &PosConfigRepository{db: db}
}

func (r *PosConfigRepository) ListConfigIDs(ctx context.Context, paymentMethodID uint64) ([]uint64, error) {
	query := `
		SELECT pos_config_id
		FROM clover_payment_method_pos_configs
		WHERE payment_method_id = ?
		ORDER BY pos_config_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentMethodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// Link is idempotent.
func (r *PosConfigRepository) Link(ctx context.Context, paymentMethodID, posConfigID uint64, now time.Time) error {
	query := `
		INSERT INTO clover_payment_method_pos_configs (payment_method_id, pos_config_id, created_at)
		VALUES (?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, paymentMethodID, posConfigID, now)
	if err != nil && isDuplicateEntryError(err) {
		return nil
	}
	return err
}

func (r *PosConfigRepository) Unlink(ctx context.Context, paymentMethodID, posConfigID uint64) error {
	query := `DELETE FROM clover_payment_method_pos_configs WHERE payment_method_id = ? AND pos_config_id = ?`
	_, err := r.db.ExecContext(ctx, query, paymentMethodID, posConfigID)
	return err
}
