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
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrDeviceAlreadyUsed     = errors.New("device id is already used by another payment method")
)

const paymentMethodColumns = `
	id, name, use_payment_terminal, environment, merchant_id, device_id,
	app_id, app_secret, access_token, refresh_token, token_expiry, authorization_code,
	created_at, updated_at
`

type PaymentMethodFilter struct {
	MerchantID string
	Terminal   string
	Limit      int32
	Offset     int32
}

type PaymentMethodRepository struct {
	db DBTX
}

func NewPaymentMethodRepository(db DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(ctx context.Context, method *entity.PaymentMethod) error {
	query := `
		INSERT INTO clover_payment_methods (
			name, use_payment_terminal, environment, merchant_id, device_id,
			app_id, app_secret, access_token, refresh_token, token_expiry, authorization_code,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		method.Name,
		method.UsePaymentTerminal,
		method.Environment,
		nullableStringValue(method.MerchantID),
		nullableStringValue(method.DeviceID),
		nullableStringValue(method.AppID),
		nullableStringValue(method.AppSecret),
		nullableStringValue(method.AccessToken),
		nullableStringValue(method.RefreshToken),
		nullableTimeValue(method.TokenExpiry),
		nullableStringValue(method.AuthorizationCode),
		method.CreatedAt,
		method.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDeviceAlreadyUsed
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	method.ID = uint64(id)
	return nil
}

// Update writes the admin-editable fields. Credentials and the latest-response buffer have dedicated setters.
func (r *PaymentMethodRepository) Update(ctx context.Context, method *entity.PaymentMethod) error {
	query := `
		UPDATE clover_payment_methods SET
			name = ?,
			use_payment_terminal = ?,
			environment = ?,
			merchant_id = ?,
			device_id = ?,
			app_id = ?,
			app_secret = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		method.Name,
		method.UsePaymentTerminal,
		method.Environment,
		nullableStringValue(method.MerchantID),
		nullableStringValue(method.DeviceID),
		nullableStringValue(method.AppID),
		nullableStringValue(method.AppSecret),
		method.UpdatedAt,
		method.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDeviceAlreadyUsed
		}
		return err
	}

	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM clover_payment_methods WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PaymentMethodRepository) FindByDeviceID(ctx context.Context, deviceID string) (*entity.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM clover_payment_methods WHERE device_id = ? LIMIT 1`
	return r.findOne(ctx, query, deviceID)
}

// FindByMerchantOrApp matches on every identifier that is present.
func (r *PaymentMethodRepository) FindByMerchantOrApp(ctx context.Context, merchantID, appID string) (*entity.PaymentMethod, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if strings.TrimSpace(merchantID) != "" {
		conditions = append(conditions, "merchant_id = ?")
		args = append(args, merchantID)
	}
	if strings.TrimSpace(appID) != "" {
		conditions = append(conditions, "app_id = ?")
		args = append(args, appID)
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	query := `SELECT ` + paymentMethodColumns + ` FROM clover_payment_methods WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY id ASC LIMIT 1`
	return r.findOne(ctx, query, args...)
}

// FindCloverByDeviceOrMerchant resolves the webhook target among Clover terminals.
func (r *PaymentMethodRepository) FindCloverByDeviceOrMerchant(ctx context.Context, deviceID, merchantID string) (*entity.PaymentMethod, error) {
	conditions := []string{"use_payment_terminal = ?"}
	args := []interface{}{entity.TerminalClover}
	if strings.TrimSpace(deviceID) != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, deviceID)
	}
	if strings.TrimSpace(merchantID) != "" {
		conditions = append(conditions, "merchant_id = ?")
		args = append(args, merchantID)
	}
	if len(conditions) == 1 {
		return nil, nil
	}

	query := `SELECT ` + paymentMethodColumns + ` FROM clover_payment_methods WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY id ASC LIMIT 1`
	return r.findOne(ctx, query, args...)
}

func (r *PaymentMethodRepository) List(ctx context.Context, filter PaymentMethodFilter) ([]*entity.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM clover_payment_methods`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if strings.TrimSpace(filter.MerchantID) != "" {
		conditions = append(conditions, "merchant_id = ?")
		args = append(args, filter.MerchantID)
	}
	if strings.TrimSpace(filter.Terminal) != "" {
		conditions = append(conditions, "use_payment_terminal = ?")
		args = append(args, filter.Terminal)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]*entity.PaymentMethod, 0)
	for rows.Next() {
		item := &entity.PaymentMethod{}
		if err := scanPaymentMethod(rows, item); err != nil {
			return nil, err
		}
		methods = append(methods, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return methods, nil
}

func (r *PaymentMethodRepository) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clover_payment_methods WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) SetLatestResponse(ctx context.Context, id uint64, payload string, now time.Time) error {
	query := `UPDATE clover_payment_methods SET latest_response = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, payload, now, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) ClearLatestResponse(ctx context.Context, id uint64, now time.Time) error {
	query := `UPDATE clover_payment_methods SET latest_response = NULL, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

// GetLatestResponse returns nil when the buffer is empty.
func (r *PaymentMethodRepository) GetLatestResponse(ctx context.Context, id uint64) (*string, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT latest_response FROM clover_payment_methods WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, err
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	return &raw.String, nil
}

func (r *PaymentMethodRepository) UpdateTokens(ctx context.Context, id uint64, accessToken string, refreshToken *string, expiry time.Time, now time.Time) error {
	query := `
		UPDATE clover_payment_methods SET
			access_token = ?,
			refresh_token = ?,
			token_expiry = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, accessToken, nullableStringValue(refreshToken), expiry, now, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) ClearTokens(ctx context.Context, id uint64, now time.Time) error {
	query := `
		UPDATE clover_payment_methods SET
			access_token = NULL,
			refresh_token = NULL,
			token_expiry = NULL,
			authorization_code = NULL,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) SetAuthorizationCode(ctx context.Context, id uint64, code string, now time.Time) error {
	query := `UPDATE clover_payment_methods SET authorization_code = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, code, now, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) SetDeviceID(ctx context.Context, id uint64, deviceID string, now time.Time) error {
	query := `UPDATE clover_payment_methods SET device_id = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, deviceID, now, id)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDeviceAlreadyUsed
		}
		return err
	}
	return checkAffected(result, ErrPaymentMethodNotFound)
}

func (r *PaymentMethodRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PaymentMethod, error) {
	method := &entity.PaymentMethod{}
	if err := scanPaymentMethod(r.db.QueryRowContext(ctx, query, args...), method); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return method, nil
}

func scanPaymentMethod(scan rowScanner, method *entity.PaymentMethod) error {
	var merchantID sql.NullString
	var deviceID sql.NullString
	var appID sql.NullString
	var appSecret sql.NullString
	var accessToken sql.NullString
	var refreshToken sql.NullString
	var tokenExpiry sql.NullTime
	var authorizationCode sql.NullString

	err := scan.Scan(
		&method.ID,
		&method.Name,
		&method.UsePaymentTerminal,
		&method.Environment,
		&merchantID,
		&deviceID,
		&appID,
		&appSecret,
		&accessToken,
		&refreshToken,
		&tokenExpiry,
		&authorizationCode,
		&method.CreatedAt,
		&method.UpdatedAt,
	)
	if err != nil {
		return err
	}

	method.MerchantID = stringPtrFromNull(merchantID)
	method.DeviceID = stringPtrFromNull(deviceID)
	method.AppID = stringPtrFromNull(appID)
	method.AppSecret = stringPtrFromNull(appSecret)
	method.AccessToken = stringPtrFromNull(accessToken)
	method.RefreshToken = stringPtrFromNull(refreshToken)
	method.TokenExpiry = timePtrFromNull(tokenExpiry)
	method.AuthorizationCode = stringPtrFromNull(authorizationCode)

	return nil
}
