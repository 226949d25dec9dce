package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxListLimit = 500

func NewCreatePaymentMethodRequestFromContext(ctx echo.Context) (*PaymentMethodRequest, error) {
	var body PaymentMethodRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.normalize()
	return &body, nil
}

func NewUpdatePaymentMethodRequestFromContext(ctx echo.Context) (*PaymentMethodRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body PaymentMethodRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Id = id
	body.normalize()
	return &body, nil
}

func (r *PaymentMethodRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.UsePaymentTerminal = strings.ToLower(strings.TrimSpace(r.UsePaymentTerminal))
	r.Environment = strings.ToLower(strings.TrimSpace(r.Environment))
	r.MerchantId = strings.TrimSpace(r.MerchantId)
	r.DeviceId = strings.TrimSpace(r.DeviceId)
	r.AppId = strings.TrimSpace(r.AppId)
	r.AppSecret = strings.TrimSpace(r.AppSecret)
}

func (r *PaymentMethodRequest) Validate() error {
	if r.GetName() == "" {
		return errors.New("name is required")
	}
	switch r.GetEnvironment() {
	case "", "sandbox", "production":
	default:
		return errors.New("environment must be sandbox or production")
	}
	return nil
}

func NewPaymentMethodIDRequestFromContext(ctx echo.Context) (*PaymentMethodIDRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &PaymentMethodIDRequest{Id: id}, nil
}

func (r *PaymentMethodIDRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment method id")
	}
	return nil
}

func NewListPaymentMethodsRequestFromContext(ctx echo.Context) (*ListPaymentMethodsRequest, error) {
	req := &ListPaymentMethodsRequest{
		MerchantId:         strings.TrimSpace(ctx.QueryParam("merchant_id")),
		UsePaymentTerminal: strings.ToLower(strings.TrimSpace(ctx.QueryParam("use_payment_terminal"))),
		Limit:              100,
	}

	limit, offset, err := parsePaging(ctx)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		req.Limit = *limit
	}
	if offset != nil {
		req.Offset = *offset
	}
	return req, nil
}

func (r *ListPaymentMethodsRequest) Validate() error {
	return validatePaging(&r.Limit, r.Offset)
}

func NewPosConfigLinkRequestFromContext(ctx echo.Context) (*PosConfigLinkRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	configID, err := parseIDParam(ctx, "config_id")
	if err != nil {
		return nil, err
	}
	return &PosConfigLinkRequest{Id: id, PosConfigId: configID}, nil
}

func (r *PosConfigLinkRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment method id")
	}
	if r.GetPosConfigId() == 0 {
		return errors.New("invalid pos config id")
	}
	return nil
}

func NewOAuthCallbackRequestFromContext(ctx echo.Context) *OAuthCallbackRequest {
	return &OAuthCallbackRequest{
		Code:       strings.TrimSpace(ctx.QueryParam("code")),
		MerchantId: strings.TrimSpace(ctx.QueryParam("merchant_id")),
		ClientId:   strings.TrimSpace(ctx.QueryParam("client_id")),
	}
}

func NewProxyRequestFromContext(ctx echo.Context) (*ProxyRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body ProxyRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PaymentMethodId = id
	body.Operation = strings.ToLower(strings.TrimSpace(body.Operation))
	return &body, nil
}

func (r *ProxyRequest) Validate() error {
	if r.GetPaymentMethodId() == 0 {
		return errors.New("invalid payment method id")
	}
	if r.GetOperation() == "" {
		return errors.New("operation is required")
	}
	if data := bytes.TrimSpace(r.GetData()); len(data) > 0 && !json.Valid(data) {
		return errors.New("data must be valid JSON")
	}
	return nil
}

func NewOperationRequestFromContext(ctx echo.Context) (*OperationRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	req := &OperationRequest{
		PaymentMethodId: id,
		Reference:       strings.TrimSpace(ctx.Param("reference")),
	}
	if raw := strings.TrimSpace(ctx.QueryParam("timeout_seconds")); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.TimeoutSeconds = int32(seconds)
	}
	return req, nil
}

func (r *OperationRequest) Validate() error {
	if r.GetPaymentMethodId() == 0 {
		return errors.New("invalid payment method id")
	}
	if r.GetReference() == "" {
		return errors.New("reference is required")
	}
	if r.GetTimeoutSeconds() < 0 {
		return errors.New("timeout_seconds must be >= 0")
	}
	return nil
}

func NewRecordPaymentRequestFromContext(ctx echo.Context) (*RecordPaymentRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body RecordPaymentRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.PaymentMethodId = id
	return &body, nil
}

func (r *RecordPaymentRequest) Validate() error {
	if r.GetPaymentMethodId() == 0 {
		return errors.New("invalid payment method id")
	}
	if r.GetPosPaymentId() == 0 {
		return errors.New("pos_payment_id is required")
	}
	if len(bytes.TrimSpace(r.GetResponse())) == 0 {
		return errors.New("response is required")
	}
	return nil
}

func NewGetCloverPaymentRequestFromContext(ctx echo.Context) (*GetCloverPaymentRequest, error) {
	id, err := parseIDParam(ctx, "pos_payment_id")
	if err != nil {
		return nil, err
	}
	return &GetCloverPaymentRequest{PosPaymentId: id}, nil
}

func (r *GetCloverPaymentRequest) Validate() error {
	if r.GetPosPaymentId() == 0 {
		return errors.New("invalid pos payment id")
	}
	return nil
}

func NewListTransactionLogsRequestFromContext(ctx echo.Context) (*ListTransactionLogsRequest, error) {
	req := &ListTransactionLogsRequest{
		Type:   strings.ToLower(strings.TrimSpace(ctx.QueryParam("type"))),
		Status: strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  100,
	}

	if raw := strings.TrimSpace(ctx.QueryParam("payment_method_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.PaymentMethodId = id
	}

	limit, offset, err := parsePaging(ctx)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		req.Limit = *limit
	}
	if offset != nil {
		req.Offset = *offset
	}
	return req, nil
}

func (r *ListTransactionLogsRequest) Validate() error {
	return validatePaging(&r.Limit, r.Offset)
}

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
}

func parsePaging(ctx echo.Context) (*int32, *int32, error) {
	var limit, offset *int32
	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, nil, err
		}
		n := int32(v)
		limit = &n
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, nil, err
		}
		n := int32(v)
		offset = &n
	}
	return limit, offset, nil
}

func validatePaging(limit *int32, offset int32) error {
	if *limit == 0 {
		*limit = 100
	}
	if *limit < 0 || *limit > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
