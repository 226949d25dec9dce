package types

import "encoding/json"

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PaymentMethodRequest struct {
	Id                 uint64 `json:"-"`
	Name               string `json:"name"`
	UsePaymentTerminal string `json:"use_payment_terminal"`
	Environment        string `json:"environment"`
	MerchantId         string `json:"merchant_id"`
	DeviceId           string `json:"device_id"`
	AppId              string `json:"app_id"`
	AppSecret          string `json:"app_secret"`
}

func (r *PaymentMethodRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *PaymentMethodRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *PaymentMethodRequest) GetUsePaymentTerminal() string {
	if r == nil {
		return ""
	}
	return r.UsePaymentTerminal
}

func (r *PaymentMethodRequest) GetEnvironment() string {
	if r == nil {
		return ""
	}
	return r.Environment
}

func (r *PaymentMethodRequest) GetMerchantId() string {
	if r == nil {
		return ""
	}
	return r.MerchantId
}

func (r *PaymentMethodRequest) GetDeviceId() string {
	if r == nil {
		return ""
	}
	return r.DeviceId
}

func (r *PaymentMethodRequest) GetAppId() string {
	if r == nil {
		return ""
	}
	return r.AppId
}

func (r *PaymentMethodRequest) GetAppSecret() string {
	if r == nil {
		return ""
	}
	return r.AppSecret
}

type PaymentMethodIDRequest struct {
	Id uint64 `json:"id"`
}

func (r *PaymentMethodIDRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

type ListPaymentMethodsRequest struct {
	MerchantId         string `json:"merchant_id"`
	UsePaymentTerminal string `json:"use_payment_terminal"`
	Limit              int32  `json:"limit"`
	Offset             int32  `json:"offset"`
}

func (r *ListPaymentMethodsRequest) GetMerchantId() string {
	if r == nil {
		return ""
	}
	return r.MerchantId
}

func (r *ListPaymentMethodsRequest) GetUsePaymentTerminal() string {
	if r == nil {
		return ""
	}
	return r.UsePaymentTerminal
}

func (r *ListPaymentMethodsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPaymentMethodsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type PosConfigLinkRequest struct {
	Id          uint64 `json:"id"`
	PosConfigId uint64 `json:"pos_config_id"`
}

func (r *PosConfigLinkRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *PosConfigLinkRequest) GetPosConfigId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosConfigId
}

type OAuthCallbackRequest struct {
	Code       string `json:"code"`
	MerchantId string `json:"merchant_id"`
	ClientId   string `json:"client_id"`
}

func (r *OAuthCallbackRequest) GetCode() string {
	if r == nil {
		return ""
	}
	return r.Code
}

func (r *OAuthCallbackRequest) GetMerchantId() string {
	if r == nil {
		return ""
	}
	return r.MerchantId
}

func (r *OAuthCallbackRequest) GetClientId() string {
	if r == nil {
		return ""
	}
	return r.ClientId
}

type ProxyRequest struct {
	PaymentMethodId uint64          `json:"payment_method_id"`
	Operation       string          `json:"operation"`
	Data            json.RawMessage `json:"data,omitempty"`
	PosOrderId      uint64          `json:"pos_order_id,omitempty"`
	PosPaymentId    uint64          `json:"pos_payment_id,omitempty"`
}

func (r *ProxyRequest) GetPaymentMethodId() uint64 {
	if r == nil {
		return 0
	}
	return r.PaymentMethodId
}

func (r *ProxyRequest) GetOperation() string {
	if r == nil {
		return ""
	}
	return r.Operation
}

func (r *ProxyRequest) GetData() json.RawMessage {
	if r == nil {
		return nil
	}
	return r.Data
}

func (r *ProxyRequest) GetPosOrderId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosOrderId
}

func (r *ProxyRequest) GetPosPaymentId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosPaymentId
}

type OperationRequest struct {
	PaymentMethodId uint64 `json:"payment_method_id"`
	Reference       string `json:"reference"`
	TimeoutSeconds  int32  `json:"timeout_seconds,omitempty"`
}

func (r *OperationRequest) GetPaymentMethodId() uint64 {
	if r == nil {
		return 0
	}
	return r.PaymentMethodId
}

func (r *OperationRequest) GetReference() string {
	if r == nil {
		return ""
	}
	return r.Reference
}

func (r *OperationRequest) GetTimeoutSeconds() int32 {
	if r == nil {
		return 0
	}
	return r.TimeoutSeconds
}

type RecordPaymentRequest struct {
	PaymentMethodId uint64          `json:"-"`
	PosPaymentId    uint64          `json:"pos_payment_id"`
	PosOrderId      uint64          `json:"pos_order_id,omitempty"`
	Response        json.RawMessage `json:"response"`
}

func (r *RecordPaymentRequest) GetPaymentMethodId() uint64 {
	if r == nil {
		return 0
	}
	return r.PaymentMethodId
}

func (r *RecordPaymentRequest) GetPosPaymentId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosPaymentId
}

func (r *RecordPaymentRequest) GetPosOrderId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosOrderId
}

func (r *RecordPaymentRequest) GetResponse() json.RawMessage {
	if r == nil {
		return nil
	}
	return r.Response
}

type GetCloverPaymentRequest struct {
	PosPaymentId uint64 `json:"pos_payment_id"`
}

func (r *GetCloverPaymentRequest) GetPosPaymentId() uint64 {
	if r == nil {
		return 0
	}
	return r.PosPaymentId
}

type ListTransactionLogsRequest struct {
	PaymentMethodId uint64 `json:"payment_method_id"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	Limit           int32  `json:"limit"`
	Offset          int32  `json:"offset"`
}

func (r *ListTransactionLogsRequest) GetPaymentMethodId() uint64 {
	if r == nil {
		return 0
	}
	return r.PaymentMethodId
}

func (r *ListTransactionLogsRequest) GetType() string {
	if r == nil {
		return ""
	}
	return r.Type
}

func (r *ListTransactionLogsRequest) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

func (r *ListTransactionLogsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListTransactionLogsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

// PaymentMethod is the API view of a payment method. Credentials are never exposed.
type PaymentMethod struct {
	Id                   uint64 `json:"id"`
	Name                 string `json:"name"`
	UsePaymentTerminal   string `json:"use_payment_terminal"`
	Environment          string `json:"environment"`
	MerchantId           string `json:"merchant_id,omitempty"`
	DeviceId             string `json:"device_id,omitempty"`
	AppId                string `json:"app_id,omitempty"`
	HasAppSecret         bool   `json:"has_app_secret"`
	HasAccessToken       bool   `json:"has_access_token"`
	HasAuthorizationCode bool   `json:"has_authorization_code"`
	TokenExpiry          string `json:"token_expiry,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

type PaymentMethodResponse struct {
	PaymentMethod *PaymentMethod `json:"payment_method"`
}

type ListPaymentMethodsResponse struct {
	PaymentMethods []*PaymentMethod `json:"payment_methods"`
}

type AuthorizationURLResponse struct {
	AuthorizationUrl string `json:"authorization_url"`
	RedirectUrl      string `json:"redirect_url"`
}

type PosConfigsResponse struct {
	PaymentMethodId uint64   `json:"payment_method_id"`
	PosConfigIds    []uint64 `json:"pos_config_ids"`
}

type ProxyResponse struct {
	Reference  string          `json:"reference"`
	StatusCode int32           `json:"status_code"`
	Result     json.RawMessage `json:"result"`
}

type TransactionLog struct {
	Id                uint64   `json:"id"`
	Reference         string   `json:"reference"`
	PaymentMethodId   uint64   `json:"payment_method_id"`
	PosOrderId        uint64   `json:"pos_order_id,omitempty"`
	PosPaymentId      uint64   `json:"pos_payment_id,omitempty"`
	ExternalPaymentId string   `json:"external_payment_id,omitempty"`
	Type              string   `json:"type"`
	Status            string   `json:"status"`
	AmountCents       int64    `json:"amount_cents"`
	Currency          string   `json:"currency,omitempty"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	RequestData       string   `json:"request_data,omitempty"`
	ResponseData      string   `json:"response_data,omitempty"`
	RequestTimestamp  string   `json:"request_timestamp"`
	ResponseTimestamp string   `json:"response_timestamp,omitempty"`
	DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

type ListTransactionLogsResponse struct {
	TransactionLogs []*TransactionLog `json:"transaction_logs"`
}

type TerminalEvent struct {
	Id        uint64          `json:"id"`
	Reference string          `json:"reference,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

type OperationResponse struct {
	TransactionLog *TransactionLog  `json:"transaction_log"`
	Events         []*TerminalEvent `json:"events"`
}

type AwaitOperationResponse struct {
	Reference string          `json:"reference"`
	Response  json.RawMessage `json:"response"`
}

type CloverPayment struct {
	Id                uint64 `json:"id"`
	PosPaymentId      uint64 `json:"pos_payment_id"`
	PosOrderId        uint64 `json:"pos_order_id,omitempty"`
	PaymentMethodId   uint64 `json:"payment_method_id"`
	CloverPaymentId   string `json:"clover_payment_id,omitempty"`
	OrderId           string `json:"order_id,omitempty"`
	ExternalPaymentId string `json:"external_payment_id,omitempty"`
	RefundId          string `json:"refund_id,omitempty"`
	EmployeeId        string `json:"employee_id,omitempty"`
	Result            string `json:"result,omitempty"`
	AmountCents       int64  `json:"amount_cents"`
	AuthCode          string `json:"auth_code,omitempty"`
	CardType          string `json:"card_type,omitempty"`
	CardLastFour      string `json:"card_last_four,omitempty"`
	Reference         string `json:"reference,omitempty"`
	Type              string `json:"type,omitempty"`
	CreatedTime       string `json:"created_time,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type CloverPaymentResponse struct {
	Payment *CloverPayment `json:"payment"`
}

type NotifyResult struct {
	PosConfigId uint64 `json:"pos_config_id"`
	Delivered   bool   `json:"delivered"`
	Error       string `json:"error,omitempty"`
}

type NotificationResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Notified  []*NotifyResult `json:"notified,omitempty"`
}
