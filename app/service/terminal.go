package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
	"github.com/vibast-solutions/ms-go-clover-pos/app/notifier"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
	"github.com/vibast-solutions/ms-go-clover-pos/config"
)

const (
	maxResponseDataLength = 10000

	authFailedMessage      = "Authentication failed. Please check your Clover credentials."
	timeoutMessage         = "Request timeout. Please try again."
	invalidResponseMessage = "invalid response from Clover"
)

var successBody = json.RawMessage(`{"success":true}`)

type proxyRequest interface {
	GetPaymentMethodId() uint64
	GetOperation() string
	GetData() json.RawMessage
	GetPosOrderId() uint64
	GetPosPaymentId() uint64
}

type listTransactionLogsRequest interface {
	GetPaymentMethodId() uint64
	GetType() string
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

type transactionLogRepository interface {
	Create(ctx context.Context, log *entity.TransactionLog) error
	Complete(ctx context.Context, log *entity.TransactionLog) error
	MarkTimeout(ctx context.Context, log *entity.TransactionLog) (bool, error)
	FindByReference(ctx context.Context, reference string) (*entity.TransactionLog, error)
	FindByExternalPaymentID(ctx context.Context, paymentMethodID uint64, externalPaymentID string) (*entity.TransactionLog, error)
	FindLatestInFlightByTypes(ctx context.Context, paymentMethodID uint64, kinds []string, since time.Time) (*entity.TransactionLog, error)
	List(ctx context.Context, filter repository.TransactionLogFilter) ([]*entity.TransactionLog, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.TransactionLog, error)
}

type cloverPaymentRepository interface {
	Create(ctx context.Context, payment *entity.CloverPayment) error
	FindByPosPaymentID(ctx context.Context, posPaymentID uint64) (*entity.CloverPayment, error)
}

type terminalEventRepository interface {
	Create(ctx context.Context, event *entity.TerminalEvent) error
	ListByReference(ctx context.Context, reference string) ([]*entity.TerminalEvent, error)
	FindFirstByReference(ctx context.Context, reference string) (*entity.TerminalEvent, error)
}

type cloverDeviceClient interface {
	Execute(ctx context.Context, target clover.Target, op clover.Operation, payload []byte) (*clover.Response, error)
}

type terminalNotifier interface {
	NotifyPosConfig(ctx context.Context, message notifier.PosConfigMessage) error
	PublishCompletion(ctx context.Context, reference string, payload []byte) error
	AwaitCompletion(ctx context.Context, reference string, check func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

type deviceLocker interface {
	Acquire(ctx context.Context, deviceID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, deviceID, owner string) (bool, error)
	ForceRelease(ctx context.Context, deviceID string) error
	Owner(ctx context.Context, deviceID string) (string, error)
}

// ProxyResult is what the POS receives for a proxied call. Clover and network failures are
// encoded in Body rather than returned as errors.
type ProxyResult struct {
	Reference  string
	StatusCode int
	Body       json.RawMessage
}

type OperationDetails struct {
	Log    *entity.TransactionLog
	Events []*entity.TerminalEvent
}

type TerminalService struct {
	methodRepo    paymentMethodRepository
	posConfigRepo posConfigRepository
	logRepo       transactionLogRepository
	paymentRepo   cloverPaymentRepository
	eventRepo     terminalEventRepository
	client        cloverDeviceClient
	notifier      terminalNotifier
	locker        deviceLocker
	cloverCfg     config.CloverConfig
	jobsCfg       config.JobsConfig
	logger        logrus.FieldLogger
}

func NewTerminalService(
	methodRepo paymentMethodRepository,
	posConfigRepo posConfigRepository,
	logRepo transactionLogRepository,
	paymentRepo cloverPaymentRepository,
	eventRepo terminalEventRepository,
	client cloverDeviceClient,
	terminalNotifier terminalNotifier,
	locker deviceLocker,
	cloverCfg config.CloverConfig,
	jobsCfg config.JobsConfig,
) *TerminalService {
	if cloverCfg.PaymentTimeout <= 0 {
		cloverCfg.PaymentTimeout = 120 * time.Second
	}
	if cloverCfg.DeviceLockTTL <= 0 {
		cloverCfg.DeviceLockTTL = cloverCfg.PaymentTimeout + 30*time.Second
	}
	if jobsCfg.PendingTimeout <= 0 {
		jobsCfg.PendingTimeout = 10 * time.Minute
	}

	return &TerminalService{
		methodRepo:    methodRepo,
		posConfigRepo: posConfigRepo,
		logRepo:       logRepo,
		paymentRepo:   paymentRepo,
		eventRepo:     eventRepo,
		client:        client,
		notifier:      terminalNotifier,
		locker:        locker,
		cloverCfg:     cloverCfg,
		jobsCfg:       jobsCfg,
		logger:        factory.NewModuleLogger("terminal-service"),
	}
}

func (s *TerminalService) Proxy(ctx context.Context, req proxyRequest) (*ProxyResult, error) {
	method, err := s.loadTerminal(ctx, req.GetPaymentMethodId())
	if err != nil {
		return nil, err
	}

	op, err := clover.ParseOperation(req.GetOperation())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, strings.TrimSpace(req.GetOperation()))
	}

	payload, err := normalizePayload(req.GetData())
	if err != nil {
		return nil, err
	}

	reference := "API-" + op.String() + "-" + uuid.NewString()
	deviceID := derefString(method.DeviceID)
	l := s.logger.WithField("payment_method_id", method.ID).WithField("operation", op.String()).WithField("reference", reference)

	var externalPaymentID string
	if op.HoldsDevice() {
		payload, externalPaymentID, err = ensureExternalPaymentID(payload)
		if err != nil {
			return nil, err
		}
	}

	holding := false
	if op.HoldsDevice() {
		acquired, err := s.locker.Acquire(ctx, deviceID, reference, s.cloverCfg.DeviceLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			owner, err := s.locker.Owner(ctx, deviceID)
			if err != nil {
				l.WithError(err).Warn("Failed to read device lock owner")
			}
			if owner == "" {
				return nil, ErrDeviceBusy
			}
			l.WithField("lock_owner", owner).Info("Device busy")
			return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, owner)
		}
		holding = true
	}

	// Bookkeeping after the Clover call must survive the caller going away.
	bgCtx := context.WithoutCancel(ctx)
	release := func() {
		if !holding {
			return
		}
		holding = false
		if _, err := s.locker.Release(bgCtx, deviceID, reference); err != nil {
			l.WithError(err).Warn("Failed to release device lock")
		}
	}

	now := time.Now().UTC()
	if op == clover.OperationSale {
		if err := s.methodRepo.ClearLatestResponse(ctx, method.ID, now); err != nil {
			release()
			return nil, err
		}
	}

	log := &entity.TransactionLog{
		Reference:         reference,
		PaymentMethodID:   method.ID,
		PosOrderID:        optionalUint64(req.GetPosOrderId()),
		PosPaymentID:      optionalUint64(req.GetPosPaymentId()),
		ExternalPaymentID: normalizeOptionalString(externalPaymentID),
		Type:              op.String(),
		Status:            entity.TransactionStatusPending,
		AmountCents:       payloadAmount(payload),
		RequestData:       normalizeOptionalString(string(payload)),
		RequestTimestamp:  now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.logRepo.Create(ctx, log); err != nil {
		release()
		return nil, err
	}

	resp, callErr := s.client.Execute(ctx, targetFor(method), op, payload)
	completedAt := time.Now().UTC()

	if callErr != nil {
		statusCode := http.StatusInternalServerError
		message := callErr.Error()
		if clover.IsTimeout(callErr) {
			statusCode = http.StatusRequestTimeout
			message = timeoutMessage
			l.Warn("Clover API request timeout")
		} else {
			l.WithError(callErr).Error("Clover API request error")
		}

		s.completeLog(bgCtx, log, entity.TransactionStatusFailed, "", callErr.Error(), completedAt)
		release()
		return &ProxyResult{Reference: reference, StatusCode: statusCode, Body: errorBody(statusCode, message)}, nil
	}

	body, ok := proxyBody(resp)
	status := entity.TransactionStatusSuccess
	errorMessage := ""
	if resp.StatusCode != http.StatusOK || !ok {
		status = entity.TransactionStatusFailed
		errorMessage = string(resp.Body)
		if errorMessage == "" {
			errorMessage = http.StatusText(resp.StatusCode)
		}
	}
	s.completeLog(bgCtx, log, status, string(resp.Body), errorMessage, completedAt)

	if status != entity.TransactionStatusSuccess {
		release()
	}
	if op == clover.OperationCancel && status == entity.TransactionStatusSuccess && deviceID != "" {
		if err := s.locker.ForceRelease(bgCtx, deviceID); err != nil {
			l.WithError(err).Warn("Failed to clear device lock after cancel")
		}
	}

	return &ProxyResult{Reference: reference, StatusCode: resp.StatusCode, Body: body}, nil
}

// LatestResponse returns the buffered terminal payload, or nil when nothing is buffered.
func (s *TerminalService) LatestResponse(ctx context.Context, paymentMethodID uint64) (json.RawMessage, error) {
	raw, err := s.methodRepo.GetLatestResponse(ctx, paymentMethodID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	if raw == nil || !json.Valid([]byte(*raw)) {
		return nil, nil
	}
	return json.RawMessage(*raw), nil
}

func (s *TerminalService) Operation(ctx context.Context, paymentMethodID uint64, reference string) (*OperationDetails, error) {
	log, err := s.findOperation(ctx, paymentMethodID, reference)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByReference(ctx, log.Reference)
	if err != nil {
		return nil, err
	}
	return &OperationDetails{Log: log, Events: events}, nil
}

// AwaitOperation blocks until the terminal reports back for reference or timeout elapses.
func (s *TerminalService) AwaitOperation(ctx context.Context, paymentMethodID uint64, reference string, timeout time.Duration) (json.RawMessage, error) {
	log, err := s.findOperation(ctx, paymentMethodID, reference)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 || timeout > s.cloverCfg.PaymentTimeout {
		timeout = s.cloverCfg.PaymentTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := s.notifier.AwaitCompletion(waitCtx, log.Reference, func(ctx context.Context) ([]byte, error) {
		event, err := s.eventRepo.FindFirstByReference(ctx, log.Reference)
		if err != nil || event == nil {
			return nil, err
		}
		return []byte(event.PayloadJSON), nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrAwaitTimeout
		}
		return nil, err
	}
	return json.RawMessage(payload), nil
}

func (s *TerminalService) ListTransactionLogs(ctx context.Context, req listTransactionLogsRequest) ([]*entity.TransactionLog, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	kind := strings.ToLower(strings.TrimSpace(req.GetType()))
	if kind != "" && !entity.ValidTransactionType(kind) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRequest, kind)
	}
	status := strings.ToLower(strings.TrimSpace(req.GetStatus()))
	if status != "" && !entity.ValidTransactionStatus(status) {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrInvalidRequest, status)
	}

	return s.logRepo.List(ctx, repository.TransactionLogFilter{
		PaymentMethodID: req.GetPaymentMethodId(),
		Type:            kind,
		Status:          status,
		Limit:           limit,
		Offset:          req.GetOffset(),
	})
}

func (s *TerminalService) loadTerminal(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	method, err := s.methodRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}
	if !method.IsClover() {
		return nil, fmt.Errorf("%w: payment method does not use a Clover terminal", ErrConfiguration)
	}
	if !method.HasAccessToken() {
		return nil, fmt.Errorf("%w: Clover access token not configured", ErrConfiguration)
	}
	if derefString(method.MerchantID) == "" {
		return nil, fmt.Errorf("%w: Clover merchant id not configured", ErrConfiguration)
	}
	if derefString(method.DeviceID) == "" {
		return nil, fmt.Errorf("%w: Clover device not configured", ErrConfiguration)
	}
	return method, nil
}

func (s *TerminalService) findOperation(ctx context.Context, paymentMethodID uint64, reference string) (*entity.TransactionLog, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrOperationNotFound
	}

	log, err := s.logRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if log == nil || log.PaymentMethodID != paymentMethodID {
		return nil, ErrOperationNotFound
	}
	return log, nil
}

func (s *TerminalService) completeLog(ctx context.Context, log *entity.TransactionLog, status, responseData, errorMessage string, completedAt time.Time) {
	duration := completedAt.Sub(log.RequestTimestamp).Seconds()
	log.Status = status
	log.ResponseData = normalizeOptionalString(truncate(responseData, maxResponseDataLength))
	log.ErrorMessage = normalizeOptionalString(truncate(errorMessage, maxResponseDataLength))
	log.ResponseTimestamp = &completedAt
	log.DurationSeconds = &duration
	log.UpdatedAt = completedAt

	if err := s.logRepo.Complete(ctx, log); err != nil {
		s.logger.WithError(err).WithField("reference", log.Reference).Error("Failed to complete transaction log")
	}
}

// proxyBody maps a Clover response to the POS result. ok is false when the body is unusable.
func proxyBody(resp *clover.Response) (json.RawMessage, bool) {
	if resp.StatusCode == http.StatusUnauthorized {
		return errorBody(resp.StatusCode, authFailedMessage), true
	}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 {
		return successBody, true
	}
	if !json.Valid(trimmed) {
		return errorBody(resp.StatusCode, invalidResponseMessage), false
	}
	return json.RawMessage(trimmed), true
}

func errorBody(statusCode int, message string) json.RawMessage {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"status_code": statusCode,
			"message":     message,
		},
	})
	return body
}

func normalizePayload(data json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: data must be valid JSON", ErrInvalidRequest)
	}
	return trimmed, nil
}

// ensureExternalPaymentID adds an externalPaymentId to a payment body that lacks one. The field is
// spliced in so the caller's number literals and key order reach Clover untouched.
func ensureExternalPaymentID(payload []byte) ([]byte, string, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil || body == nil {
		return nil, "", fmt.Errorf("%w: payment data must be a JSON object", ErrInvalidRequest)
	}

	raw, present := body["externalPaymentId"]
	if present {
		var existing string
		if err := json.Unmarshal(raw, &existing); err == nil && strings.TrimSpace(existing) != "" {
			return payload, strings.TrimSpace(existing), nil
		}
	}

	externalPaymentID := strings.ReplaceAll(uuid.NewString(), "-", "")
	encoded, err := json.Marshal(externalPaymentID)
	if err != nil {
		return nil, "", err
	}

	if present {
		// An unusable value is replaced in place; RawMessage keeps the other values verbatim.
		body["externalPaymentId"] = encoded
		out, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return out, externalPaymentID, nil
	}

	head := bytes.TrimSpace(payload[:bytes.LastIndexByte(payload, '}')])
	out := make([]byte, 0, len(payload)+len(encoded)+22)
	out = append(out, head...)
	if len(body) > 0 {
		out = append(out, ',')
	}
	out = append(out, `"externalPaymentId":`...)
	out = append(out, encoded...)
	out = append(out, '}')
	return out, externalPaymentID, nil
}

func payloadAmount(payload []byte) int64 {
	if len(payload) == 0 {
		return 0
	}
	var body struct {
		Amount json.Number `json:"amount"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0
	}
	n, err := body.Amount.Int64()
	if err != nil {
		return 0
	}
	return n
}

func optionalUint64(v uint64) *uint64 {
	if v == 0 {
		return nil
	}
	return &v
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max]
}
