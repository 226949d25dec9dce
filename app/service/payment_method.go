package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
	"github.com/vibast-solutions/ms-go-clover-pos/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)

	callbackPath          = "/payment/pos_clover/authorize"
	connectionTestMessage = "Connection test from POS"
)

type paymentMethodRequest interface {
	GetName() string
	GetUsePaymentTerminal() string
	GetEnvironment() string
	GetMerchantId() string
	GetDeviceId() string
	GetAppId() string
	GetAppSecret() string
}

type listPaymentMethodsRequest interface {
	GetMerchantId() string
	GetUsePaymentTerminal() string
	GetLimit() int32
	GetOffset() int32
}

type paymentMethodRepository interface {
	Create(ctx context.Context, method *entity.PaymentMethod) error
	Update(ctx context.Context, method *entity.PaymentMethod) error
	FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error)
	FindByDeviceID(ctx context.Context, deviceID string) (*entity.PaymentMethod, error)
	FindByMerchantOrApp(ctx context.Context, merchantID, appID string) (*entity.PaymentMethod, error)
	FindCloverByDeviceOrMerchant(ctx context.Context, deviceID, merchantID string) (*entity.PaymentMethod, error)
	List(ctx context.Context, filter repository.PaymentMethodFilter) ([]*entity.PaymentMethod, error)
	Delete(ctx context.Context, id uint64) error
	SetLatestResponse(ctx context.Context, id uint64, payload string, now time.Time) error
	ClearLatestResponse(ctx context.Context, id uint64, now time.Time) error
	GetLatestResponse(ctx context.Context, id uint64) (*string, error)
	UpdateTokens(ctx context.Context, id uint64, accessToken string, refreshToken *string, expiry time.Time, now time.Time) error
	ClearTokens(ctx context.Context, id uint64, now time.Time) error
	SetAuthorizationCode(ctx context.Context, id uint64, code string, now time.Time) error
	SetDeviceID(ctx context.Context, id uint64, deviceID string, now time.Time) error
}

type posConfigRepository interface {
	ListConfigIDs(ctx context.Context, paymentMethodID uint64) ([]uint64, error)
	Link(ctx context.Context, paymentMethodID, posConfigID uint64, now time.Time) error
	Unlink(ctx context.Context, paymentMethodID, posConfigID uint64) error
}

type cloverAccountClient interface {
	AuthorizationURL(environment, appID, merchantID, redirectURL string) string
	ExchangeToken(ctx context.Context, req clover.TokenRequest) (*clover.TokenResponse, error)
	ListDevices(ctx context.Context, target clover.Target) ([]clover.Device, error)
	DisplayMessage(ctx context.Context, target clover.Target, message string) error
}

// PaymentMethodService manages terminal configuration and Clover credentials.
type PaymentMethodService struct {
	methodRepo    paymentMethodRepository
	posConfigRepo posConfigRepository
	client        cloverAccountClient
	cloverCfg     config.CloverConfig
	publicBaseURL string
}

func NewPaymentMethodService(
	methodRepo paymentMethodRepository,
	posConfigRepo posConfigRepository,
	client cloverAccountClient,
	cloverCfg config.CloverConfig,
	publicBaseURL string,
) *PaymentMethodService {
	if cloverCfg.TokenLifetime <= 0 {
		cloverCfg.TokenLifetime = 365 * 24 * time.Hour
	}

	return &PaymentMethodService{
		methodRepo:    methodRepo,
		posConfigRepo: posConfigRepo,
		client:        client,
		cloverCfg:     cloverCfg,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

func (s *PaymentMethodService) CreatePaymentMethod(ctx context.Context, req paymentMethodRequest) (*entity.PaymentMethod, error) {
	now := time.Now().UTC()
	method := &entity.PaymentMethod{CreatedAt: now, UpdatedAt: now}
	if err := applyPaymentMethodRequest(method, req); err != nil {
		return nil, err
	}
	if err := s.ensureDeviceAvailable(ctx, method.DeviceID, 0); err != nil {
		return nil, err
	}

	if err := s.methodRepo.Create(ctx, method); err != nil {
		if errors.Is(err, repository.ErrDeviceAlreadyUsed) {
			return nil, ErrDeviceAlreadyUsed
		}
		return nil, err
	}
	return method, nil
}

func (s *PaymentMethodService) UpdatePaymentMethod(ctx context.Context, id uint64, req paymentMethodRequest) (*entity.PaymentMethod, error) {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}

	existingSecret := method.AppSecret
	if err := applyPaymentMethodRequest(method, req); err != nil {
		return nil, err
	}
	if method.AppSecret == nil {
		method.AppSecret = existingSecret
	}
	if err := s.ensureDeviceAvailable(ctx, method.DeviceID, method.ID); err != nil {
		return nil, err
	}
	method.UpdatedAt = time.Now().UTC()

	if err := s.methodRepo.Update(ctx, method); err != nil {
		switch {
		case errors.Is(err, repository.ErrDeviceAlreadyUsed):
			return nil, ErrDeviceAlreadyUsed
		case errors.Is(err, repository.ErrPaymentMethodNotFound):
			return nil, ErrPaymentMethodNotFound
		default:
			return nil, err
		}
	}
	return method, nil
}

func (s *PaymentMethodService) GetPaymentMethod(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	method, err := s.methodRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}
	return method, nil
}

func (s *PaymentMethodService) ListPaymentMethods(ctx context.Context, req listPaymentMethodsRequest) ([]*entity.PaymentMethod, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	return s.methodRepo.List(ctx, repository.PaymentMethodFilter{
		MerchantID: strings.TrimSpace(req.GetMerchantId()),
		Terminal:   strings.TrimSpace(req.GetUsePaymentTerminal()),
		Limit:      limit,
		Offset:     req.GetOffset(),
	})
}

func (s *PaymentMethodService) DeletePaymentMethod(ctx context.Context, id uint64) error {
	if err := s.methodRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return ErrPaymentMethodNotFound
		}
		return err
	}
	return nil
}

// RedirectURL is the OAuth callback Clover sends merchants back to.
func (s *PaymentMethodService) RedirectURL() string {
	return s.publicBaseURL + callbackPath
}

func (s *PaymentMethodService) AuthorizationURL(ctx context.Context, id uint64) (string, error) {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return "", err
	}
	if derefString(method.AppID) == "" {
		return "", fmt.Errorf("%w: app id is not configured", ErrConfiguration)
	}

	return s.client.AuthorizationURL(method.Environment, derefString(method.AppID), derefString(method.MerchantID), s.RedirectURL()), nil
}

func (s *PaymentMethodService) GenerateAccessToken(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if derefString(method.AuthorizationCode) == "" {
		return nil, fmt.Errorf("%w: authorization code is missing, complete the Clover authorization first", ErrConfiguration)
	}
	if derefString(method.AppID) == "" || derefString(method.AppSecret) == "" {
		return nil, fmt.Errorf("%w: app id and app secret are required", ErrConfiguration)
	}

	token, err := s.client.ExchangeToken(ctx, clover.TokenRequest{
		Environment: method.Environment,
		AppID:       derefString(method.AppID),
		AppSecret:   derefString(method.AppSecret),
		Code:        derefString(method.AuthorizationCode),
	})
	if err != nil {
		return nil, cloverRequestError("generate access token", err)
	}

	now := time.Now().UTC()
	expiry := now.Add(s.cloverCfg.TokenLifetime)
	refreshToken := normalizeOptionalString(token.RefreshToken)
	if err := s.methodRepo.UpdateTokens(ctx, method.ID, token.AccessToken, refreshToken, expiry, now); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}

	method.AccessToken = &token.AccessToken
	method.RefreshToken = refreshToken
	method.TokenExpiry = &expiry
	method.UpdatedAt = now
	return method, nil
}

// FetchDevice stores the serial of the first device Clover lists for the merchant.
func (s *PaymentMethodService) FetchDevice(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if !method.HasAccessToken() {
		return nil, fmt.Errorf("%w: generate an access token first", ErrConfiguration)
	}
	if derefString(method.MerchantID) == "" {
		return nil, fmt.Errorf("%w: merchant id is not configured", ErrConfiguration)
	}

	devices, err := s.client.ListDevices(ctx, targetFor(method))
	if err != nil {
		return nil, cloverRequestError("fetch devices", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	serial := strings.TrimSpace(devices[0].Serial)
	if serial == "" {
		return nil, fmt.Errorf("%w: first device has no serial", ErrCloverRequest)
	}
	if err := s.ensureDeviceAvailable(ctx, &serial, method.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.methodRepo.SetDeviceID(ctx, method.ID, serial, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrDeviceAlreadyUsed):
			return nil, ErrDeviceAlreadyUsed
		case errors.Is(err, repository.ErrPaymentMethodNotFound):
			return nil, ErrPaymentMethodNotFound
		default:
			return nil, err
		}
	}

	method.DeviceID = &serial
	method.UpdatedAt = now
	return method, nil
}

func (s *PaymentMethodService) RevokeToken(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.methodRepo.ClearTokens(ctx, method.ID, now); err != nil {
		if errors.Is(err, repository.ErrPaymentMethodNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}

	method.AccessToken = nil
	method.RefreshToken = nil
	method.TokenExpiry = nil
	method.AuthorizationCode = nil
	method.UpdatedAt = now
	return method, nil
}

func (s *PaymentMethodService) TestConnection(ctx context.Context, id uint64) error {
	method, err := s.GetPaymentMethod(ctx, id)
	if err != nil {
		return err
	}
	if !method.HasAccessToken() {
		return fmt.Errorf("%w: generate an access token first", ErrConfiguration)
	}
	if derefString(method.DeviceID) == "" {
		return fmt.Errorf("%w: device serial number is not configured", ErrConfiguration)
	}

	if err := s.client.DisplayMessage(ctx, targetFor(method), connectionTestMessage); err != nil {
		return cloverRequestError("connection test", err)
	}
	return nil
}

func (s *PaymentMethodService) LinkPosConfig(ctx context.Context, id, posConfigID uint64) error {
	if posConfigID == 0 {
		return fmt.Errorf("%w: pos config id is required", ErrInvalidRequest)
	}
	if _, err := s.GetPaymentMethod(ctx, id); err != nil {
		return err
	}
	return s.posConfigRepo.Link(ctx, id, posConfigID, time.Now().UTC())
}

func (s *PaymentMethodService) UnlinkPosConfig(ctx context.Context, id, posConfigID uint64) error {
	if _, err := s.GetPaymentMethod(ctx, id); err != nil {
		return err
	}
	return s.posConfigRepo.Unlink(ctx, id, posConfigID)
}

func (s *PaymentMethodService) ListPosConfigs(ctx context.Context, id uint64) ([]uint64, error) {
	if _, err := s.GetPaymentMethod(ctx, id); err != nil {
		return nil, err
	}
	return s.posConfigRepo.ListConfigIDs(ctx, id)
}

func (s *PaymentMethodService) ensureDeviceAvailable(ctx context.Context, deviceID *string, selfID uint64) error {
	if deviceID == nil || *deviceID == "" {
		return nil
	}

	existing, err := s.methodRepo.FindByDeviceID(ctx, *deviceID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: device %s is already used by payment method %q", ErrDeviceAlreadyUsed, *deviceID, existing.Name)
	}
	return nil
}

func applyPaymentMethodRequest(method *entity.PaymentMethod, req paymentMethodRequest) error {
	name := strings.TrimSpace(req.GetName())
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	terminal := strings.ToLower(strings.TrimSpace(req.GetUsePaymentTerminal()))
	if terminal == "" {
		terminal = entity.TerminalClover
	}

	environment := strings.ToLower(strings.TrimSpace(req.GetEnvironment()))
	if environment == "" {
		environment = entity.EnvironmentSandbox
	}
	if !entity.ValidEnvironment(environment) {
		return fmt.Errorf("%w: environment must be sandbox or production", ErrInvalidRequest)
	}

	method.Name = name
	method.UsePaymentTerminal = terminal
	method.Environment = environment
	method.MerchantID = normalizeOptionalString(req.GetMerchantId())
	method.DeviceID = normalizeOptionalString(req.GetDeviceId())
	method.AppID = normalizeOptionalString(req.GetAppId())
	method.AppSecret = normalizeOptionalString(req.GetAppSecret())
	return nil
}

func cloverRequestError(action string, err error) error {
	var apiErr *clover.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: status=%d response=%s", ErrCloverRequest, action, apiErr.StatusCode, apiErr.Body)
	}
	return fmt.Errorf("%w: %s: %v", ErrCloverRequest, action, err)
}

func targetFor(method *entity.PaymentMethod) clover.Target {
	return clover.Target{
		Environment: method.Environment,
		MerchantID:  derefString(method.MerchantID),
		DeviceID:    derefString(method.DeviceID),
		AccessToken: derefString(method.AccessToken),
	}
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
