package controller

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/notifier"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/config"
)

type controllerMethodRepo struct {
	methods map[uint64]*entity.PaymentMethod
	latest  map[uint64]string
	nextID  uint64
}

func newControllerMethodRepo(methods ...*entity.PaymentMethod) *controllerMethodRepo {
	r := &controllerMethodRepo{methods: map[uint64]*entity.PaymentMethod{}, latest: map[uint64]string{}, nextID: 100}
	for _, m := range methods {
		copyItem := *m
		r.methods[m.ID] = &copyItem
	}
	return r
}

func (r *controllerMethodRepo) get(id uint64) *entity.PaymentMethod {
	item, ok := r.methods[id]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (r *controllerMethodRepo) Create(_ context.Context, method *entity.PaymentMethod) error {
	method.ID = r.nextID
	r.nextID++
	copyItem := *method
	r.methods[method.ID] = &copyItem
	return nil
}

func (r *controllerMethodRepo) Update(_ context.Context, method *entity.PaymentMethod) error {
	if _, ok := r.methods[method.ID]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	copyItem := *method
	r.methods[method.ID] = &copyItem
	return nil
}

func (r *controllerMethodRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentMethod, error) {
	return r.get(id), nil
}

func (r *controllerMethodRepo) FindByDeviceID(_ context.Context, deviceID string) (*entity.PaymentMethod, error) {
	for id, item := range r.methods {
		if item.DeviceID != nil && *item.DeviceID == deviceID {
			return r.get(id), nil
		}
	}
	return nil, nil
}

func (r *controllerMethodRepo) FindByMerchantOrApp(_ context.Context, merchantID, appID string) (*entity.PaymentMethod, error) {
	for id, item := range r.methods {
		if merchantID != "" && (item.MerchantID == nil || *item.MerchantID != merchantID) {
			continue
		}
		if appID != "" && (item.AppID == nil || *item.AppID != appID) {
			continue
		}
		return r.get(id), nil
	}
	return nil, nil
}

func (r *controllerMethodRepo) FindCloverByDeviceOrMerchant(_ context.Context, deviceID, merchantID string) (*entity.PaymentMethod, error) {
	for id, item := range r.methods {
		if !item.IsClover() {
			continue
		}
		if deviceID != "" && (item.DeviceID == nil || *item.DeviceID != deviceID) {
			continue
		}
		if merchantID != "" && (item.MerchantID == nil || *item.MerchantID != merchantID) {
			continue
		}
		return r.get(id), nil
	}
	return nil, nil
}

func (r *controllerMethodRepo) List(context.Context, repository.PaymentMethodFilter) ([]*entity.PaymentMethod, error) {
	items := make([]*entity.PaymentMethod, 0, len(r.methods))
	for id := range r.methods {
		items = append(items, r.get(id))
	}
	return items, nil
}

func (r *controllerMethodRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := r.methods[id]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	delete(r.methods, id)
	return nil
}

func (r *controllerMethodRepo) SetLatestResponse(_ context.Context, id uint64, payload string, _ time.Time) error {
	r.latest[id] = payload
	return nil
}

func (r *controllerMethodRepo) ClearLatestResponse(_ context.Context, id uint64, _ time.Time) error {
	delete(r.latest, id)
	return nil
}

func (r *controllerMethodRepo) GetLatestResponse(_ context.Context, id uint64) (*string, error) {
	if _, ok := r.methods[id]; !ok {
		return nil, repository.ErrPaymentMethodNotFound
	}
	payload, ok := r.latest[id]
	if !ok {
		return nil, nil
	}
	return &payload, nil
}

func (r *controllerMethodRepo) UpdateTokens(_ context.Context, id uint64, accessToken string, refreshToken *string, expiry time.Time, _ time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AccessToken = &accessToken
	item.RefreshToken = refreshToken
	item.TokenExpiry = &expiry
	return nil
}

func (r *controllerMethodRepo) ClearTokens(_ context.Context, id uint64, _ time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AccessToken, item.RefreshToken, item.TokenExpiry, item.AuthorizationCode = nil, nil, nil, nil
	return nil
}

func (r *controllerMethodRepo) SetAuthorizationCode(_ context.Context, id uint64, code string, _ time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AuthorizationCode = &code
	return nil
}

func (r *controllerMethodRepo) SetDeviceID(_ context.Context, id uint64, deviceID string, _ time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.DeviceID = &deviceID
	return nil
}

type controllerPosConfigRepo struct {
	links map[uint64][]uint64
}

func (r *controllerPosConfigRepo) ListConfigIDs(_ context.Context, paymentMethodID uint64) ([]uint64, error) {
	return r.links[paymentMethodID], nil
}

func (r *controllerPosConfigRepo) Link(_ context.Context, paymentMethodID, posConfigID uint64, _ time.Time) error {
	if r.links == nil {
		r.links = map[uint64][]uint64{}
	}
	r.links[paymentMethodID] = append(r.links[paymentMethodID], posConfigID)
	return nil
}

func (r *controllerPosConfigRepo) Unlink(context.Context, uint64, uint64) error {
	return nil
}

type controllerLogRepo struct {
	logs map[string]*entity.TransactionLog
}

func (r *controllerLogRepo) Create(_ context.Context, log *entity.TransactionLog) error {
	if r.logs == nil {
		r.logs = map[string]*entity.TransactionLog{}
	}
	log.ID = uint64(len(r.logs) + 1)
	copyItem := *log
	r.logs[log.Reference] = &copyItem
	return nil
}

func (r *controllerLogRepo) Complete(_ context.Context, log *entity.TransactionLog) error {
	copyItem := *log
	r.logs[log.Reference] = &copyItem
	return nil
}

func (r *controllerLogRepo) MarkTimeout(context.Context, *entity.TransactionLog) (bool, error) {
	return false, nil
}

func (r *controllerLogRepo) FindByReference(_ context.Context, reference string) (*entity.TransactionLog, error) {
	return r.logs[reference], nil
}

func (r *controllerLogRepo) FindByExternalPaymentID(context.Context, uint64, string) (*entity.TransactionLog, error) {
	return nil, nil
}

func (r *controllerLogRepo) FindLatestInFlightByTypes(context.Context, uint64, []string, time.Time) (*entity.TransactionLog, error) {
	return nil, nil
}

func (r *controllerLogRepo) List(context.Context, repository.TransactionLogFilter) ([]*entity.TransactionLog, error) {
	items := make([]*entity.TransactionLog, 0, len(r.logs))
	for _, item := range r.logs {
		items = append(items, item)
	}
	return items, nil
}

func (r *controllerLogRepo) ListStalePending(context.Context, time.Time, int32) ([]*entity.TransactionLog, error) {
	return nil, nil
}

type controllerPaymentRepo struct {
	payments map[uint64]*entity.CloverPayment
}

func (r *controllerPaymentRepo) Create(_ context.Context, payment *entity.CloverPayment) error {
	if r.payments == nil {
		r.payments = map[uint64]*entity.CloverPayment{}
	}
	if _, ok := r.payments[payment.PosPaymentID]; ok {
		return repository.ErrPaymentAlreadyRecorded
	}
	copyItem := *payment
	r.payments[payment.PosPaymentID] = &copyItem
	return nil
}

func (r *controllerPaymentRepo) FindByPosPaymentID(_ context.Context, posPaymentID uint64) (*entity.CloverPayment, error) {
	return r.payments[posPaymentID], nil
}

type controllerEventRepo struct {
	events []*entity.TerminalEvent
}

func (r *controllerEventRepo) Create(_ context.Context, event *entity.TerminalEvent) error {
	event.ID = uint64(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}

func (r *controllerEventRepo) ListByReference(context.Context, string) ([]*entity.TerminalEvent, error) {
	return nil, nil
}

func (r *controllerEventRepo) FindFirstByReference(context.Context, string) (*entity.TerminalEvent, error) {
	return nil, nil
}

type controllerDeviceClient struct {
	response *clover.Response
	err      error
}

func (c *controllerDeviceClient) Execute(context.Context, clover.Target, clover.Operation, []byte) (*clover.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

type controllerAccountClient struct {
	devices []clover.Device
}

func (c *controllerAccountClient) AuthorizationURL(environment, appID, merchantID, redirectURL string) string {
	return "https://clover.test/oauth/authorize?client_id=" + appID + "&redirect_uri=" + redirectURL
}

func (c *controllerAccountClient) ExchangeToken(context.Context, clover.TokenRequest) (*clover.TokenResponse, error) {
	return &clover.TokenResponse{AccessToken: "token-2"}, nil
}

func (c *controllerAccountClient) ListDevices(context.Context, clover.Target) ([]clover.Device, error) {
	return c.devices, nil
}

func (c *controllerAccountClient) DisplayMessage(context.Context, clover.Target, string) error {
	return nil
}

type controllerNotifier struct{}

func (controllerNotifier) NotifyPosConfig(context.Context, notifier.PosConfigMessage) error {
	return nil
}

func (controllerNotifier) PublishCompletion(context.Context, string, []byte) error {
	return nil
}

func (controllerNotifier) AwaitCompletion(ctx context.Context, _ string, check func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	payload, err := check(ctx)
	if err != nil || payload != nil {
		return payload, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type controllerLocker struct {
	busy bool
}

func (l *controllerLocker) Acquire(context.Context, string, string, time.Duration) (bool, error) {
	return !l.busy, nil
}

func (l *controllerLocker) Release(context.Context, string, string) (bool, error) {
	return true, nil
}

func (l *controllerLocker) ForceRelease(context.Context, string) error {
	return nil
}

func (l *controllerLocker) Owner(context.Context, string) (string, error) {
	if l.busy {
		return "API-sale-held", nil
	}
	return "", nil
}

type controllerFixture struct {
	methods  *controllerMethodRepo
	logs     *controllerLogRepo
	payments *controllerPaymentRepo
	events   *controllerEventRepo
	client   *controllerDeviceClient
	locker   *controllerLocker

	terminal     *TerminalController
	notification *NotificationController
	oauth        *OAuthController
	admin        *AdminController
}

func controllerMethod() *entity.PaymentMethod {
	merchant := "MERCHANT1"
	device := "C045UQ00000001"
	app := "APP1"
	secret := "app-secret"
	token := "token-1"
	now := time.Now().UTC()
	return &entity.PaymentMethod{
		ID:                 1,
		Name:               "Front desk",
		UsePaymentTerminal: entity.TerminalClover,
		Environment:        entity.EnvironmentSandbox,
		MerchantID:         &merchant,
		DeviceID:           &device,
		AppID:              &app,
		AppSecret:          &secret,
		AccessToken:        &token,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func newControllerFixture(methods ...*entity.PaymentMethod) *controllerFixture {
	f := &controllerFixture{
		methods:  newControllerMethodRepo(methods...),
		logs:     &controllerLogRepo{},
		payments: &controllerPaymentRepo{},
		events:   &controllerEventRepo{},
		client:   &controllerDeviceClient{response: &clover.Response{StatusCode: 200, Body: []byte(`{"payment":{"id":"P1"}}`)}},
		locker:   &controllerLocker{},
	}
	posConfigs := &controllerPosConfigRepo{}

	terminalService := service.NewTerminalService(
		f.methods,
		posConfigs,
		f.logs,
		f.payments,
		f.events,
		f.client,
		controllerNotifier{},
		f.locker,
		config.CloverConfig{PaymentTimeout: time.Second},
		config.JobsConfig{},
	)
	methodService := service.NewPaymentMethodService(f.methods, posConfigs, &controllerAccountClient{}, config.CloverConfig{}, "https://pos.example.com")

	f.terminal = NewTerminalController(terminalService)
	f.notification = NewNotificationController(terminalService)
	f.oauth = NewOAuthController(service.NewOAuthService(f.methods))
	f.admin = NewAdminController(methodService, terminalService)
	return f
}
