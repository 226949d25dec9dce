package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/notifier"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
	"github.com/vibast-solutions/ms-go-clover-pos/config"
)

type fakeMethodRepo struct {
	methods map[uint64]*entity.PaymentMethod
	latest  map[uint64]*string
	nextID  uint64
}

func newFakeMethodRepo(methods ...*entity.PaymentMethod) *fakeMethodRepo {
	r := &fakeMethodRepo{
		methods: map[uint64]*entity.PaymentMethod{},
		latest:  map[uint64]*string{},
		nextID:  1,
	}
	for _, m := range methods {
		copyItem := *m
		r.methods[m.ID] = &copyItem
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
	}
	return r
}

func (r *fakeMethodRepo) deviceTaken(deviceID *string, selfID uint64) bool {
	if deviceID == nil || *deviceID == "" {
		return false
	}
	for _, item := range r.methods {
		if item.ID != selfID && item.DeviceID != nil && *item.DeviceID == *deviceID {
			return true
		}
	}
	return false
}

func (r *fakeMethodRepo) Create(_ context.Context, method *entity.PaymentMethod) error {
	if r.deviceTaken(method.DeviceID, 0) {
		return repository.ErrDeviceAlreadyUsed
	}
	method.ID = r.nextID
	r.nextID++
	copyItem := *method
	r.methods[method.ID] = &copyItem
	return nil
}

func (r *fakeMethodRepo) Update(_ context.Context, method *entity.PaymentMethod) error {
	if _, ok := r.methods[method.ID]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	if r.deviceTaken(method.DeviceID, method.ID) {
		return repository.ErrDeviceAlreadyUsed
	}
	copyItem := *method
	r.methods[method.ID] = &copyItem
	return nil
}

func (r *fakeMethodRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentMethod, error) {
	item, ok := r.methods[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeMethodRepo) FindByDeviceID(_ context.Context, deviceID string) (*entity.PaymentMethod, error) {
	for _, item := range r.methods {
		if derefString(item.DeviceID) == deviceID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *fakeMethodRepo) FindByMerchantOrApp(_ context.Context, merchantID, appID string) (*entity.PaymentMethod, error) {
	if merchantID == "" && appID == "" {
		return nil, nil
	}
	for _, item := range r.sorted() {
		if merchantID != "" && derefString(item.MerchantID) != merchantID {
			continue
		}
		if appID != "" && derefString(item.AppID) != appID {
			continue
		}
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

func (r *fakeMethodRepo) FindCloverByDeviceOrMerchant(_ context.Context, deviceID, merchantID string) (*entity.PaymentMethod, error) {
	for _, item := range r.sorted() {
		if item.UsePaymentTerminal != entity.TerminalClover {
			continue
		}
		if deviceID != "" && derefString(item.DeviceID) != deviceID {
			continue
		}
		if merchantID != "" && derefString(item.MerchantID) != merchantID {
			continue
		}
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

func (r *fakeMethodRepo) List(_ context.Context, filter repository.PaymentMethodFilter) ([]*entity.PaymentMethod, error) {
	items := make([]*entity.PaymentMethod, 0)
	for _, item := range r.sorted() {
		if filter.MerchantID != "" && derefString(item.MerchantID) != filter.MerchantID {
			continue
		}
		if filter.Terminal != "" && item.UsePaymentTerminal != filter.Terminal {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	return items, nil
}

func (r *fakeMethodRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := r.methods[id]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	delete(r.methods, id)
	return nil
}

func (r *fakeMethodRepo) SetLatestResponse(_ context.Context, id uint64, payload string, _ time.Time) error {
	if _, ok := r.methods[id]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	r.latest[id] = &payload
	return nil
}

func (r *fakeMethodRepo) ClearLatestResponse(_ context.Context, id uint64, _ time.Time) error {
	if _, ok := r.methods[id]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	delete(r.latest, id)
	return nil
}

func (r *fakeMethodRepo) GetLatestResponse(_ context.Context, id uint64) (*string, error) {
	if _, ok := r.methods[id]; !ok {
		return nil, repository.ErrPaymentMethodNotFound
	}
	return r.latest[id], nil
}

func (r *fakeMethodRepo) UpdateTokens(_ context.Context, id uint64, accessToken string, refreshToken *string, expiry time.Time, now time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AccessToken = &accessToken
	item.RefreshToken = refreshToken
	item.TokenExpiry = &expiry
	item.UpdatedAt = now
	return nil
}

func (r *fakeMethodRepo) ClearTokens(_ context.Context, id uint64, now time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AccessToken = nil
	item.RefreshToken = nil
	item.TokenExpiry = nil
	item.AuthorizationCode = nil
	item.UpdatedAt = now
	return nil
}

func (r *fakeMethodRepo) SetAuthorizationCode(_ context.Context, id uint64, code string, now time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	item.AuthorizationCode = &code
	item.UpdatedAt = now
	return nil
}

func (r *fakeMethodRepo) SetDeviceID(_ context.Context, id uint64, deviceID string, now time.Time) error {
	item, ok := r.methods[id]
	if !ok {
		return repository.ErrPaymentMethodNotFound
	}
	if r.deviceTaken(&deviceID, id) {
		return repository.ErrDeviceAlreadyUsed
	}
	item.DeviceID = &deviceID
	item.UpdatedAt = now
	return nil
}

func (r *fakeMethodRepo) sorted() []*entity.PaymentMethod {
	items := make([]*entity.PaymentMethod, 0, len(r.methods))
	for _, item := range r.methods {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

type fakePosConfigRepo struct {
	links   map[uint64][]uint64
	listErr error
}

func (r *fakePosConfigRepo) ListConfigIDs(_ context.Context, paymentMethodID uint64) ([]uint64, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]uint64(nil), r.links[paymentMethodID]...), nil
}

func (r *fakePosConfigRepo) Link(_ context.Context, paymentMethodID, posConfigID uint64, _ time.Time) error {
	if r.links == nil {
		r.links = map[uint64][]uint64{}
	}
	for _, id := range r.links[paymentMethodID] {
		if id == posConfigID {
			return nil
		}
	}
	r.links[paymentMethodID] = append(r.links[paymentMethodID], posConfigID)
	return nil
}

func (r *fakePosConfigRepo) Unlink(_ context.Context, paymentMethodID, posConfigID uint64) error {
	ids := r.links[paymentMethodID]
	for i, id := range ids {
		if id == posConfigID {
			r.links[paymentMethodID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeLogRepo struct {
	mu       sync.Mutex
	logs     map[uint64]*entity.TransactionLog
	nextID   uint64
	creates  int
	complete int
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{logs: map[uint64]*entity.TransactionLog{}, nextID: 1}
}

func (r *fakeLogRepo) Create(_ context.Context, log *entity.TransactionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.logs {
		if item.Reference == log.Reference {
			return repository.ErrTransactionLogAlreadyExists
		}
	}
	log.ID = r.nextID
	r.nextID++
	r.creates++
	copyItem := *log
	r.logs[log.ID] = &copyItem
	return nil
}

func (r *fakeLogRepo) Complete(_ context.Context, log *entity.TransactionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[log.ID]; !ok {
		return repository.ErrTransactionLogNotFound
	}
	r.complete++
	copyItem := *log
	r.logs[log.ID] = &copyItem
	return nil
}

func (r *fakeLogRepo) MarkTimeout(_ context.Context, log *entity.TransactionLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.logs[log.ID]
	if !ok || item.Status != entity.TransactionStatusPending {
		return false, nil
	}
	item.Status = entity.TransactionStatusTimeout
	item.ErrorMessage = log.ErrorMessage
	item.ResponseTimestamp = log.ResponseTimestamp
	item.DurationSeconds = log.DurationSeconds
	item.UpdatedAt = log.UpdatedAt
	return true, nil
}

func (r *fakeLogRepo) FindByReference(_ context.Context, reference string) (*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.logs {
		if item.Reference == reference {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *fakeLogRepo) FindByExternalPaymentID(_ context.Context, paymentMethodID uint64, externalPaymentID string) (*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.logs {
		if item.PaymentMethodID == paymentMethodID && derefString(item.ExternalPaymentID) == externalPaymentID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *fakeLogRepo) FindLatestInFlightByTypes(_ context.Context, paymentMethodID uint64, kinds []string, since time.Time) (*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.TransactionLog
	for _, item := range r.logs {
		if item.PaymentMethodID != paymentMethodID || item.RequestTimestamp.Before(since) {
			continue
		}
		if !entity.IsInFlightTransactionStatus(item.Status) {
			continue
		}
		matched := false
		for _, kind := range kinds {
			if item.Type == kind {
				matched = true
			}
		}
		if !matched {
			continue
		}
		if latest == nil || item.RequestTimestamp.After(latest.RequestTimestamp) || (item.RequestTimestamp.Equal(latest.RequestTimestamp) && item.ID > latest.ID) {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyItem := *latest
	return &copyItem, nil
}

func (r *fakeLogRepo) List(_ context.Context, filter repository.TransactionLogFilter) ([]*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.TransactionLog, 0)
	for _, item := range r.logs {
		if filter.PaymentMethodID != 0 && item.PaymentMethodID != filter.PaymentMethodID {
			continue
		}
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *fakeLogRepo) ListStalePending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.TransactionLog, 0)
	for _, item := range r.logs {
		if item.Status == entity.TransactionStatusPending && !item.RequestTimestamp.After(cutoff) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeLogRepo) only() *entity.TransactionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.logs {
		copyItem := *item
		return &copyItem
	}
	return nil
}

type fakePaymentRepo struct {
	payments map[uint64]*entity.CloverPayment
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *entity.CloverPayment) error {
	if r.payments == nil {
		r.payments = map[uint64]*entity.CloverPayment{}
	}
	if _, ok := r.payments[payment.PosPaymentID]; ok {
		return repository.ErrPaymentAlreadyRecorded
	}
	payment.ID = uint64(len(r.payments) + 1)
	copyItem := *payment
	r.payments[payment.PosPaymentID] = &copyItem
	return nil
}

func (r *fakePaymentRepo) FindByPosPaymentID(_ context.Context, posPaymentID uint64) (*entity.CloverPayment, error) {
	item, ok := r.payments[posPaymentID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*entity.TerminalEvent
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.TerminalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uint64(len(r.events) + 1)
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *fakeEventRepo) ListByReference(_ context.Context, reference string) ([]*entity.TerminalEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.TerminalEvent, 0)
	for _, item := range r.events {
		if derefString(item.Reference) == reference {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	return items, nil
}

func (r *fakeEventRepo) FindFirstByReference(ctx context.Context, reference string) (*entity.TerminalEvent, error) {
	items, _ := r.ListByReference(ctx, reference)
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

type fakeDeviceClient struct {
	mu       sync.Mutex
	response *clover.Response
	err      error
	calls    []fakeDeviceCall
}

type fakeDeviceCall struct {
	Target  clover.Target
	Op      clover.Operation
	Payload []byte
}

func (c *fakeDeviceClient) Execute(_ context.Context, target clover.Target, op clover.Operation, payload []byte) (*clover.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fakeDeviceCall{Target: target, Op: op, Payload: append([]byte(nil), payload...)})
	if c.err != nil {
		return nil, c.err
	}
	if c.response != nil {
		return c.response, nil
	}
	return &clover.Response{StatusCode: 200}, nil
}

type fakeAccountClient struct {
	token      *clover.TokenResponse
	tokenErr   error
	devices    []clover.Device
	devicesErr error
	displayErr error
	tokenReq   clover.TokenRequest
	displayed  []string
}

func (c *fakeAccountClient) AuthorizationURL(environment, appID, merchantID, redirectURL string) string {
	return "https://" + environment + ".clover.test/oauth/authorize?client_id=" + appID + "&merchant_id=" + merchantID + "&redirect_uri=" + redirectURL
}

func (c *fakeAccountClient) ExchangeToken(_ context.Context, req clover.TokenRequest) (*clover.TokenResponse, error) {
	c.tokenReq = req
	if c.tokenErr != nil {
		return nil, c.tokenErr
	}
	return c.token, nil
}

func (c *fakeAccountClient) ListDevices(context.Context, clover.Target) ([]clover.Device, error) {
	return c.devices, c.devicesErr
}

func (c *fakeAccountClient) DisplayMessage(_ context.Context, _ clover.Target, message string) error {
	c.displayed = append(c.displayed, message)
	return c.displayErr
}

type fakeNotifier struct {
	mu          sync.Mutex
	notified    []notifier.PosConfigMessage
	failFor     map[uint64]error
	completions map[string][]byte
	awaitFn     func(ctx context.Context, reference string, check func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

func (n *fakeNotifier) NotifyPosConfig(_ context.Context, message notifier.PosConfigMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, message)
	if err, ok := n.failFor[message.PosConfigID]; ok {
		return err
	}
	return nil
}

func (n *fakeNotifier) PublishCompletion(_ context.Context, reference string, payload []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.completions == nil {
		n.completions = map[string][]byte{}
	}
	n.completions[reference] = payload
	return nil
}

func (n *fakeNotifier) AwaitCompletion(ctx context.Context, reference string, check func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if n.awaitFn != nil {
		return n.awaitFn(ctx, reference, check)
	}
	payload, err := check(ctx)
	if err != nil || payload != nil {
		return payload, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeLocker struct {
	mu       sync.Mutex
	owners   map[string]string
	released []string
	forced   []string
}

func (l *fakeLocker) Acquire(_ context.Context, deviceID, owner string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners == nil {
		l.owners = map[string]string{}
	}
	if _, held := l.owners[deviceID]; held {
		return false, nil
	}
	l.owners[deviceID] = owner
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, deviceID, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[deviceID] != owner {
		return false, nil
	}
	delete(l.owners, deviceID)
	l.released = append(l.released, owner)
	return true, nil
}

func (l *fakeLocker) ForceRelease(_ context.Context, deviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.owners, deviceID)
	l.forced = append(l.forced, deviceID)
	return nil
}

func (l *fakeLocker) Owner(_ context.Context, deviceID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owners[deviceID], nil
}

func (l *fakeLocker) held(deviceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.owners[deviceID]
	return ok
}

type terminalFixture struct {
	methods  *fakeMethodRepo
	configs  *fakePosConfigRepo
	logs     *fakeLogRepo
	payments *fakePaymentRepo
	events   *fakeEventRepo
	client   *fakeDeviceClient
	notifier *fakeNotifier
	locker   *fakeLocker
	svc      *TerminalService
}

func strPtr(v string) *string {
	return &v
}

func configuredMethod() *entity.PaymentMethod {
	now := time.Now().UTC()
	return &entity.PaymentMethod{
		ID:                 1,
		Name:               "Front desk",
		UsePaymentTerminal: entity.TerminalClover,
		Environment:        entity.EnvironmentSandbox,
		MerchantID:         strPtr("MERCHANT1"),
		DeviceID:           strPtr("C045UQ00000001"),
		AppID:              strPtr("APP1"),
		AppSecret:          strPtr("secret"),
		AccessToken:        strPtr("token-1"),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func newTerminalFixture(methods ...*entity.PaymentMethod) *terminalFixture {
	f := &terminalFixture{
		methods:  newFakeMethodRepo(methods...),
		configs:  &fakePosConfigRepo{links: map[uint64][]uint64{}},
		logs:     newFakeLogRepo(),
		payments: &fakePaymentRepo{},
		events:   &fakeEventRepo{},
		client:   &fakeDeviceClient{},
		notifier: &fakeNotifier{},
		locker:   &fakeLocker{},
	}
	f.svc = NewTerminalService(
		f.methods,
		f.configs,
		f.logs,
		f.payments,
		f.events,
		f.client,
		f.notifier,
		f.locker,
		config.CloverConfig{PaymentTimeout: 2 * time.Second, DefaultTimeout: time.Second, DeviceLockTTL: 3 * time.Second},
		config.JobsConfig{PendingTimeout: time.Minute, BatchSize: 10},
	)
	return f
}
