package clover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
	"github.com/vibast-solutions/ms-go-clover-pos/app/factory"
)

const (
	defaultTimeout = 30 * time.Second
	paymentTimeout = 120 * time.Second
	previewLength  = 500
)

type Config struct {
	SandboxAPIURL     string
	ProductionAPIURL  string
	SandboxAuthURL    string
	ProductionAuthURL string
	DefaultTimeout    time.Duration
	PaymentTimeout    time.Duration
}

// Target identifies the merchant device a call is addressed to.
type Target struct {
	Environment string
	MerchantID  string
	DeviceID    string
	AccessToken string
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clover api returned status=%d body=%s", e.StatusCode, e.Body)
}

type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

type Client struct {
	cfg    Config
	client *http.Client
	logger logrus.FieldLogger
}

func NewClient(cfg Config) *Client {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = paymentTimeout
	}
	if strings.TrimSpace(cfg.SandboxAPIURL) == "" {
		cfg.SandboxAPIURL = "https://sandbox.dev.clover.com"
	}
	if strings.TrimSpace(cfg.ProductionAPIURL) == "" {
		cfg.ProductionAPIURL = "https://api.clover.com"
	}
	if strings.TrimSpace(cfg.SandboxAuthURL) == "" {
		cfg.SandboxAuthURL = cfg.SandboxAPIURL
	}
	if strings.TrimSpace(cfg.ProductionAuthURL) == "" {
		cfg.ProductionAuthURL = "https://www.clover.com"
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: factory.NewModuleLogger("clover-client"),
	}
}

func (c *Client) APIBaseURL(environment string) string {
	if environment == entity.EnvironmentSandbox {
		return strings.TrimRight(c.cfg.SandboxAPIURL, "/")
	}
	return strings.TrimRight(c.cfg.ProductionAPIURL, "/")
}

func (c *Client) AuthBaseURL(environment string) string {
	if environment == entity.EnvironmentSandbox {
		return strings.TrimRight(c.cfg.SandboxAuthURL, "/")
	}
	return strings.TrimRight(c.cfg.ProductionAuthURL, "/")
}

func (c *Client) TimeoutFor(op Operation) time.Duration {
	if op.IsPayment() {
		return c.cfg.PaymentTimeout
	}
	return c.cfg.DefaultTimeout
}

// Execute performs a proxied device operation. Any HTTP status is returned as a Response;
// only transport failures are returned as errors.
func (c *Client) Execute(ctx context.Context, target Target, op Operation, payload []byte) (*Response, error) {
	endpoint := c.APIBaseURL(target.Environment) + op.Path(target.MerchantID, target.DeviceID)

	var body []byte
	if op.SendsBody() {
		body = payload
	}

	return c.do(ctx, op.String(), op.Method(), endpoint, target.AccessToken, body, c.TimeoutFor(op))
}

func (c *Client) do(
	ctx context.Context,
	name string,
	method string,
	endpoint string,
	accessToken string,
	body []byte,
	timeout time.Duration,
) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	l := c.logger.WithField("operation", name).WithField("url", redactURL(endpoint))
	l.WithField("payload_preview", preview(body)).Info("Clover API request")

	resp, err := c.client.Do(req)
	if err != nil {
		l.WithError(err).Warn("Clover API request failed")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		l.WithError(err).Warn("Clover API response read failed")
		return nil, err
	}

	l.WithField("status", resp.StatusCode).WithField("body_preview", preview(respBody)).Info("Clover API response")

	return &Response{StatusCode: resp.StatusCode, Body: respBody, URL: endpoint}, nil
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func devicePath(merchantID, deviceID string) string {
	return "/v3/merchants/" + url.PathEscape(merchantID) + "/devices/" + url.PathEscape(deviceID)
}

func preview(body []byte) string {
	if len(body) == 0 {
		return "empty"
	}
	if len(body) <= previewLength {
		return string(body)
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}

func redactURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	query := parsed.Query()
	if query.Has("client_secret") {
		query.Set("client_secret", "redacted")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}
