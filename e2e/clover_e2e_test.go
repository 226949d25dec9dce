//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultCloverHTTPBase = "http://localhost:48082"
	defaultCloverGRPCAddr = "localhost:49092"
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	return c.doJSONWithAPIKey(t, method, path, body, posAPIKey())
}

func (c *httpClient) doAdminJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	return c.doJSONWithAPIKey(t, method, path, body, adminAPIKey())
}

func (c *httpClient) doJSONWithAPIKey(t *testing.T, method, path string, body any, apiKey string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func dialCloverGRPC(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc dial failed: %v", err)
	}
	return conn
}

func grpcContextWithHeaders(apiKey, requestID string) context.Context {
	ctx := context.Background()
	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}
	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey)
	}
	return ctx
}

func invokeTerminal(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, "/clover.v1.TerminalService/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func authorizedGRPCContext(prefix string) context.Context {
	return grpcContextWithHeaders(posAPIKey(), fmt.Sprintf("e2e-grpc-%s-%d", prefix, time.Now().UnixNano()))
}

func TestCloverPosE2E(t *testing.T) {
	httpBase := os.Getenv("CLOVER_POS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultCloverHTTPBase
	}
	grpcAddr := os.Getenv("CLOVER_POS_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = defaultCloverGRPCAddr
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}
	if err := waitForGRPC(grpcAddr, 30*time.Second); err != nil {
		t.Fatalf("grpc not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	conn := dialCloverGRPC(t, grpcAddr)
	defer conn.Close()

	var methodID uint64

	t.Run("HTTPMissingRequestID", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, httpBase+"/admin/payment-methods", nil)
		if err != nil {
			t.Fatalf("new request failed: %v", err)
		}
		req.Header.Set("X-API-Key", adminAPIKey())
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing x-request-id, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPUnauthorizedMissingAPIKey", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/admin/payment-methods", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for missing x-api-key, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPForbiddenInsufficientAccess", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/admin/payment-methods", nil, noAccessAPIKey())
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 for insufficient access, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPPublicRoutes", func(t *testing.T) {
		resp, body := client.doJSONWithAPIKey(t, http.MethodGet, "/pos_clover/test", nil, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		resp, body = client.doJSONWithAPIKey(t, http.MethodGet, "/payment/pos_clover/authorize", nil, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 without code, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPNotificationVerification", func(t *testing.T) {
		resp, body := client.doJSONWithAPIKey(t, http.MethodPost, "/pos_clover/notification", map[string]any{"verificationCode": "abc"}, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPNotificationUnknownDevice", func(t *testing.T) {
		payload := map[string]any{"merchantId": "E2E-NO-MERCHANT", "deviceId": "E2E-NO-DEVICE", "type": "SALE"}
		resp, body := client.doJSONWithAPIKey(t, http.MethodPost, "/pos_clover/notification", payload, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPCreatePaymentMethod", func(t *testing.T) {
		deviceID := fmt.Sprintf("E2E%d", time.Now().UnixNano())
		resp, body := client.doAdminJSON(t, http.MethodPost, "/admin/payment-methods", map[string]any{
			"name":        "E2E till",
			"environment": "sandbox",
			"merchant_id": "E2EMERCHANT",
			"device_id":   deviceID,
			"app_id":      "E2EAPP",
			"app_secret":  "e2e-secret",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.PaymentMethodResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal create failed: %v body=%s", err, string(body))
		}
		if payload.PaymentMethod == nil || payload.PaymentMethod.Id == 0 {
			t.Fatalf("expected created payment method, got %s", string(body))
		}
		methodID = payload.PaymentMethod.Id

		resp, body = client.doAdminJSON(t, http.MethodPost, "/admin/payment-methods", map[string]any{"name": "E2E dup", "device_id": deviceID})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409 for duplicate device, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPProxyWithoutToken", func(t *testing.T) {
		if methodID == 0 {
			t.Skip("payment method not created")
		}
		path := "/pos/payment-methods/" + strconv.FormatUint(methodID, 10) + "/proxy"
		resp, body := client.doJSON(t, http.MethodPost, path, map[string]any{"operation": "status"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 without an access token, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPLatestResponseEmpty", func(t *testing.T) {
		if methodID == 0 {
			t.Skip("payment method not created")
		}
		path := "/pos/payment-methods/" + strconv.FormatUint(methodID, 10) + "/latest-response"
		resp, body := client.doJSON(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		if string(bytes.TrimSpace(body)) != "false" {
			t.Fatalf("expected false, got %s", string(body))
		}
	})

	t.Run("HTTPGetNotFound", func(t *testing.T) {
		resp, body := client.doAdminJSON(t, http.MethodGet, "/admin/payment-methods/999999", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GRPCMissingRequestID", func(t *testing.T) {
		_, err := invokeTerminal(context.Background(), conn, "Health", map[string]any{})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument for missing x-request-id, got %v", err)
		}
	})

	t.Run("GRPCUnauthorizedMissingAPIKey", func(t *testing.T) {
		ctx := grpcContextWithHeaders("", fmt.Sprintf("e2e-grpc-no-auth-%d", time.Now().UnixNano()))
		_, err := invokeTerminal(ctx, conn, "Health", map[string]any{})
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("expected Unauthenticated, got %v", err)
		}
	})

	t.Run("GRPCForbiddenInsufficientAccess", func(t *testing.T) {
		ctx := grpcContextWithHeaders(noAccessAPIKey(), fmt.Sprintf("e2e-grpc-forbidden-%d", time.Now().UnixNano()))
		_, err := invokeTerminal(ctx, conn, "Health", map[string]any{})
		if status.Code(err) != codes.PermissionDenied {
			t.Fatalf("expected PermissionDenied, got %v", err)
		}
	})

	t.Run("GRPCHealth", func(t *testing.T) {
		res, err := invokeTerminal(authorizedGRPCContext("health"), conn, "Health", map[string]any{})
		if err != nil {
			t.Fatalf("grpc health failed: %v", err)
		}
		if res.GetFields()["status"].GetStringValue() != "ok" {
			t.Fatalf("unexpected health response: %v", res)
		}
	})

	t.Run("GRPCProxyValidation", func(t *testing.T) {
		_, err := invokeTerminal(authorizedGRPCContext("proxy"), conn, "Proxy", map[string]any{"operation": "status"})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("GRPCLatestResponseNotFound", func(t *testing.T) {
		_, err := invokeTerminal(authorizedGRPCContext("latest"), conn, "GetLatestResponse", map[string]any{"payment_method_id": 999999})
		if status.Code(err) != codes.NotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("GRPCAwaitUnknownOperation", func(t *testing.T) {
		if methodID == 0 {
			t.Skip("payment method not created")
		}
		_, err := invokeTerminal(authorizedGRPCContext("await"), conn, "AwaitOperation", map[string]any{
			"payment_method_id": float64(methodID),
			"reference":         "clv-e2e-missing",
			"timeout_seconds":   1,
		})
		if status.Code(err) != codes.NotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("HTTPDeletePaymentMethod", func(t *testing.T) {
		if methodID == 0 {
			t.Skip("payment method not created")
		}
		resp, body := client.doAdminJSON(t, http.MethodDelete, "/admin/payment-methods/"+strconv.FormatUint(methodID, 10), nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d body=%s", resp.StatusCode, string(body))
		}
	})
}
