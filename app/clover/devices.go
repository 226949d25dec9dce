package clover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

type Device struct {
	ID     string `json:"id"`
	Serial string `json:"serial"`
	Model  string `json:"model"`
	Name   string `json:"name"`
}

func (c *Client) ListDevices(ctx context.Context, target Target) ([]Device, error) {
	endpoint := c.APIBaseURL(target.Environment) + "/v3/merchants/" + url.PathEscape(target.MerchantID) + "/devices"

	resp, err := c.do(ctx, "list_devices", http.MethodGet, endpoint, target.AccessToken, nil, c.cfg.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var payload struct {
		Elements []Device `json:"elements"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, err
	}
	return payload.Elements, nil
}

func (c *Client) DisplayMessage(ctx context.Context, target Target, message string) error {
	endpoint := c.APIBaseURL(target.Environment) + devicePath(target.MerchantID, target.DeviceID) + "/display_message"

	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, "display_message", http.MethodPost, endpoint, target.AccessToken, body, c.cfg.DefaultTimeout)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}
