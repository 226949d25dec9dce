package clover

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

type TokenRequest struct {
	Environment string
	AppID       string
	AppSecret   string
	Code        string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthorizationURL builds the merchant consent URL that redirects back with a code.
func (c *Client) AuthorizationURL(environment, appID, merchantID, redirectURL string) string {
	conf := &oauth2.Config{
		ClientID:    appID,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthBaseURL(environment) + "/oauth/authorize",
			TokenURL: c.APIBaseURL(environment) + "/oauth/token",
		},
	}

	opts := make([]oauth2.AuthCodeOption, 0, 1)
	if strings.TrimSpace(merchantID) != "" {
		opts = append(opts, oauth2.SetAuthURLParam("merchant_id", merchantID))
	}
	return conf.AuthCodeURL("", opts...)
}

// ExchangeToken trades an authorization code for an access token. Clover expects the
// credentials as query parameters rather than a form body.
func (c *Client) ExchangeToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	values := url.Values{}
	values.Set("client_id", req.AppID)
	values.Set("client_secret", req.AppSecret)
	values.Set("code", req.Code)
	endpoint := c.APIBaseURL(req.Environment) + "/oauth/token?" + values.Encode()

	resp, err := c.do(ctx, "oauth_token", http.MethodPost, endpoint, "", nil, c.cfg.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var token TokenResponse
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, errors.New("clover token response has no access_token")
	}
	return &token, nil
}
