package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/config"
	"strings"
	"time"
)

type PaypalClient interface {
	GetOrder(ctx context.Context, orderID string) (*PaypalOrder, error)
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	tokens             *tokenCache
}

type Payer struct {
	PayerID string `json:"payer_id"`
	Email   string `json:"email_address"`
}

type Amount struct {
	Currency string `json:"currency_code"`
	Value    string `json:"value"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	Amount      Amount   `json:"amount"`
	Payments    Payments `json:"payments"`
}

type PaypalOrder struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         Payer          `json:"payer"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`

	Raw json.RawMessage `json:"-"`
}

// CaptureID returns the first capture id of the first purchase unit, if any.
func (o *PaypalOrder) CaptureID() string {
	if len(o.PurchaseUnits) == 0 || len(o.PurchaseUnits[0].Payments.Captures) == 0 {
		return ""
	}
	return o.PurchaseUnits[0].Payments.Captures[0].ID
}

func NewPaypalClient(paypalCfg *config.Paypal) PaypalClient {
	timeout := paypalCfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL:         strings.TrimRight(paypalCfg.BaseApiURL, "/"),
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
	}
	c.tokens = newTokenCache(c.getAccessToken)
	return c
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (accessToken, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("http new request: %w", err))
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("http client do: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("paypal token status=%d body=%s", resp.StatusCode, b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("decode paypal token: %w", err))
	}
	if res.AccessToken == "" {
		return accessToken{}, apperr.GatewayAuth(errors.New("access token not received"))
	}

	tok := accessToken{value: res.AccessToken}
	if res.ExpiresIn > 0 {
		tok.expiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return tok, nil
}

func (c *paypalClientImpl) GetOrder(ctx context.Context, orderID string) (*PaypalOrder, error) {
	accessToken, err := c.tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/checkout/orders/%s", c.baseApiURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create order lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.GatewayTransport(fmt.Errorf("paypal order lookup failed: %w", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.GatewayRequest(resp.StatusCode, string(body))
	}

	var order PaypalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, apperr.GatewayTransport(fmt.Errorf("decode paypal order: %w", err))
	}
	order.Raw = body
	return &order, nil
}
