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

const (
	phonepeTokenPath  = "/v1/oauth/token"
	phonepePayPath    = "/checkout/v2/pay"
	phonepeStatusPath = "/checkout/v2/order/%s/status"

	// seconds the hosted payment page stays valid
	phonepeExpireAfter = 1200
)

type PhonePeClient interface {
	CreatePayment(ctx context.Context, req *PhonePePayRequest) (*PhonePePayResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (*PhonePeOrderStatus, error)
	Environment() string
}

type phonepeClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	clientID      string
	clientSecret  string
	clientVersion string
	merchantID    string
	environment   string
	redirectURL   string
	tokens        *tokenCache
}

type PhonePePayRequest struct {
	MerchantOrderID string
	AmountPaise     int64
	UserID          string
}

type PhonePePayResponse struct {
	GatewayOrderID string
	State          string
	RedirectURL    string
	Raw            json.RawMessage
}

type PhonePePaymentDetail struct {
	TransactionID string `json:"transactionId"`
	PaymentMode   string `json:"paymentMode"`
	State         string `json:"state"`
	Amount        int64  `json:"amount"`
	ErrorCode     string `json:"errorCode"`
}

// PhonePeOrderStatus covers both the V2 order-status shape (state/paymentDetails)
// and the older code/data envelope.
type PhonePeOrderStatus struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	OrderID        string                 `json:"orderId"`
	State          string                 `json:"state"`
	Amount         int64                  `json:"amount"`
	TransactionID  string                 `json:"transactionId"`
	PaymentDetails []PhonePePaymentDetail `json:"paymentDetails"`
	Data           *struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
		Amount        int64  `json:"amount"`
	} `json:"data"`

	Raw json.RawMessage `json:"-"`
}

type phonepePayload struct {
	MerchantID      string             `json:"merchantId"`
	MerchantOrderID string             `json:"merchantOrderId"`
	Amount          int64              `json:"amount"`
	ExpireAfter     int                `json:"expireAfter"`
	MetaInfo        map[string]string  `json:"metaInfo,omitempty"`
	PaymentFlow     phonepePaymentFlow `json:"paymentFlow"`
}

type phonepePaymentFlow struct {
	Type         string              `json:"type"`
	Message      string              `json:"message"`
	MerchantURLs phonepeMerchantURLs `json:"merchantUrls"`
}

type phonepeMerchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

type phonepePayResult struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
	Data        *struct {
		RedirectURL        string `json:"redirectUrl"`
		InstrumentResponse *struct {
			RedirectInfo *struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

func NewPhonePeClient(cfg *config.PhonePe) PhonePeClient {
	merchantID := cfg.MerchantID
	if strings.EqualFold(cfg.Environment, "UAT") && !strings.HasPrefix(merchantID, "TEST-") {
		merchantID = "TEST-" + merchantID
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &phonepeClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL:    strings.TrimRight(cfg.BaseApiURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		clientVersion: cfg.ClientVersion,
		merchantID:    merchantID,
		environment:   strings.ToUpper(cfg.Environment),
		redirectURL:   cfg.RedirectURL,
	}
	c.tokens = newTokenCache(c.fetchAccessToken)
	return c
}

func (c *phonepeClientImpl) Environment() string {
	return c.environment
}

func (c *phonepeClientImpl) fetchAccessToken(ctx context.Context) (accessToken, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("client_version", c.clientVersion)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+phonepeTokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("http new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("http client do: %w", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("phonepe token status=%d body=%s", resp.StatusCode, body))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return accessToken{}, apperr.GatewayAuth(fmt.Errorf("decode phonepe token: %w", err))
	}
	if res.AccessToken == "" {
		return accessToken{}, apperr.GatewayAuth(errors.New("access token not received"))
	}

	tok := accessToken{value: res.AccessToken}
	if res.ExpiresAt > 0 {
		tok.expiresAt = time.Unix(res.ExpiresAt, 0)
	}
	return tok, nil
}

func (c *phonepeClientImpl) CreatePayment(ctx context.Context, in *PhonePePayRequest) (*PhonePePayResponse, error) {
	redirect, err := c.redirectFor(in.MerchantOrderID)
	if err != nil {
		return nil, err
	}

	payload := phonepePayload{
		MerchantID:      c.merchantID,
		MerchantOrderID: in.MerchantOrderID,
		Amount:          in.AmountPaise,
		ExpireAfter:     phonepeExpireAfter,
		PaymentFlow: phonepePaymentFlow{
			Type:    "PG_CHECKOUT",
			Message: fmt.Sprintf("Payment for order %s", in.MerchantOrderID),
			MerchantURLs: phonepeMerchantURLs{
				RedirectURL: redirect,
			},
		},
	}
	if in.UserID != "" {
		payload.MetaInfo = map[string]string{"udf1": "user-" + in.UserID}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}
	body, err := json.Marshal(map[string]string{
		"request": base64.StdEncoding.EncodeToString(encoded),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal req envelope: %w", err)
	}

	raw, err := c.call(ctx, http.MethodPost, c.baseApiURL+phonepePayPath, body)
	if err != nil {
		return nil, err
	}

	var result phonepePayResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.GatewayTransport(fmt.Errorf("decode phonepe pay response: %w", err))
	}

	paymentURL := _extractRedirectURL(&result)
	if paymentURL == "" {
		return nil, apperr.GatewayRequest(http.StatusOK, "no redirect url in response: "+string(raw))
	}

	return &PhonePePayResponse{
		GatewayOrderID: result.OrderID,
		State:          result.State,
		RedirectURL:    paymentURL,
		Raw:            raw,
	}, nil
}

func (c *phonepeClientImpl) OrderStatus(ctx context.Context, merchantOrderID string) (*PhonePeOrderStatus, error) {
	endpoint := c.baseApiURL + fmt.Sprintf(phonepeStatusPath, url.PathEscape(merchantOrderID))

	raw, err := c.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var status PhonePeOrderStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, apperr.GatewayTransport(fmt.Errorf("decode phonepe status: %w", err))
	}
	status.Raw = raw
	return &status, nil
}

// call sends an authorized request and returns the raw 2xx body.
func (c *phonepeClientImpl) call(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get phonepe access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)
	req.Header.Set("X-MERCHANT-ID", c.merchantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.GatewayTransport(fmt.Errorf("phonepe request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.GatewayRequest(resp.StatusCode, string(raw))
	}
	return raw, nil
}

func (c *phonepeClientImpl) redirectFor(merchantOrderID string) (string, error) {
	u, err := url.Parse(c.redirectURL)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("orderId", merchantOrderID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func _extractRedirectURL(res *phonepePayResult) string {
	if res.Data != nil {
		if ir := res.Data.InstrumentResponse; ir != nil && ir.RedirectInfo != nil && ir.RedirectInfo.URL != "" {
			return ir.RedirectInfo.URL
		}
		if res.Data.RedirectURL != "" {
			return res.Data.RedirectURL
		}
	}
	return res.RedirectURL
}
