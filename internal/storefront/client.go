// Package storefront is the buyer side of checkout: it starts payments against
// the storefront API and follows them until a verdict is known.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/model"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the storefront API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	var resp dto.CreatePaymentResponse
	if err := c.post(ctx, "/api/createPayment", req, headers, &resp); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &resp, nil
}

func (c *Client) CheckStatus(ctx context.Context, merchantOrderID string) (*dto.CheckStatusResponse, error) {
	var resp dto.CheckStatusResponse
	err := c.post(ctx, "/api/checkPaymentStatus", dto.CheckStatusRequest{MerchantTransactionID: merchantOrderID}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("check payment status: %w", err)
	}
	return &resp, nil
}

func (c *Client) VerifyPayPal(ctx context.Context, req *dto.VerifyPayPalRequest) (*dto.VerifyPayPalResponse, error) {
	var resp dto.VerifyPayPalResponse
	if err := c.post(ctx, "/api/verifyPayPalOrder", req, nil, &resp); err != nil {
		return nil, fmt.Errorf("verify paypal order: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListProducts(ctx context.Context, category string) ([]*model.Product, error) {
	path := "/api/products"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var products []*model.Product
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (c *Client) post(ctx context.Context, path string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), headers, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	// {success:false, message, error} from most routes, {error, received} from verifyPayPalOrder
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
			apiErr.Code = body.Error
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
