package client

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaypalGetOrder(t *testing.T) {
	var tokenCalls, orderCalls atomic.Int32
	rejectNext := atomic.Bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "pp-id", user)
		assert.Equal(t, "pp-secret", pass)
		w.Write([]byte(`{"access_token":"A21","expires_in":32400}`))
	})
	mux.HandleFunc("/v2/checkout/orders/5O190127TN364715T", func(w http.ResponseWriter, r *http.Request) {
		orderCalls.Add(1)
		assert.Equal(t, "Bearer A21", r.Header.Get("Authorization"))
		if rejectNext.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		w.Write([]byte(`{
			"id":"5O190127TN364715T",
			"status":"COMPLETED",
			"purchase_units":[{
				"reference_id":"default",
				"amount":{"currency_code":"USD","value":"12.50"},
				"payments":{"captures":[{"id":"CAP-1","status":"COMPLETED","amount":{"currency_code":"USD","value":"12.50"}}]}
			}]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewPaypalClient(&config.Paypal{
		BaseApiURL:   srv.URL,
		ClientID:     "pp-id",
		ClientSecret: "pp-secret",
		Timeout:      2 * time.Second,
	})

	order, err := c.GetOrder(t.Context(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", order.Status)
	require.Len(t, order.PurchaseUnits, 1)
	assert.Equal(t, "12.50", order.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "USD", order.PurchaseUnits[0].Amount.Currency)
	assert.Equal(t, "CAP-1", order.CaptureID())
	assert.NotEmpty(t, order.Raw)

	_, err = c.GetOrder(t.Context(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load(), "token reused until expiry")

	rejectNext.Store(true)
	_, err = c.GetOrder(t.Context(), "5O190127TN364715T")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGatewayRequest))

	_, err = c.GetOrder(t.Context(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load(), "401 drops the cached token")
	assert.Equal(t, int32(4), orderCalls.Load())
}

func TestPaypalTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	c := NewPaypalClient(&config.Paypal{BaseApiURL: srv.URL, ClientID: "x", ClientSecret: "y"})
	_, err := c.GetOrder(t.Context(), "ANY")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGatewayAuth))
	assert.Equal(t, "payment service unavailable", apperr.Message(err))
}
