package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
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

type fakePhonePe struct {
	tokenCalls  atomic.Int32
	payBody     atomic.Value
	statusCode  int
	statusBody  string
	tokenStatus int
}

func (f *fakePhonePe) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "2", r.PostForm.Get("client_version"))
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-1","expires_at":%d,"token_type":"O-Bearer"}`, time.Now().Add(time.Hour).Unix())
	})
	mux.HandleFunc("/checkout/v2/pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "O-Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "TEST-M123", r.Header.Get("X-MERCHANT-ID"))
		var env map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		f.payBody.Store(env["request"])
		w.Write([]byte(`{"success":true,"data":{"instrumentResponse":{"redirectInfo":{"url":"https://pay.example/p/ORD_1"}}}}`))
	})
	mux.HandleFunc("/checkout/v2/order/ORD_1/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "O-Bearer tok-1", r.Header.Get("Authorization"))
		if f.statusCode != 0 {
			w.WriteHeader(f.statusCode)
		}
		w.Write([]byte(f.statusBody))
	})
	return mux
}

func newTestPhonePe(url string) PhonePeClient {
	return NewPhonePeClient(&config.PhonePe{
		BaseApiURL:    url,
		ClientID:      "cid",
		ClientSecret:  "secret",
		ClientVersion: "2",
		MerchantID:    "M123",
		Environment:   "UAT",
		RedirectURL:   "http://shop.local/payment-status",
		Timeout:       2 * time.Second,
	})
}

func TestPhonePeCreatePayment(t *testing.T) {
	fake := &fakePhonePe{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestPhonePe(srv.URL)
	resp, err := c.CreatePayment(t.Context(), &PhonePePayRequest{MerchantOrderID: "ORD_1", AmountPaise: 50050, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/p/ORD_1", resp.RedirectURL)

	decoded, err := base64.StdEncoding.DecodeString(fake.payBody.Load().(string))
	require.NoError(t, err)

	var payload phonepePayload
	require.NoError(t, json.Unmarshal(decoded, &payload))
	assert.Equal(t, "TEST-M123", payload.MerchantID)
	assert.Equal(t, int64(50050), payload.Amount)
	assert.Equal(t, 1200, payload.ExpireAfter)
	assert.Equal(t, "PG_CHECKOUT", payload.PaymentFlow.Type)
	assert.Equal(t, "http://shop.local/payment-status?orderId=ORD_1", payload.PaymentFlow.MerchantURLs.RedirectURL)
	assert.Equal(t, "user-u1", payload.MetaInfo["udf1"])
}

func TestPhonePeTokenIsCached(t *testing.T) {
	fake := &fakePhonePe{statusBody: `{"code":"PAYMENT_PENDING"}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestPhonePe(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.OrderStatus(t.Context(), "ORD_1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestPhonePeOrderStatus(t *testing.T) {
	fake := &fakePhonePe{statusBody: `{"orderId":"OMO1","state":"COMPLETED","amount":50050,"paymentDetails":[{"transactionId":"T1","state":"COMPLETED","amount":50050}]}`}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	st, err := newTestPhonePe(srv.URL).OrderStatus(t.Context(), "ORD_1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", st.State)
	assert.Equal(t, int64(50050), st.Amount)
	require.Len(t, st.PaymentDetails, 1)
	assert.Equal(t, "T1", st.PaymentDetails[0].TransactionID)
	assert.JSONEq(t, fake.statusBody, string(st.Raw))
}

func TestPhonePeErrors(t *testing.T) {
	t.Run("token rejected", func(t *testing.T) {
		fake := &fakePhonePe{tokenStatus: http.StatusUnauthorized}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		_, err := newTestPhonePe(srv.URL).OrderStatus(t.Context(), "ORD_1")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindGatewayAuth))
	})

	t.Run("status non-2xx", func(t *testing.T) {
		fake := &fakePhonePe{statusCode: http.StatusBadRequest, statusBody: `{"code":"BAD_REQUEST"}`}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		_, err := newTestPhonePe(srv.URL).OrderStatus(t.Context(), "ORD_1")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindGatewayRequest))
	})
}
