package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	svc     *checkoutServiceImpl
	intents *fakeIntents
	orders  repository.OrderRepository
	idem    repository.IdempotencyStore
}

func newCheckoutFixture(t *testing.T, orders repository.OrderRepository) *checkoutFixture {
	db := newTestDB(t)
	if orders == nil {
		orders = repository.NewOrderRepository(db)
	}
	intents := &fakeIntents{fn: func(ctx context.Context, req *gateway.IntentRequest) (*gateway.Intent, error) {
		return &gateway.Intent{
			Provider:        gateway.ProviderPhonePe,
			MerchantOrderID: req.MerchantOrderID,
			GatewayOrderID:  "OMO" + req.MerchantOrderID,
			RedirectURL:     "https://pay.example/" + req.MerchantOrderID,
			Raw:             []byte(`{"state":"PENDING"}`),
		}, nil
	}}
	idem := repository.NewIdempotencyStore(db, time.Hour)
	svc := NewCheckoutService(
		&gateway.Gateway{Provider: gateway.ProviderPhonePe, Intents: intents},
		orders, idem,
		CheckoutOptions{Currency: "INR", Environment: "UAT", PersistRetries: 3},
		discardLogger(),
	).(*checkoutServiceImpl)
	svc.retryDelay = func(int) time.Duration { return time.Millisecond }

	return &checkoutFixture{svc: svc, intents: intents, orders: orders, idem: idem}
}

func validRequest(orderID string) *dto.CreatePaymentRequest {
	return &dto.CreatePaymentRequest{
		Amount:    decimal.RequireFromString("1230"),
		OrderID:   orderID,
		UserID:    "u1",
		UserPhone: "9876543210",
		UserName:  "Asha",
		UserEmail: "asha@example.com",
		Items: []dto.CartItem{
			{ID: "nb-a5-ruled", Name: "A5 Ruled Notebook", Price: decimal.NewFromInt(80), Quantity: 15, Size: "S:10, M:5"},
		},
	}
}

func TestCreatePayment(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.CreatePayment(ctx, validRequest("ORD_100"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "ORD_100", resp.MerchantOrderID)
	assert.Equal(t, "https://pay.example/ORD_100", resp.PaymentURL)
	assert.JSONEq(t, `{"state":"PENDING"}`, string(resp.Data))

	order, err := f.orders.FindByMerchantOrderID(ctx, "ORD_100")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, model.PaymentPhonePe, order.PaymentMethod)
	assert.Equal(t, "UAT", order.Environment)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "OMOORD_100", order.GatewayOrderID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 15, order.Items[0].Quantity)
}

func TestCreatePaymentGeneratesOrderID(t *testing.T) {
	f := newCheckoutFixture(t, nil)

	resp, err := f.svc.CreatePayment(context.Background(), validRequest(""))
	require.NoError(t, err)
	assert.Regexp(t, `^ORD_\d+$`, resp.MerchantOrderID)
}

func TestCreatePaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		edit func(r *dto.CreatePaymentRequest)
	}{
		{"short phone", func(r *dto.CreatePaymentRequest) { r.UserPhone = "12345" }},
		{"zero amount", func(r *dto.CreatePaymentRequest) { r.Amount = decimal.Zero }},
		{"bad order id", func(r *dto.CreatePaymentRequest) { r.OrderID = "ORD 1/2" }},
		{"empty item", func(r *dto.CreatePaymentRequest) { r.Items[0].Quantity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, nil)
			req := validRequest("ORD_200")
			tt.edit(req)

			_, err := f.svc.CreatePayment(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, 0, f.intents.Calls(), "no gateway call on invalid input")
		})
	}
}

func TestCreatePaymentGatewayFailureLeavesNoOrder(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	f.intents.fn = func(ctx context.Context, req *gateway.IntentRequest) (*gateway.Intent, error) {
		return nil, apperr.GatewayRequest(400, `{"code":"BAD_REQUEST","message":"merchant disabled"}`)
	}
	ctx := context.Background()
	req := validRequest("ORD_300")
	req.IdempotencyKey = "k-300"

	_, err := f.svc.CreatePayment(ctx, req)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGatewayRequest))
	assert.NotContains(t, apperr.Message(err), "merchant disabled")

	_, err = f.orders.FindByMerchantOrderID(ctx, "ORD_300")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, fresh, err := f.idem.Reserve(ctx, "k-300", "ORD_301")
	require.NoError(t, err)
	assert.True(t, fresh, "failed attempts free the idempotency key")
}

func TestCreatePaymentIdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	ctx := context.Background()

	first := validRequest("ORD_400")
	first.IdempotencyKey = "k-400"
	resp1, err := f.svc.CreatePayment(ctx, first)
	require.NoError(t, err)

	second := validRequest("ORD_401")
	second.IdempotencyKey = "k-400"
	resp2, err := f.svc.CreatePayment(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 1, f.intents.Calls(), "replay does not create a second intent")
	assert.True(t, resp2.Replayed)
	assert.Equal(t, resp1.MerchantOrderID, resp2.MerchantOrderID)
	assert.Equal(t, resp1.PaymentURL, resp2.PaymentURL)

	_, err = f.orders.FindByMerchantOrderID(ctx, "ORD_401")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreatePaymentInFlightKeyConflicts(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	ctx := context.Background()

	_, fresh, err := f.idem.Reserve(ctx, "k-500", "ORD_500")
	require.NoError(t, err)
	require.True(t, fresh)

	req := validRequest("ORD_501")
	req.IdempotencyKey = "k-500"
	_, err = f.svc.CreatePayment(ctx, req)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 0, f.intents.Calls())
}

type flakyOrderRepo struct {
	repository.OrderRepository
	failures atomic.Int32
}

func (r *flakyOrderRepo) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if r.failures.Load() > 0 {
		r.failures.Add(-1)
		return errors.New("database is locked")
	}
	return r.OrderRepository.Create(ctx, tx, order)
}

func TestCreatePaymentPersistRetry(t *testing.T) {
	db := newTestDB(t)
	flaky := &flakyOrderRepo{OrderRepository: repository.NewOrderRepository(db)}
	flaky.failures.Store(2)
	f := newCheckoutFixture(t, flaky)
	ctx := context.Background()

	resp, err := f.svc.CreatePayment(ctx, validRequest("ORD_600"))
	require.NoError(t, err, "redirect is returned even when the first write fails")
	assert.Equal(t, "https://pay.example/ORD_600", resp.PaymentURL)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	order, err := f.orders.FindByMerchantOrderID(ctx, "ORD_600")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
}

func TestPersistInBackgroundAfterShutdown(t *testing.T) {
	db := newTestDB(t)
	flaky := &flakyOrderRepo{OrderRepository: repository.NewOrderRepository(db)}
	f := newCheckoutFixture(t, flaky)
	ctx := context.Background()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	order := f.svc.buildOrder(validRequest("ORD_650"), model.PaymentPhonePe, "OMO650")
	f.svc.persistInBackground(order)
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	_, err := f.orders.FindByMerchantOrderID(ctx, "ORD_650")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "no background write starts once shutdown began")
}

func TestRecordPayPalOrder(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	ctx := context.Background()

	req := validRequest("ORD_700")
	req.PaymentMethod = "PAYPAL"
	req.Currency = "usd"
	_, err := f.svc.CreatePayment(ctx, req)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "gateway order id is required")

	req.GatewayOrderID = "5O190127TN364715T"
	resp, err := f.svc.CreatePayment(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, resp.PaymentURL)
	assert.Equal(t, 0, f.intents.Calls())

	order, err := f.orders.FindByMerchantOrderID(ctx, "ORD_700")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPayPal, order.PaymentMethod)
	assert.Equal(t, "USD", order.Currency)

	_, err = f.svc.CreatePayment(ctx, req)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 32*time.Second, retryDelay(5))
	assert.Equal(t, 32*time.Second, retryDelay(9))
	assert.Equal(t, time.Second, retryDelay(-1))
}
