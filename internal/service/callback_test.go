package service

import (
	"context"
	"strings"
	"testing"

	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completedCallback = `{
	"event": "checkout.order.completed",
	"payload": {
		"merchantOrderId": "ORD_CB",
		"orderId": "OMO123",
		"state": "COMPLETED",
		"amount": 123000,
		"paymentDetails": [{"transactionId": "TXN_CB", "paymentMode": "UPI_QR", "state": "COMPLETED", "amount": 123000}]
	}
}`

func newCallbackFixture(t *testing.T, user, pass string) (CallbackService, *reconcilerFixture, repository.WebhookEventRepository) {
	f := newReconcilerFixture(t, nil)
	webhooks := repository.NewWebhookEventRepository(f.db)
	svc := NewCallbackService(user, pass, f.orders, webhooks, f.svc, discardLogger())
	return svc, f, webhooks
}

func TestCallbackAuthorization(t *testing.T) {
	assert.Equal(t, "f3024bed84a483dcf89ba6f691c2d86d89155b5d16665fcd41d2986cfc276415",
		CallbackAuthorization("merchant", "secret"))
}

func TestHandlePhonePeCallbackRejectsBadAuth(t *testing.T) {
	svc, f, _ := newCallbackFixture(t, "merchant", "secret")
	seedOrder(t, f.orders, "ORD_CB", model.PaymentPhonePe)

	err := svc.HandlePhonePeCallback(context.Background(), "not-the-hash", []byte(completedCallback))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	order, err := f.orders.FindByMerchantOrderID(context.Background(), "ORD_CB")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
}

func TestHandlePhonePeCallbackFailsClosedWithoutCredentials(t *testing.T) {
	svc, _, _ := newCallbackFixture(t, "", "")

	err := svc.HandlePhonePeCallback(context.Background(), CallbackAuthorization("", ""), []byte(completedCallback))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestHandlePhonePeCallbackApplies(t *testing.T) {
	svc, f, webhooks := newCallbackFixture(t, "merchant", "secret")
	seedOrder(t, f.orders, "ORD_CB", model.PaymentPhonePe)
	ctx := context.Background()
	auth := strings.ToUpper(CallbackAuthorization("merchant", "secret"))

	require.NoError(t, svc.HandlePhonePeCallback(ctx, auth, []byte(completedCallback)))

	order, err := f.orders.FindByMerchantOrderID(ctx, "ORD_CB")
	require.NoError(t, err)
	assert.Equal(t, model.OrderSuccess, order.Status)
	assert.Equal(t, "TXN_CB", order.TransactionID)
	assert.Contains(t, order.StatusCheckResponse, `"merchantOrderId"`)
	assert.NotContains(t, order.StatusCheckResponse, "checkout.order.completed")

	seen, err := webhooks.Exists(ctx, "checkout.order.completed:ORD_CB:COMPLETED")
	require.NoError(t, err)
	assert.True(t, seen)

	evts := f.publisher.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, SourceCallback, evts[0].Source)

	// a status check afterwards reads the stored callback payload
	check, err := f.svc.CheckStatus(ctx, "ORD_CB")
	require.NoError(t, err)
	assert.Equal(t, "Payment Successful!", check.Result.Message)
	assert.Equal(t, "1230.00", check.Result.AmountPaid.StringFixed(2))
	assert.Equal(t, 0, f.status.Calls())
}

func TestHandlePhonePeCallbackDuplicate(t *testing.T) {
	svc, f, _ := newCallbackFixture(t, "merchant", "secret")
	seedOrder(t, f.orders, "ORD_CB", model.PaymentPhonePe)
	ctx := context.Background()
	auth := CallbackAuthorization("merchant", "secret")

	require.NoError(t, svc.HandlePhonePeCallback(ctx, auth, []byte(completedCallback)))
	require.NoError(t, svc.HandlePhonePeCallback(ctx, auth, []byte(completedCallback)))

	assert.Len(t, f.publisher.Events(), 1)
}

func TestHandlePhonePeCallbackIgnoresOtherEvents(t *testing.T) {
	svc, f, webhooks := newCallbackFixture(t, "merchant", "secret")
	seedOrder(t, f.orders, "ORD_CB", model.PaymentPhonePe)
	ctx := context.Background()

	body := `{"event":"pg.refund.completed","payload":{"merchantOrderId":"ORD_CB","state":"COMPLETED"}}`
	require.NoError(t, svc.HandlePhonePeCallback(ctx, CallbackAuthorization("merchant", "secret"), []byte(body)))

	order, err := f.orders.FindByMerchantOrderID(ctx, "ORD_CB")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)

	seen, err := webhooks.Exists(ctx, "pg.refund.completed:ORD_CB:COMPLETED")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHandlePhonePeCallbackMalformed(t *testing.T) {
	svc, _, _ := newCallbackFixture(t, "merchant", "secret")
	auth := CallbackAuthorization("merchant", "secret")

	err := svc.HandlePhonePeCallback(context.Background(), auth, []byte(`{not json`))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.HandlePhonePeCallback(context.Background(), auth, []byte(`{"event":"checkout.order.completed","payload":{}}`))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestHandlePhonePeCallbackUnknownOrder(t *testing.T) {
	svc, f, _ := newCallbackFixture(t, "merchant", "secret")

	err := svc.HandlePhonePeCallback(context.Background(), CallbackAuthorization("merchant", "secret"), []byte(completedCallback))
	require.NoError(t, err)
	assert.Empty(t, f.publisher.Events())
}
