package gateway

import (
	"context"
	"fmt"
	"stationery-storefront/internal/client"

	"github.com/shopspring/decimal"
)

type paypalAdapter struct {
	client client.PaypalClient
}

// NewPayPal only verifies orders; intents are created by the PayPal buttons on the client.
func NewPayPal(c client.PaypalClient) *Gateway {
	return &Gateway{
		Provider: ProviderPayPal,
		Verifier: &paypalAdapter{client: c},
	}
}

// VerifyOrder succeeds only when the order is COMPLETED and both amount (2dp)
// and currency match what the buyer was charged. Every other case is FAILED.
func (a *paypalAdapter) VerifyOrder(ctx context.Context, req *VerifyRequest) (*Result, error) {
	order, err := a.client.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get paypal order: %w", err)
	}

	res := &Result{
		Provider:      ProviderPayPal,
		OrderID:       req.OrderID,
		Outcome:       OutcomeFailed,
		Code:          order.Status,
		TransactionID: order.CaptureID(),
		Raw:           order.Raw,
	}
	if len(order.PurchaseUnits) == 0 {
		return res, nil
	}

	unit := order.PurchaseUnits[0]
	paid, err := decimal.NewFromString(unit.Amount.Value)
	if err != nil {
		return res, nil
	}
	res.Amount = &paid

	if order.Status == "COMPLETED" &&
		paid.StringFixed(2) == req.Amount.StringFixed(2) &&
		unit.Amount.Currency == req.Currency {
		res.Outcome = OutcomeSuccess
	}
	return res, nil
}
