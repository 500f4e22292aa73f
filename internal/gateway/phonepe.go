package gateway

import (
	"context"
	"fmt"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/client"
)

type phonepeAdapter struct {
	client client.PhonePeClient
}

func NewPhonePe(c client.PhonePeClient) *Gateway {
	a := &phonepeAdapter{client: c}
	return &Gateway{
		Provider: ProviderPhonePe,
		Intents:  a,
		Status:   a,
	}
}

func (a *phonepeAdapter) CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	paise := MinorUnits(req.Amount)
	if paise <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}

	resp, err := a.client.CreatePayment(ctx, &client.PhonePePayRequest{
		MerchantOrderID: req.MerchantOrderID,
		AmountPaise:     paise,
		UserID:          req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create phonepe payment: %w", err)
	}

	return &Intent{
		Provider:        ProviderPhonePe,
		MerchantOrderID: req.MerchantOrderID,
		GatewayOrderID:  resp.GatewayOrderID,
		RedirectURL:     resp.RedirectURL,
		Raw:             resp.Raw,
	}, nil
}

func (a *phonepeAdapter) QueryStatus(ctx context.Context, merchantOrderID string) (*Result, error) {
	st, err := a.client.OrderStatus(ctx, merchantOrderID)
	if err != nil {
		return nil, fmt.Errorf("query phonepe status: %w", err)
	}
	return PhonePeResult(merchantOrderID, st), nil
}

var phonepeCodes = map[string]Outcome{
	"PAYMENT_SUCCESS":  OutcomeSuccess,
	"PAYMENT_PENDING":  OutcomePending,
	"PAYMENT_ERROR":    OutcomeFailed,
	"PAYMENT_DECLINED": OutcomeFailed,
}

var phonepeStates = map[string]Outcome{
	"COMPLETED":      OutcomeSuccess,
	"PENDING":        OutcomePending,
	"FAILED":         OutcomeFailed,
	"USER_CANCELLED": OutcomeCancelled,
	"CANCELLED":      OutcomeCancelled,
}

// MapPhonePeStatus prefers the response code and falls back to the order state.
// Anything unrecognised is UNKNOWN.
func MapPhonePeStatus(code, state string) Outcome {
	if o, ok := phonepeCodes[code]; ok {
		return o
	}
	if o, ok := phonepeStates[state]; ok {
		return o
	}
	return OutcomeUnknown
}

// PhonePeResult builds a Result from a status response or callback payload.
func PhonePeResult(merchantOrderID string, st *client.PhonePeOrderStatus) *Result {
	state := st.State
	if state == "" && st.Data != nil {
		state = st.Data.State
	}

	res := &Result{
		Provider: ProviderPhonePe,
		OrderID:  merchantOrderID,
		Outcome:  MapPhonePeStatus(st.Code, state),
		Code:     st.Code,
		Raw:      st.Raw,
	}
	if res.Code == "" {
		res.Code = state
	}

	paise := st.Amount
	if paise == 0 && st.Data != nil {
		paise = st.Data.Amount
	}
	if paise == 0 && len(st.PaymentDetails) > 0 {
		paise = st.PaymentDetails[0].Amount
	}
	if paise > 0 {
		amount := MajorUnits(paise)
		res.Amount = &amount
	}

	switch {
	case len(st.PaymentDetails) > 0 && st.PaymentDetails[0].TransactionID != "":
		res.TransactionID = st.PaymentDetails[0].TransactionID
	case st.TransactionID != "":
		res.TransactionID = st.TransactionID
	case st.Data != nil:
		res.TransactionID = st.Data.TransactionID
	}
	return res
}
