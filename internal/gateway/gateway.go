// Package gateway puts the PhonePe and PayPal integrations behind one
// provider-tagged shape. Callers only see Intent and Result.
package gateway

import (
	"context"
	"encoding/json"
	"stationery-storefront/internal/model"

	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderPhonePe Provider = "PHONEPE"
	ProviderPayPal  Provider = "PAYPAL"
)

type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomePending   Outcome = "PENDING"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeUnknown   Outcome = "UNKNOWN"
)

func (o Outcome) Terminal() bool {
	return o != OutcomePending
}

// StoreStatus folds the display outcome onto the persisted tri-state.
func (o Outcome) StoreStatus() model.OrderStatus {
	switch o {
	case OutcomeSuccess:
		return model.OrderSuccess
	case OutcomePending:
		return model.OrderPending
	default:
		return model.OrderFailed
	}
}

func (o Outcome) Message() string {
	switch o {
	case OutcomeSuccess:
		return "Payment Successful!"
	case OutcomePending:
		return "Payment is pending. Please wait..."
	case OutcomeFailed:
		return "Payment Failed"
	case OutcomeCancelled:
		return "Payment Cancelled by User"
	default:
		return "Unknown payment status"
	}
}

// OutcomeFromStatus recovers a display outcome from a stored status.
func OutcomeFromStatus(s model.OrderStatus) Outcome {
	switch s {
	case model.OrderSuccess:
		return OutcomeSuccess
	case model.OrderPending:
		return OutcomePending
	default:
		return OutcomeFailed
	}
}

type IntentRequest struct {
	MerchantOrderID string
	Amount          decimal.Decimal // major units
	UserID          string
	UserPhone       string
	UserName        string
	UserEmail       string
}

type Intent struct {
	Provider        Provider
	MerchantOrderID string
	GatewayOrderID  string
	RedirectURL     string
	Raw             json.RawMessage
}

type Result struct {
	Provider      Provider
	OrderID       string
	Outcome       Outcome
	Code          string // provider code or state the outcome was mapped from
	Amount        *decimal.Decimal
	TransactionID string
	Raw           json.RawMessage
}

type VerifyRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error)
}

type StatusQuerier interface {
	QueryStatus(ctx context.Context, merchantOrderID string) (*Result, error)
}

type OrderVerifier interface {
	VerifyOrder(ctx context.Context, req *VerifyRequest) (*Result, error)
}

// Gateway is one provider. Capabilities it does not have are nil.
type Gateway struct {
	Provider Provider
	Intents  IntentCreator
	Status   StatusQuerier
	Verifier OrderVerifier
}

// MinorUnits converts a major-unit amount to paise/cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
