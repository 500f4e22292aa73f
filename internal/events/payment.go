package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const PaymentStatusChangedType = "payment.status.changed"

type PaymentStatusChanged struct {
	EventID         string           `json:"eventId"`
	EventType       string           `json:"eventType"`
	MerchantOrderID string           `json:"merchantOrderId"`
	UserID          string           `json:"userId,omitempty"`
	PaymentMethod   string           `json:"paymentMethod"`
	Status          string           `json:"status"`
	Outcome         string           `json:"outcome"`
	Amount          decimal.Decimal  `json:"amount"`
	AmountPaid      *decimal.Decimal `json:"amountPaid,omitempty"`
	Currency        string           `json:"currency"`
	TransactionID   string           `json:"transactionId,omitempty"`
	Source          string           `json:"source"` // check, callback, sweep or verify
	OccurredAt      time.Time        `json:"occurredAt"`
}

// PublishPaymentStatusChanged fills in id, type and time and publishes evt keyed
// by its merchant order id.
func PublishPaymentStatusChanged(ctx context.Context, p Publisher, evt PaymentStatusChanged) error {
	evt.EventID = uuid.NewString()
	evt.EventType = PaymentStatusChangedType
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.Publish(ctx, evt.MerchantOrderID, payload); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}
	return nil
}
