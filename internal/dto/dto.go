package dto

import (
	"encoding/json"
	"stationery-storefront/internal/pricing"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// CartItem is the cart line copied into an order at checkout.
type CartItem struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	MRP           *decimal.Decimal `json:"mrp,omitempty"`
	Quantity      int              `json:"quantity"`
	Size          string           `json:"size"`
	ShippingPrice *decimal.Decimal `json:"shippingPrice,omitempty"`
}

type CreatePaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	OrderID        string          `json:"orderId"`
	UserID         string          `json:"userId"`
	UserPhone      string          `json:"userPhone"`
	UserName       string          `json:"userName"`
	UserEmail      string          `json:"userEmail"`
	Currency       string          `json:"currency,omitempty"`
	Items          []CartItem      `json:"items,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	// PAYPAL records an order the PayPal buttons already created; no intent is made.
	PaymentMethod  string `json:"paymentMethod,omitempty"`
	GatewayOrderID string `json:"gatewayOrderId,omitempty"`
}

type CreatePaymentResponse struct {
	Success         bool            `json:"success"`
	Data            json.RawMessage `json:"data,omitempty"`
	PaymentURL      string          `json:"paymentUrl"`
	MerchantOrderID string          `json:"merchantOrderId"`
	Replayed        bool            `json:"replayed,omitempty"`
}

type CheckStatusRequest struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
}

// StatusResult is the display-ready outcome of a status check.
type StatusResult struct {
	MerchantOrderID string           `json:"merchantOrderId"`
	Outcome         string           `json:"outcome"`
	Status          string           `json:"status"`
	Message         string           `json:"message"`
	Terminal        bool             `json:"terminal"`
	AmountPaid      *decimal.Decimal `json:"amountPaid,omitempty"`
	TransactionID   string           `json:"transactionId,omitempty"`
}

type CheckStatusResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Result  *StatusResult   `json:"result"`
}

type VerifyPayPalRequest struct {
	OrderID         string           `json:"orderId"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	MerchantOrderID string           `json:"merchantOrderId,omitempty"`
}

type VerifyPayPalResponse struct {
	Verified        bool   `json:"verified"`
	PaymentStatus   string `json:"paymentStatus"`
	MerchantOrderID string `json:"merchantOrderId,omitempty"`
}

type MissingFieldsResponse struct {
	Error    string              `json:"error"`
	Received VerifyPayPalRequest `json:"received"`
}

type QuoteItem struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

type QuoteRequest struct {
	Items []QuoteItem `json:"items"`
}

type MinimumPurchase struct {
	Current  decimal.Decimal `json:"current"`
	Required decimal.Decimal `json:"required"`
	Deficit  decimal.Decimal `json:"deficit"`
	Message  string          `json:"message"`
}

type QuoteResponse struct {
	Lines           []pricing.Line   `json:"lines"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Shipping        decimal.Decimal  `json:"shipping"`
	Total           decimal.Decimal  `json:"total"`
	Count           int              `json:"count"`
	CanCheckout     bool             `json:"canCheckout"`
	MinimumPurchase *MinimumPurchase `json:"minimumPurchase,omitempty"`
}

// ProfileUpdate carries only the fields the buyer changed.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Pincode *string `json:"pincode,omitempty"`
	Country *string `json:"country,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}
