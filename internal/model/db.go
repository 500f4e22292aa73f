package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "PENDING"
	OrderSuccess OrderStatus = "SUCCESS"
	OrderFailed  OrderStatus = "FAILED"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderSuccess || s == OrderFailed
}

type PaymentMethod string

const (
	PaymentPhonePe PaymentMethod = "PHONEPE"
	PaymentPayPal  PaymentMethod = "PAYPAL"
)

type Product struct {
	ID            string           `gorm:"primaryKey;size:64;not null" json:"id"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	Category      string           `gorm:"size:64;index" json:"category"`
	Price         decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	Discount      decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"discount"` // percent
	MRP           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"mrp,omitempty"`
	MOQ           int              `gorm:"not null;default:1" json:"moq"`
	ShippingPrice *decimal.Decimal `gorm:"type:decimal(12,2)" json:"shippingPrice,omitempty"`
	Stock         int              `gorm:"not null;default:0" json:"stock"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Order is the authoritative record of one checkout attempt.
type Order struct {
	MerchantOrderID string          `gorm:"primaryKey;size:64;not null" json:"merchantOrderId"`
	GatewayOrderID  string          `gorm:"size:64;index" json:"gatewayOrderId,omitempty"` // provider-side id (PayPal order id)
	IdempotencyKey  string          `gorm:"size:128;index" json:"-"`
	UserID          string          `gorm:"size:128;index" json:"userId"`
	UserName        string          `gorm:"size:255" json:"userName"`
	UserEmail       string          `gorm:"size:255" json:"userEmail"`
	UserPhone       string          `gorm:"size:32" json:"userPhone"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // major units, as provided
	Currency        string          `gorm:"size:8;not null" json:"currency"`
	Status          OrderStatus     `gorm:"size:16;index;not null" json:"status"`
	// last raw gateway body, verbatim
	StatusCheckResponse string        `gorm:"type:text" json:"statusCheckResponse,omitempty"`
	TransactionID       string        `gorm:"size:128" json:"transactionId,omitempty"`
	PaymentMethod       PaymentMethod `gorm:"size:16;not null" json:"paymentMethod"`
	Environment         string        `gorm:"size:16" json:"environment"`
	Items               []OrderItem   `gorm:"foreignKey:MerchantOrderID;references:MerchantOrderID" json:"items,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

type OrderItem struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// FK → order.merchant_order_id
	MerchantOrderID string           `gorm:"size:64;index;not null" json:"-"`
	ProductID       string           `gorm:"size:64;index;not null" json:"id"`
	Name            string           `gorm:"size:255" json:"name"`
	Size            string           `gorm:"size:255" json:"size"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	MRP             *decimal.Decimal `gorm:"type:decimal(12,2)" json:"mrp,omitempty"`
	ShippingPrice   *decimal.Decimal `gorm:"type:decimal(12,2)" json:"shippingPrice,omitempty"`
	CreatedAt       time.Time        `json:"-"`
}

// UserProfile is keyed by the auth subject id and prefills checkout forms.
type UserProfile struct {
	UID       string    `gorm:"primaryKey;size:128;not null" json:"uid"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Address   string    `gorm:"size:512" json:"address"`
	City      string    `gorm:"size:128" json:"city"`
	Pincode   string    `gorm:"size:16" json:"pincode"`
	Country   string    `gorm:"size:64" json:"country"`
	Notes     string    `gorm:"size:512" json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type IdempotencyState string

const (
	IdempotencyInFlight  IdempotencyState = "IN_FLIGHT"
	IdempotencyCompleted IdempotencyState = "COMPLETED"
)

// IdempotencyRecord maps a client checkout token to the intent it produced.
type IdempotencyRecord struct {
	Key             string           `gorm:"primaryKey;size:128;not null" json:"key"`
	MerchantOrderID string           `gorm:"size:64;not null" json:"merchantOrderId"`
	State           IdempotencyState `gorm:"size:16;not null" json:"state"`
	PaymentURL      string           `gorm:"type:text" json:"paymentUrl,omitempty"`
	Response        string           `gorm:"type:text" json:"response,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:255;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
