package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/pricing"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type Buyer struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

type PaymentAPI interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
}

// Checkout is a started payment the buyer should now be redirected for.
type Checkout struct {
	MerchantOrderID string
	PaymentURL      string
	IdempotencyKey  string
	Total           decimal.Decimal
}

var ErrNoRedirect = errors.New("payment initiation failed: no redirect url")

type Initiator struct {
	api       PaymentAPI
	snapshots SnapshotStore
	minimum   decimal.Decimal
	logger    *slog.Logger

	now    func() time.Time
	newKey func() string

	mu   sync.Mutex
	last *attempt
}

// NewInitiator builds an Initiator. snapshots may be nil.
func NewInitiator(api PaymentAPI, snapshots SnapshotStore, minimum decimal.Decimal, logger *slog.Logger) *Initiator {
	return &Initiator{
		api:       api,
		snapshots: snapshots,
		minimum:   minimum,
		logger:    logger,
		now:       time.Now,
		newKey:    uuid.NewString,
	}
}

// InitiateCheckout validates the buyer and cart, then creates a payment intent.
// Nothing is sent when validation fails. The cart is cleared only once a
// redirect url has been obtained; on any error it is left as it was. A retry
// of the same cart after a timeout reuses the order id and idempotency key.
func (i *Initiator) InitiateCheckout(ctx context.Context, cart *pricing.Cart, buyer Buyer) (*Checkout, error) {
	if err := validateBuyer(cart, &buyer); err != nil {
		return nil, err
	}

	// the minimum applies to the items alone; shipping is charged on top
	if err := pricing.CheckMinimumPurchase(cart.Subtotal(), i.minimum); err != nil {
		return nil, err
	}

	total := cart.Total()
	items := cartItems(cart)
	at := i.attemptFor(checkoutFingerprint(items, buyer))
	orderID, key := at.orderID, at.key

	i.saveSnapshot(&OrderSnapshot{
		OrderID:     orderID,
		Items:       items,
		TotalAmount: total,
		Buyer:       buyer,
		CreatedAt:   i.now().UTC(),
		Status:      "PENDING",
	})

	resp, err := i.api.CreatePayment(ctx, &dto.CreatePaymentRequest{
		Amount:         total,
		OrderID:        orderID,
		UserID:         buyer.UserID,
		UserPhone:      buyer.Phone,
		UserName:       buyer.Name,
		UserEmail:      buyer.Email,
		Items:          items,
		IdempotencyKey: key,
	})
	if err != nil {
		if !outcomeUnknown(err) {
			i.forget(at)
		}
		return nil, err
	}
	i.forget(at)
	if !resp.Success || resp.PaymentURL == "" {
		return nil, ErrNoRedirect
	}

	cart.Clear()
	return &Checkout{
		MerchantOrderID: resp.MerchantOrderID,
		PaymentURL:      resp.PaymentURL,
		IdempotencyKey:  key,
		Total:           total,
	}, nil
}

type attempt struct {
	fingerprint string
	orderID     string
	key         string
}

// attemptFor returns the unfinished attempt for the same cart and buyer, so a
// resubmission replays on the server, or starts a new one.
func (i *Initiator) attemptFor(fingerprint string) *attempt {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.last != nil && i.last.fingerprint == fingerprint {
		return i.last
	}
	i.last = &attempt{
		fingerprint: fingerprint,
		orderID:     fmt.Sprintf("ORD_%d", i.now().UnixMilli()),
		key:         i.newKey(),
	}
	return i.last
}

func (i *Initiator) forget(at *attempt) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.last == at {
		i.last = nil
	}
}

// outcomeUnknown reports whether the server may still have acted on the
// request: transport failures, timeouts and an in-flight conflict.
func outcomeUnknown(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusConflict
	}
	return true
}

func checkoutFingerprint(items []dto.CartItem, buyer Buyer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s", buyer.UserID, buyer.Name, buyer.Email, buyer.Phone)
	for _, it := range items {
		fmt.Fprintf(&b, "|%s:%d:%s:%s", it.ID, it.Quantity, it.Size, it.Price.String())
	}
	return b.String()
}

func validateBuyer(cart *pricing.Cart, buyer *Buyer) error {
	if cart.Len() == 0 {
		return apperr.Validation("Add some items before checkout.")
	}

	buyer.Name = strings.TrimSpace(buyer.Name)
	buyer.Email = strings.TrimSpace(buyer.Email)
	buyer.Phone = strings.TrimSpace(buyer.Phone)
	if buyer.Name == "" || buyer.Email == "" || buyer.Phone == "" {
		return apperr.Validation("Please fill in all your details.")
	}
	if !phonePattern.MatchString(buyer.Phone) {
		return apperr.Validation("Please enter a valid 10-digit phone number.")
	}
	return nil
}

func cartItems(cart *pricing.Cart) []dto.CartItem {
	items := cart.Items()
	out := make([]dto.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, dto.CartItem{
			ID:            it.ID,
			Name:          it.Name,
			Price:         it.Price,
			MRP:           it.MRP,
			Quantity:      it.Quantity,
			Size:          it.Size,
			ShippingPrice: it.ShippingPrice,
		})
	}
	return out
}

func (i *Initiator) saveSnapshot(snap *OrderSnapshot) {
	if i.snapshots == nil {
		return
	}
	if err := i.snapshots.Save(snap); err != nil {
		i.logger.Warn("save order snapshot", "order_id", snap.OrderID, "err", err)
	}
}
