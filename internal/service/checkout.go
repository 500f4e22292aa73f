package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,63}$`)
)

type CheckoutService interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	// Shutdown waits for background order writes to finish or ctx to end.
	Shutdown(ctx context.Context) error
}

type CheckoutOptions struct {
	Currency       string
	Environment    string
	PersistRetries int
}

type checkoutServiceImpl struct {
	gateway     *gateway.Gateway
	orderRepo   repository.OrderRepository
	idempotency repository.IdempotencyStore
	opts        CheckoutOptions
	logger      *slog.Logger

	retryDelay func(attempt int) time.Duration

	// mu orders pending.Add against Shutdown's Wait.
	mu       sync.Mutex
	closing  bool
	pending  sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewCheckoutService(
	gw *gateway.Gateway,
	orderRepo repository.OrderRepository,
	idempotency repository.IdempotencyStore,
	opts CheckoutOptions,
	logger *slog.Logger,
) CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &checkoutServiceImpl{
		gateway:     gw,
		orderRepo:   orderRepo,
		idempotency: idempotency,
		opts:        opts,
		logger:      logger,
		retryDelay:  retryDelay,
		stop:        make(chan struct{}),
	}
}

func (s *checkoutServiceImpl) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		req.OrderID = fmt.Sprintf("ORD_%d", time.Now().UnixMilli())
	}
	if strings.EqualFold(req.PaymentMethod, string(model.PaymentPayPal)) {
		return s.recordPayPalOrder(ctx, req)
	}

	if req.IdempotencyKey != "" {
		rec, fresh, err := s.idempotency.Reserve(ctx, req.IdempotencyKey, req.OrderID)
		if err != nil {
			return nil, apperr.Persistence(fmt.Errorf("reserve idempotency key: %w", err))
		}
		if !fresh {
			return replay(rec)
		}
	}

	intent, err := s.gateway.Intents.CreateIntent(ctx, &gateway.IntentRequest{
		MerchantOrderID: req.OrderID,
		Amount:          req.Amount,
		UserID:          req.UserID,
		UserPhone:       req.UserPhone,
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
	})
	if err != nil {
		s.releaseKey(req.IdempotencyKey)
		s.logIntentError(ctx, req.OrderID, err)
		return nil, err
	}

	order := s.buildOrder(req, model.PaymentPhonePe, intent.GatewayOrderID)
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		s.logger.ErrorContext(ctx, "persist order after intent, retrying in background",
			"merchant_order_id", order.MerchantOrderID, "err", err)
		s.persistInBackground(order)
	}

	resp := &dto.CreatePaymentResponse{
		Success:         true,
		Data:            intent.Raw,
		PaymentURL:      intent.RedirectURL,
		MerchantOrderID: req.OrderID,
	}
	if req.IdempotencyKey != "" {
		s.completeKey(ctx, req.IdempotencyKey, resp)
	}
	return resp, nil
}

func (s *checkoutServiceImpl) recordPayPalOrder(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	if req.GatewayOrderID == "" {
		return nil, apperr.Validation("gatewayOrderId is required for PayPal orders")
	}

	order := s.buildOrder(req, model.PaymentPayPal, req.GatewayOrderID)
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("order already exists")
		}
		return nil, apperr.Persistence(fmt.Errorf("create paypal order: %w", err))
	}

	return &dto.CreatePaymentResponse{
		Success:         true,
		MerchantOrderID: order.MerchantOrderID,
	}, nil
}

func validatePaymentRequest(req *dto.CreatePaymentRequest) error {
	if !req.Amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero")
	}
	if req.OrderID != "" && !orderIDPattern.MatchString(req.OrderID) {
		return apperr.Validation("orderId may only contain letters, digits, '_' and '-'")
	}
	if req.UserPhone != "" && !phonePattern.MatchString(req.UserPhone) {
		return apperr.Validation("Please enter a valid 10-digit phone number")
	}
	for _, it := range req.Items {
		if it.ID == "" || it.Quantity <= 0 {
			return apperr.Validation("every item needs an id and a positive quantity")
		}
	}
	return nil
}

func (s *checkoutServiceImpl) buildOrder(req *dto.CreatePaymentRequest, method model.PaymentMethod, gatewayOrderID string) *model.Order {
	currency := req.Currency
	if currency == "" {
		currency = s.opts.Currency
	}

	order := &model.Order{
		MerchantOrderID: req.OrderID,
		GatewayOrderID:  gatewayOrderID,
		IdempotencyKey:  req.IdempotencyKey,
		UserID:          req.UserID,
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		UserPhone:       req.UserPhone,
		Amount:          req.Amount,
		Currency:        strings.ToUpper(currency),
		Status:          model.OrderPending,
		PaymentMethod:   method,
		Environment:     s.opts.Environment,
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, model.OrderItem{
			MerchantOrderID: req.OrderID,
			ProductID:       it.ID,
			Name:            it.Name,
			Size:            it.Size,
			Quantity:        it.Quantity,
			UnitPrice:       it.Price,
			MRP:             it.MRP,
			ShippingPrice:   it.ShippingPrice,
		})
	}
	return order
}

func replay(rec *model.IdempotencyRecord) (*dto.CreatePaymentResponse, error) {
	if rec.State != model.IdempotencyCompleted {
		return nil, apperr.Conflict("a checkout with this idempotency key is already in progress")
	}

	var resp dto.CreatePaymentResponse
	if err := json.Unmarshal([]byte(rec.Response), &resp); err != nil {
		resp = dto.CreatePaymentResponse{
			Success:         true,
			PaymentURL:      rec.PaymentURL,
			MerchantOrderID: rec.MerchantOrderID,
		}
	}
	resp.Replayed = true
	return &resp, nil
}

func (s *checkoutServiceImpl) completeKey(ctx context.Context, key string, resp *dto.CreatePaymentResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal idempotent response", "err", err)
		return
	}
	if err := s.idempotency.Complete(ctx, key, resp.PaymentURL, string(b)); err != nil {
		s.logger.ErrorContext(ctx, "complete idempotency key", "merchant_order_id", resp.MerchantOrderID, "err", err)
	}
}

// releaseKey frees the key after a failed intent so the buyer can retry with it.
func (s *checkoutServiceImpl) releaseKey(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Error("release idempotency key", "err", err)
	}
}

func (s *checkoutServiceImpl) logIntentError(ctx context.Context, merchantOrderID string, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		s.logger.ErrorContext(ctx, "create payment intent failed", "merchant_order_id", merchantOrderID,
			"code", appErr.Kind.String(), "detail", appErr.Detail, "err", err)
		return
	}
	s.logger.ErrorContext(ctx, "create payment intent failed", "merchant_order_id", merchantOrderID, "err", err)
}

// persistInBackground keeps trying to write an order whose payment intent already exists.
func (s *checkoutServiceImpl) persistInBackground(order *model.Order) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Error("order left unsaved at shutdown", "merchant_order_id", order.MerchantOrderID,
			"amount", order.Amount.String())
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()

		for attempt := 1; attempt <= s.opts.PersistRetries; attempt++ {
			select {
			case <-s.stop:
				s.logger.Error("order left unsaved at shutdown", "merchant_order_id", order.MerchantOrderID)
				return
			case <-time.After(s.retryDelay(attempt)):
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.orderRepo.Create(ctx, nil, order)
			if err != nil {
				if _, findErr := s.orderRepo.FindByMerchantOrderID(ctx, order.MerchantOrderID); findErr == nil {
					err = nil
				}
			}
			cancel()

			if err == nil {
				s.logger.Info("order persisted after retry", "merchant_order_id", order.MerchantOrderID, "attempt", attempt)
				return
			}
			s.logger.Warn("order persist retry failed", "merchant_order_id", order.MerchantOrderID, "attempt", attempt, "err", err)
		}
		s.logger.Error("order persist gave up, payment intent has no local record",
			"merchant_order_id", order.MerchantOrderID, "amount", order.Amount.String())
	}()
}

func (s *checkoutServiceImpl) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.stopOnce.Do(func() { close(s.stop) })
		<-done
		return ctx.Err()
	}
}

func retryDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 5 {
		attempts = 5
	}
	delay := time.Duration(1<<attempts) * time.Second
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}
