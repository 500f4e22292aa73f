package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/client"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/events"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"
	"time"

	"gorm.io/gorm"
)

const (
	SourceCheck    = "check"
	SourceCallback = "callback"
	SourceSweep    = "sweep"
	SourceVerify   = "verify"
)

type SweepPolicy struct {
	Interval time.Duration
	MinAge   time.Duration
	MaxAge   time.Duration
	Batch    int
}

type StatusCheck struct {
	Data   json.RawMessage
	Result *dto.StatusResult
}

type ReconcilerService interface {
	CheckStatus(ctx context.Context, merchantOrderID string) (*StatusCheck, error)
	// Apply writes a gateway result onto order. Only a PENDING -> terminal move
	// is persisted as a status change, and only that move publishes an event.
	Apply(ctx context.Context, order *model.Order, res *gateway.Result, source string) (*model.Order, error)
	RunSweeper(ctx context.Context)
}

type reconcilerServiceImpl struct {
	gateway   *gateway.Gateway
	orderRepo repository.OrderRepository
	publisher events.Publisher
	sweep     SweepPolicy
	logger    *slog.Logger
}

func NewReconcilerService(
	gw *gateway.Gateway,
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	sweep SweepPolicy,
	logger *slog.Logger,
) ReconcilerService {
	return &reconcilerServiceImpl{
		gateway:   gw,
		orderRepo: orderRepo,
		publisher: publisher,
		sweep:     sweep,
		logger:    logger,
	}
}

func (s *reconcilerServiceImpl) CheckStatus(ctx context.Context, merchantOrderID string) (*StatusCheck, error) {
	if merchantOrderID == "" {
		return nil, apperr.Validation("merchantOrderId needed")
	}

	order, err := s.orderRepo.FindByMerchantOrderID(ctx, merchantOrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Persistence(fmt.Errorf("find order: %w", err))
	}
	if order != nil && order.Status.Terminal() {
		return storedCheck(order), nil
	}
	if order != nil && order.PaymentMethod != model.PaymentPhonePe {
		// PayPal verdicts only arrive through verifyPayPalOrder.
		return storedCheck(order), nil
	}

	res, err := s.gateway.Status.QueryStatus(ctx, merchantOrderID)
	if err != nil {
		s.logGatewayError(ctx, "status check failed", merchantOrderID, err)
		return nil, err
	}

	if order == nil {
		// Intent succeeded but the order row is not written yet; answer from the gateway alone.
		s.logger.WarnContext(ctx, "status check for unknown order", "merchant_order_id", merchantOrderID, "outcome", res.Outcome)
	} else if order, err = s.Apply(ctx, order, res, SourceCheck); err != nil {
		return nil, err
	}

	result := resultView(merchantOrderID, res)
	if order != nil && order.Status.Terminal() && order.Status != res.Outcome.StoreStatus() {
		// lost a race to a callback with a different verdict
		return storedCheck(order), nil
	}
	if res.Outcome == gateway.OutcomeUnknown {
		s.logger.WarnContext(ctx, "unmapped gateway status", "merchant_order_id", merchantOrderID,
			"code", res.Code, "err", apperr.UnknownStatus(res.Code))
	}
	return &StatusCheck{Data: res.Raw, Result: result}, nil
}

func (s *reconcilerServiceImpl) Apply(ctx context.Context, order *model.Order, res *gateway.Result, source string) (*model.Order, error) {
	if !res.Outcome.Terminal() {
		if err := s.orderRepo.RecordCheck(ctx, order.MerchantOrderID, string(res.Raw)); err != nil {
			s.logger.ErrorContext(ctx, "record status check", "merchant_order_id", order.MerchantOrderID, "err", err)
		}
		return order, nil
	}

	update := &repository.StatusUpdate{
		Status:              res.Outcome.StoreStatus(),
		StatusCheckResponse: string(res.Raw),
		TransactionID:       res.TransactionID,
	}
	if res.Provider == gateway.ProviderPayPal {
		update.GatewayOrderID = res.OrderID
	}

	moved, err := s.orderRepo.TransitionFromPending(ctx, nil, order.MerchantOrderID, update)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("update order status: %w", err))
	}
	if !moved {
		current, err := s.orderRepo.FindByMerchantOrderID(ctx, order.MerchantOrderID)
		if err != nil {
			return nil, apperr.Persistence(fmt.Errorf("reload order: %w", err))
		}
		return current, nil
	}

	s.logger.InfoContext(ctx, "order status changed",
		"merchant_order_id", order.MerchantOrderID,
		"status", update.Status,
		"outcome", res.Outcome,
		"source", source,
	)

	order.Status = update.Status
	order.StatusCheckResponse = update.StatusCheckResponse
	if update.TransactionID != "" {
		order.TransactionID = update.TransactionID
	}

	err = events.PublishPaymentStatusChanged(ctx, s.publisher, events.PaymentStatusChanged{
		MerchantOrderID: order.MerchantOrderID,
		UserID:          order.UserID,
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		Outcome:         string(res.Outcome),
		Amount:          order.Amount,
		AmountPaid:      res.Amount,
		Currency:        order.Currency,
		TransactionID:   res.TransactionID,
		Source:          source,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "publish status change", "merchant_order_id", order.MerchantOrderID, "err", err)
	}
	return order, nil
}

func (s *reconcilerServiceImpl) RunSweeper(ctx context.Context) {
	if s.sweep.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := s.sweepOnce(ctx); err != nil {
			s.logger.Error("pending order sweep failed", "err", err)
		}
	}
}

func (s *reconcilerServiceImpl) sweepOnce(ctx context.Context) error {
	now := time.Now()
	orders, err := s.orderRepo.ListStalePending(ctx, model.PaymentPhonePe,
		now.Add(-s.sweep.MinAge), now.Add(-s.sweep.MaxAge), s.sweep.Batch)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return nil
		}
		res, err := s.gateway.Status.QueryStatus(ctx, order.MerchantOrderID)
		if err != nil {
			s.logGatewayError(ctx, "sweep status check failed", order.MerchantOrderID, err)
			continue
		}
		if _, err := s.Apply(ctx, order, res, SourceSweep); err != nil {
			s.logger.ErrorContext(ctx, "sweep apply failed", "merchant_order_id", order.MerchantOrderID, "err", err)
		}
	}
	return nil
}

func (s *reconcilerServiceImpl) logGatewayError(ctx context.Context, msg, merchantOrderID string, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		s.logger.ErrorContext(ctx, msg, "merchant_order_id", merchantOrderID,
			"code", appErr.Kind.String(), "detail", appErr.Detail, "err", err)
		return
	}
	s.logger.ErrorContext(ctx, msg, "merchant_order_id", merchantOrderID, "err", err)
}

func resultView(merchantOrderID string, res *gateway.Result) *dto.StatusResult {
	view := &dto.StatusResult{
		MerchantOrderID: merchantOrderID,
		Outcome:         string(res.Outcome),
		Status:          string(res.Outcome.StoreStatus()),
		Message:         res.Outcome.Message(),
		Terminal:        res.Outcome.Terminal(),
	}
	if res.Outcome == gateway.OutcomeSuccess {
		view.AmountPaid = res.Amount
		view.TransactionID = res.TransactionID
	}
	return view
}

// storedCheck answers for a terminal order without calling the gateway. The
// stored PhonePe response is re-read so CANCELLED and UNKNOWN survive.
func storedCheck(order *model.Order) *StatusCheck {
	res := &gateway.Result{
		OrderID:       order.MerchantOrderID,
		Outcome:       gateway.OutcomeFromStatus(order.Status),
		TransactionID: order.TransactionID,
		Raw:           json.RawMessage(order.StatusCheckResponse),
	}

	if order.PaymentMethod == model.PaymentPhonePe && order.StatusCheckResponse != "" {
		var st client.PhonePeOrderStatus
		if err := json.Unmarshal([]byte(order.StatusCheckResponse), &st); err == nil {
			parsed := gateway.PhonePeResult(order.MerchantOrderID, &st)
			if parsed.Outcome.StoreStatus() == order.Status {
				res.Outcome = parsed.Outcome
				res.Amount = parsed.Amount
			}
		}
	}
	if res.Amount == nil {
		amount := order.Amount
		res.Amount = &amount
	}
	if len(res.Raw) == 0 {
		res.Raw = nil
	}

	return &StatusCheck{Data: res.Raw, Result: resultView(order.MerchantOrderID, res)}
}
