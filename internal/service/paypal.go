package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"

	"gorm.io/gorm"
)

type PaypalService interface {
	VerifyOrder(ctx context.Context, req *dto.VerifyPayPalRequest) (*dto.VerifyPayPalResponse, error)
}

type paypalServiceImpl struct {
	gateway    *gateway.Gateway
	orderRepo  repository.OrderRepository
	reconciler ReconcilerService
	logger     *slog.Logger
}

func NewPaypalService(
	gw *gateway.Gateway,
	orderRepo repository.OrderRepository,
	reconciler ReconcilerService,
	logger *slog.Logger,
) PaypalService {
	return &paypalServiceImpl{
		gateway:    gw,
		orderRepo:  orderRepo,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *paypalServiceImpl) VerifyOrder(ctx context.Context, req *dto.VerifyPayPalRequest) (*dto.VerifyPayPalResponse, error) {
	if req.OrderID == "" || req.Amount == nil || req.Currency == "" {
		return nil, apperr.Validation("Missing required fields")
	}

	order, err := s.findTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.Verifier.VerifyOrder(ctx, &gateway.VerifyRequest{
		OrderID:  req.OrderID,
		Amount:   *req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			s.logger.ErrorContext(ctx, "paypal lookup failed", "paypal_order_id", req.OrderID,
				"code", appErr.Kind.String(), "detail", appErr.Detail, "err", err)
		} else {
			s.logger.ErrorContext(ctx, "paypal lookup failed", "paypal_order_id", req.OrderID, "err", err)
		}
		return nil, err
	}

	resp := &dto.VerifyPayPalResponse{
		Verified:      res.Outcome == gateway.OutcomeSuccess,
		PaymentStatus: string(res.Outcome.StoreStatus()),
	}
	if order == nil {
		return resp, nil
	}

	resp.MerchantOrderID = order.MerchantOrderID
	if _, err := s.reconciler.Apply(ctx, order, res, SourceVerify); err != nil {
		return nil, err
	}
	return resp, nil
}

// findTarget resolves the single order a verification applies to. A nil order
// with nil error means nothing matched and only the verdict is returned.
func (s *paypalServiceImpl) findTarget(ctx context.Context, req *dto.VerifyPayPalRequest) (*model.Order, error) {
	if req.MerchantOrderID != "" {
		order, err := s.orderRepo.FindByMerchantOrderID(ctx, req.MerchantOrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.WarnContext(ctx, "no order for paypal verification", "merchant_order_id", req.MerchantOrderID)
			return nil, nil
		}
		if err != nil {
			return nil, apperr.Persistence(fmt.Errorf("find order: %w", err))
		}
		if order.GatewayOrderID != "" && order.GatewayOrderID != req.OrderID {
			return nil, apperr.Conflict("order is linked to a different PayPal order")
		}
		return order, nil
	}

	orders, err := s.orderRepo.FindByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("find orders by paypal id: %w", err))
	}
	switch len(orders) {
	case 0:
		s.logger.WarnContext(ctx, "no order for paypal verification", "paypal_order_id", req.OrderID)
		return nil, nil
	case 1:
		return orders[0], nil
	default:
		return nil, apperr.Conflict("several orders match this PayPal order, pass merchantOrderId")
	}
}
