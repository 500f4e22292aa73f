package service

import (
	"context"
	"errors"
	"fmt"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"

	"gorm.io/gorm"
)

const ordersPageSize = 50

type OrderService interface {
	// GetOrder only returns orders owned by userID.
	GetOrder(ctx context.Context, userID, merchantOrderID string) (*model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*model.Order, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderServiceImpl{orderRepo: orderRepo}
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, userID, merchantOrderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByMerchantOrderID(ctx, merchantOrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("find order: %w", err))
	}
	if order.UserID != userID {
		return nil, apperr.NotFound("order not found")
	}
	return order, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID, ordersPageSize)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("list orders: %w", err))
	}
	return orders, nil
}
