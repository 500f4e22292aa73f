package repository

import (
	"context"
	"stationery-storefront/internal/model"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*model.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]*model.Order, error)
	TransitionFromPending(ctx context.Context, tx *gorm.DB, merchantOrderID string, update *StatusUpdate) (bool, error)
	RecordCheck(ctx context.Context, merchantOrderID, rawResponse string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error)
	ListStalePending(ctx context.Context, method model.PaymentMethod, createdBefore, createdAfter time.Time, limit int) ([]*model.Order, error)
}

// StatusUpdate is applied only to orders still PENDING.
type StatusUpdate struct {
	Status              model.OrderStatus
	StatusCheckResponse string
	TransactionID       string
	GatewayOrderID      string
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the order together with its items.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("merchant_order_id = ?", merchantOrderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// TransitionFromPending reports whether this call moved the order out of PENDING.
// A false result with nil error means the order was already terminal or missing.
func (r *orderRepoImpl) TransitionFromPending(ctx context.Context, tx *gorm.DB, merchantOrderID string, update *StatusUpdate) (bool, error) {
	fields := map[string]interface{}{
		"status":                update.Status,
		"status_check_response": update.StatusCheckResponse,
		"updated_at":            time.Now(),
	}
	if update.TransactionID != "" {
		fields["transaction_id"] = update.TransactionID
	}
	if update.GatewayOrderID != "" {
		fields["gateway_order_id"] = update.GatewayOrderID
	}

	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("merchant_order_id = ? AND status = ?", merchantOrderID, model.OrderPending).
		Updates(fields)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RecordCheck stores the latest gateway response of an order that stays PENDING.
func (r *orderRepoImpl) RecordCheck(ctx context.Context, merchantOrderID, rawResponse string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("merchant_order_id = ? AND status = ?", merchantOrderID, model.OrderPending).
		Updates(map[string]interface{}{
			"status_check_response": rawResponse,
			"updated_at":            time.Now(),
		}).Error
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListStalePending(ctx context.Context, method model.PaymentMethod, createdBefore, createdAfter time.Time, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_method = ?", model.OrderPending, method).
		Where("created_at < ? AND created_at > ?", createdBefore, createdAfter).
		Order("created_at").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}
