package repository

import (
	"context"
	"stationery-storefront/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	List(ctx context.Context, category string) ([]*model.Product, error)
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	products := []model.Product{
		{ID: "nb-a5-ruled", Name: "A5 Ruled Notebook", Category: "notebooks", Price: money("100"), Discount: money("20"), MOQ: 10, ShippingPrice: moneyPtr("2"), Stock: 5000},
		{ID: "nb-a4-spiral", Name: "A4 Spiral Notebook", Category: "notebooks", Price: money("180"), Discount: money("10"), MRP: moneyPtr("220"), MOQ: 5, ShippingPrice: moneyPtr("4"), Stock: 2000},
		{ID: "pen-gel-blue", Name: "Gel Pen (Blue)", Category: "pens", Price: money("15"), Discount: money("0"), MOQ: 50, Stock: 20000},
		{ID: "pen-ball-black", Name: "Ball Pen (Black)", Category: "pens", Price: money("8"), Discount: money("5"), MOQ: 100, Stock: 50000},
		{ID: "tee-custom", Name: "Custom Printed T-Shirt", Category: "merch", Price: money("450"), Discount: money("15"), MOQ: 10, ShippingPrice: moneyPtr("25"), Stock: 800},
		{ID: "file-clip", Name: "Clip File Folder", Category: "office", Price: money("60"), Discount: money("0"), MOQ: 1, Stock: 3000},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) List(ctx context.Context, category string) ([]*model.Product, error) {
	var products []*model.Product
	q := r.db.WithContext(ctx).Order("category, id")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}
