package service

import (
	"context"
	"errors"
	"fmt"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/pricing"
	"stationery-storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type CatalogService interface {
	ListProducts(ctx context.Context, category string) ([]*model.Product, error)
	Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error)
}

type catalogServiceImpl struct {
	productRepo     repository.ProductRepository
	minimumPurchase decimal.Decimal
}

func NewCatalogService(productRepo repository.ProductRepository, minimumPurchase decimal.Decimal) CatalogService {
	return &catalogServiceImpl{
		productRepo:     productRepo,
		minimumPurchase: minimumPurchase,
	}
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context, category string) ([]*model.Product, error) {
	products, err := s.productRepo.List(ctx, category)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("list products: %w", err))
	}
	return products, nil
}

func (s *catalogServiceImpl) Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("cart is empty")
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindMany(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("get many products by item ids: %w", err))
	}
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// later entries for the same product replace earlier ones, as in the cart
	cart := pricing.NewCart()
	lines := make(map[string]pricing.Line)
	seen := make(map[string]bool)
	var order []string
	for _, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown product %q", item.ProductID))
		}

		pp := toPricingProduct(p)
		if !cart.SetSize(pp, item.Size) {
			delete(lines, p.ID)
			continue
		}
		if !seen[p.ID] {
			seen[p.ID] = true
			order = append(order, p.ID)
		}
		lines[p.ID] = pricing.PriceLine(pp, item.Size)
	}

	resp := &dto.QuoteResponse{CanCheckout: true}
	for _, id := range order {
		line, ok := lines[id]
		if !ok {
			continue
		}
		if line.BelowMOQ {
			resp.CanCheckout = false
		}
		resp.Lines = append(resp.Lines, line)
	}

	resp.Subtotal = cart.Subtotal()
	resp.Shipping = cart.ShippingTotal()
	resp.Total = cart.Total()
	resp.Count = cart.Count()
	if cart.Len() == 0 {
		resp.CanCheckout = false
	}

	var mpe *pricing.MinimumPurchaseError
	if err := pricing.CheckMinimumPurchase(resp.Subtotal, s.minimumPurchase); errors.As(err, &mpe) {
		resp.CanCheckout = false
		resp.MinimumPurchase = &dto.MinimumPurchase{
			Current:  mpe.Current,
			Required: mpe.Required,
			Deficit:  mpe.Deficit(),
			Message:  mpe.Error(),
		}
	}
	return resp, nil
}

func toPricingProduct(p *model.Product) pricing.Product {
	return pricing.Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Discount:      p.Discount,
		MRP:           p.MRP,
		MOQ:           p.MOQ,
		ShippingPrice: p.ShippingPrice,
	}
}
