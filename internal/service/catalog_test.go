package service

import (
	"context"
	"testing"

	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/model"
	"stationery-storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(t *testing.T) CatalogService {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	require.NoError(t, products.Seed(context.Background()))
	require.NoError(t, db.Create(&model.Product{
		ID:       "sticky-notes",
		Name:     "Sticky Notes Pack",
		Category: "office",
		Price:    decimal.NewFromInt(100),
		Discount: decimal.Zero,
		MOQ:      1,
	}).Error)
	return NewCatalogService(products, decimal.NewFromInt(1000))
}

func TestQuoteSizeString(t *testing.T) {
	svc := newCatalogFixture(t)

	resp, err := svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "nb-a5-ruled", Size: "S:10, M:5"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)

	line := resp.Lines[0]
	assert.Equal(t, 15, line.Quantity)
	assert.Equal(t, "80", line.UnitPrice.String())
	assert.Equal(t, "1200", line.LineTotal.String())
	assert.Equal(t, "1200", resp.Subtotal.String())
	assert.Equal(t, "30", resp.Shipping.String())
	assert.Equal(t, "1230", resp.Total.String())
	assert.Equal(t, 15, resp.Count)
	assert.True(t, resp.CanCheckout)
	assert.Nil(t, resp.MinimumPurchase)
}

func TestQuoteBelowMinimumPurchase(t *testing.T) {
	svc := newCatalogFixture(t)

	resp, err := svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "sticky-notes", Size: "5"},
	}})
	require.NoError(t, err)
	assert.False(t, resp.CanCheckout)
	require.NotNil(t, resp.MinimumPurchase)
	assert.Equal(t, "500", resp.MinimumPurchase.Current.String())
	assert.Equal(t, "1000", resp.MinimumPurchase.Required.String())
	assert.Equal(t, "500", resp.MinimumPurchase.Deficit.String())
	assert.Contains(t, resp.MinimumPurchase.Message, "Rs 500")
	assert.Contains(t, resp.MinimumPurchase.Message, "Rs 1000")
}

func TestQuoteMinimumPurchaseUsesSubtotal(t *testing.T) {
	db := newTestDB(t)
	products := repository.NewProductRepository(db)
	shipping := decimal.NewFromInt(10)
	require.NoError(t, db.Create(&model.Product{
		ID:            "gift-box",
		Name:          "Gift Box",
		Category:      "gifting",
		Price:         decimal.NewFromInt(95),
		Discount:      decimal.Zero,
		MOQ:           1,
		ShippingPrice: &shipping,
	}).Error)
	svc := NewCatalogService(products, decimal.NewFromInt(1000))

	resp, err := svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "gift-box", Size: "10"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "950", resp.Subtotal.String())
	assert.Equal(t, "1050", resp.Total.String())
	assert.False(t, resp.CanCheckout)
	require.NotNil(t, resp.MinimumPurchase)
	assert.Equal(t, "950", resp.MinimumPurchase.Current.String())
	assert.Equal(t, "50", resp.MinimumPurchase.Deficit.String())
}

func TestQuoteBelowMOQ(t *testing.T) {
	svc := newCatalogFixture(t)

	resp, err := svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "tee-custom", Size: "M:4"},
		{ProductID: "sticky-notes", Size: "20"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 2)
	assert.True(t, resp.Lines[0].BelowMOQ)
	assert.Equal(t, 10, resp.Lines[0].MOQ)
	assert.False(t, resp.Lines[1].BelowMOQ)
	assert.False(t, resp.CanCheckout, "a line under its MOQ blocks checkout")
	assert.Nil(t, resp.MinimumPurchase)
}

func TestQuoteLaterEntryReplacesEarlier(t *testing.T) {
	svc := newCatalogFixture(t)

	resp, err := svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "sticky-notes", Size: "3"},
		{ProductID: "sticky-notes", Size: "12"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 12, resp.Lines[0].Quantity)
	assert.Equal(t, 12, resp.Count)

	resp, err = svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{
		{ProductID: "sticky-notes", Size: "12"},
		{ProductID: "sticky-notes", Size: "none"},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.False(t, resp.CanCheckout)
}

func TestQuoteErrors(t *testing.T) {
	svc := newCatalogFixture(t)

	_, err := svc.Quote(context.Background(), &dto.QuoteRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Quote(context.Background(), &dto.QuoteRequest{Items: []dto.QuoteItem{{ProductID: "nope", Size: "1"}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListProducts(t *testing.T) {
	svc := newCatalogFixture(t)

	all, err := svc.ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 7)

	pens, err := svc.ListProducts(context.Background(), "pens")
	require.NoError(t, err)
	assert.Len(t, pens, 2)
}
