package handler

import (
	"net/http"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	catalogService service.CatalogService
}

func NewCartHandler(catalogService service.CatalogService) *CartHandler {
	return &CartHandler{
		catalogService: catalogService,
	}
}

func (h *CartHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	products, err := h.catalogService.ListProducts(ctx, c.QueryParam("category"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, products)
}

func (h *CartHandler) Quote(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	quote, err := h.catalogService.Quote(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, quote)
}
