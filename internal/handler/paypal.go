package handler

import (
	"net/http"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type PaypalHandler struct {
	paypalService service.PaypalService
}

func NewPaypalHandler(paypalService service.PaypalService) *PaypalHandler {
	return &PaypalHandler{
		paypalService: paypalService,
	}
}

func (h *PaypalHandler) VerifyPayPalOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VerifyPayPalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.MissingFieldsResponse{Error: "Missing required fields", Received: req})
	}

	resp, err := h.paypalService.VerifyOrder(ctx, &req)
	if apperr.Is(err, apperr.KindValidation) {
		return c.JSON(http.StatusBadRequest, dto.MissingFieldsResponse{Error: apperr.Message(err), Received: req})
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
