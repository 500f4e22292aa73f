package handler

import (
	"io"
	"log/slog"
	"net/http"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/middleware"
	"stationery-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

const maxCallbackBody = 1 << 20

type PaymentHandler struct {
	checkoutService service.CheckoutService
	reconciler      service.ReconcilerService
	callbackService service.CallbackService
	logger          *slog.Logger
}

func NewPaymentHandler(
	checkoutService service.CheckoutService,
	reconciler service.ReconcilerService,
	callbackService service.CallbackService,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
		reconciler:      reconciler,
		callbackService: callbackService,
		logger:          logger,
	}
}

func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if key := c.Request().Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}
	// a signed-in buyer always checks out as themselves
	if uid := middleware.UserID(c); uid != "" {
		req.UserID = uid
	}

	resp, err := h.checkoutService.CreatePayment(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CheckPaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	check, err := h.reconciler.CheckStatus(ctx, req.MerchantTransactionID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.CheckStatusResponse{
		Success: true,
		Data:    check.Data,
		Result:  check.Result,
	})
}

func (h *PaymentHandler) PaymentCallback(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		return apperr.Validation("unreadable callback body")
	}

	err = h.callbackService.HandlePhonePeCallback(ctx, c.Request().Header.Get(echo.HeaderAuthorization), body)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
