package handler

import (
	"net/http"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"
	"stationery-storefront/internal/middleware"
	"stationery-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	userService  service.UserService
	orderService service.OrderService
}

func NewUserHandler(userService service.UserService, orderService service.OrderService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		orderService: orderService,
	}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.userService.GetProfile(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	profile, err := h.userService.UpdateProfile(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListOrders(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *UserHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.GetOrder(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}
