package server

import (
	"context"
	"log/slog"
	"net/http"
	"stationery-storefront/internal/config"
	"stationery-storefront/internal/handler"
	authmw "stationery-storefront/internal/middleware"
	"stationery-storefront/internal/service"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type Services struct {
	Checkout   service.CheckoutService
	Reconciler service.ReconcilerService
	Callback   service.CallbackService
	Paypal     service.PaypalService
	Catalog    service.CatalogService
	User       service.UserService
	Order      service.OrderService
}

type Server struct {
	echo           *echo.Echo
	cfg            config.HTTPServer
	logger         *slog.Logger
	paymentHandler *handler.PaymentHandler
	paypalHandler  *handler.PaypalHandler
	userHandler    *handler.UserHandler
	cartHandler    *handler.CartHandler
}

func NewServer(cfg config.HTTPServer, jwtSecret string, services Services, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error)
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(authmw.AuthMiddleware(jwtSecret))

	s := &Server{
		echo:           e,
		cfg:            cfg,
		logger:         logger,
		paymentHandler: handler.NewPaymentHandler(services.Checkout, services.Reconciler, services.Callback, logger),
		paypalHandler:  handler.NewPaypalHandler(services.Paypal),
		userHandler:    handler.NewUserHandler(services.User, services.Order),
		cartHandler:    handler.NewCartHandler(services.Catalog),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- catalog / cart --------
	api.GET("/products", s.cartHandler.ListProducts)
	api.POST("/cart/quote", s.cartHandler.Quote)

	// -------- payments --------
	api.POST("/createPayment", s.paymentHandler.CreatePayment, s.intentRateLimiter())
	api.POST("/checkPaymentStatus", s.paymentHandler.CheckPaymentStatus)
	api.POST("/verifyPayPalOrder", s.paypalHandler.VerifyPayPalOrder)

	// -------- gateway callbacks --------
	api.POST("/paymentCallback", s.paymentHandler.PaymentCallback)

	// -------- buyer --------
	signedIn := authmw.RequireUser()
	api.GET("/users/me", s.userHandler.GetProfile, signedIn)
	api.PUT("/users/me", s.userHandler.UpdateProfile, signedIn)
	api.GET("/users/me/orders", s.userHandler.ListMyOrders, signedIn)
	api.GET("/orders/:id", s.userHandler.GetOrder, signedIn)
}

// intentRateLimiter limits intent creation per client IP. A non-positive rate disables it.
func (s *Server) intentRateLimiter() echo.MiddlewareFunc {
	if s.cfg.RateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.cfg.RateLimit),
		Burst:     s.cfg.RateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.logger.WarnContext(c.Request().Context(), "createPayment rate limited", "client", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many payment attempts, please wait a moment")
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
