package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/client"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/repository"
	"strings"

	"gorm.io/gorm"
)

type CallbackService interface {
	HandlePhonePeCallback(ctx context.Context, authorization string, body []byte) error
}

type callbackServiceImpl struct {
	expectedAuth     string
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	reconciler       ReconcilerService
	logger           *slog.Logger
}

// NewCallbackService rejects every callback when username or password is empty.
func NewCallbackService(
	username, password string,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	reconciler ReconcilerService,
	logger *slog.Logger,
) CallbackService {
	s := &callbackServiceImpl{
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		reconciler:       reconciler,
		logger:           logger,
	}
	if username != "" && password != "" {
		s.expectedAuth = CallbackAuthorization(username, password)
	}
	return s
}

// CallbackAuthorization is the header value PhonePe sends: hex SHA-256 of "username:password".
func CallbackAuthorization(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}

type phonepeCallback struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type phonepeCallbackPayload struct {
	MerchantOrderID string `json:"merchantOrderId"`
	client.PhonePeOrderStatus
}

func (s *callbackServiceImpl) HandlePhonePeCallback(ctx context.Context, authorization string, body []byte) error {
	if !s.authorized(authorization) {
		s.logger.WarnContext(ctx, "rejected payment callback")
		return apperr.Unauthorized("invalid callback authorization")
	}

	var cb phonepeCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return apperr.Validation("malformed callback body")
	}
	var payload phonepeCallbackPayload
	if err := json.Unmarshal(cb.Payload, &payload); err != nil {
		return apperr.Validation("malformed callback payload")
	}
	if payload.MerchantOrderID == "" {
		return apperr.Validation("merchantOrderId missing in callback")
	}

	eventID := fmt.Sprintf("%s:%s:%s", cb.Event, payload.MerchantOrderID, payload.State)
	seen, err := s.webhookEventRepo.Exists(ctx, eventID)
	if err != nil {
		return apperr.Persistence(fmt.Errorf("check callback event: %w", err))
	}
	if seen {
		s.logger.InfoContext(ctx, "duplicate payment callback ignored", "event_id", eventID)
		return nil
	}

	if strings.HasPrefix(cb.Event, "checkout.order.") {
		if err := s.apply(ctx, &payload, cb.Payload); err != nil {
			return err
		}
	} else {
		s.logger.InfoContext(ctx, "payment callback event not handled", "event", cb.Event,
			"merchant_order_id", payload.MerchantOrderID)
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, eventID, cb.Event); err != nil {
		return apperr.Persistence(fmt.Errorf("mark callback processed: %w", err))
	}
	return nil
}

func (s *callbackServiceImpl) apply(ctx context.Context, payload *phonepeCallbackPayload, raw json.RawMessage) error {
	payload.Raw = raw
	res := gateway.PhonePeResult(payload.MerchantOrderID, &payload.PhonePeOrderStatus)

	order, err := s.orderRepo.FindByMerchantOrderID(ctx, payload.MerchantOrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.WarnContext(ctx, "callback for unknown order", "merchant_order_id", payload.MerchantOrderID,
			"outcome", res.Outcome)
		return nil
	}
	if err != nil {
		return apperr.Persistence(fmt.Errorf("find order: %w", err))
	}

	if _, err := s.reconciler.Apply(ctx, order, res, SourceCallback); err != nil {
		return fmt.Errorf("apply callback status: %w", err)
	}
	return nil
}

func (s *callbackServiceImpl) authorized(header string) bool {
	if s.expectedAuth == "" {
		return false
	}
	got := strings.ToLower(strings.TrimSpace(header))
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.expectedAuth)) == 1
}
