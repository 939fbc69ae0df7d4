package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/verify"
	"go.uber.org/zap"
)

// LifecycleService applies a verified lifecycle event to recipient state.
type LifecycleService interface {
	HandleEvent(ctx context.Context, event domain.LifecycleEvent) error
}

// WebhookHandler terminates the client webhook: it verifies the signed
// envelope before any state is touched, then hands the event to the
// lifecycle service.
type WebhookHandler struct {
	verifier  verify.Verifier
	lifecycle LifecycleService
	logger    *zap.Logger
}

func NewWebhookHandler(verifier verify.Verifier, lifecycle LifecycleService, logger *zap.Logger) (*WebhookHandler, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, lifecycle: lifecycle, logger: logger}, nil
}

func RegisterWebhookRoutes(router fiber.Router, verifier verify.Verifier, lifecycle LifecycleService, logger *zap.Logger) error {
	h, err := NewWebhookHandler(verifier, lifecycle, logger)
	if err != nil {
		return err
	}

	router.Post("/webhook", h.HandleWebhook)
	return nil
}

func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var envelope verify.SignedEnvelope
	if err := c.BodyParser(&envelope); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	event, err := h.verifier.Verify(c.Context(), envelope)
	if err != nil {
		h.logger.Warn("webhook envelope rejected", zap.Error(err))
		return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
	}

	if err := h.lifecycle.HandleEvent(c.Context(), *event); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}
