package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/selimacar/frame-notifier/internal/domain"
)

// AnnouncementService is the fan-out entry the voting backend triggers once
// it has computed a monthly winner.
type AnnouncementService interface {
	RunMonthlyWinnerPass(ctx context.Context, winnerName string) error
}

type AnnouncementHandler struct {
	announcements AnnouncementService
}

func NewAnnouncementHandler(announcements AnnouncementService) (*AnnouncementHandler, error) {
	if announcements == nil {
		return nil, fmt.Errorf("announcement service is required")
	}
	return &AnnouncementHandler{announcements: announcements}, nil
}

func RegisterAnnouncementRoutes(router fiber.Router, announcements AnnouncementService) error {
	h, err := NewAnnouncementHandler(announcements)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/announcements/monthly-winner", h.AnnounceMonthlyWinner)

	return nil
}

type monthlyWinnerRequest struct {
	Winner string `json:"winner"`
}

func (h *AnnouncementHandler) AnnounceMonthlyWinner(c *fiber.Ctx) error {
	var req monthlyWinnerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	winner := strings.TrimSpace(req.Winner)
	if winner == "" {
		return toHTTPError(fmt.Errorf("%w: winner is required", domain.ErrValidation))
	}

	if err := h.announcements.RunMonthlyWinnerPass(c.Context(), winner); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
	})
}
