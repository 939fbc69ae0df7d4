package handler

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fakeAnnouncements struct {
	runMonthlyWinnerPassFn func(ctx context.Context, winnerName string) error
	winners                []string
}

func (f *fakeAnnouncements) RunMonthlyWinnerPass(ctx context.Context, winnerName string) error {
	f.winners = append(f.winners, winnerName)
	if f.runMonthlyWinnerPassFn != nil {
		return f.runMonthlyWinnerPassFn(ctx, winnerName)
	}
	return nil
}

func postAnnouncement(t *testing.T, app *fiber.App, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/v1/announcements/monthly-winner", bytes.NewReader([]byte(body)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAnnouncementHandler_TriggersFanOut(t *testing.T) {
	t.Parallel()

	announcements := &fakeAnnouncements{}
	app := fiber.New()
	if err := RegisterAnnouncementRoutes(app, announcements); err != nil {
		t.Fatalf("RegisterAnnouncementRoutes() error = %v", err)
	}

	status := postAnnouncement(t, app, `{"winner":"@alice"}`)
	if status != fiber.StatusAccepted {
		t.Fatalf("status = %d, want %d", status, fiber.StatusAccepted)
	}
	if len(announcements.winners) != 1 || announcements.winners[0] != "@alice" {
		t.Errorf("winners = %v, want [@alice]", announcements.winners)
	}
}

func TestAnnouncementHandler_RejectsMissingWinner(t *testing.T) {
	t.Parallel()

	announcements := &fakeAnnouncements{}
	app := fiber.New()
	if err := RegisterAnnouncementRoutes(app, announcements); err != nil {
		t.Fatalf("RegisterAnnouncementRoutes() error = %v", err)
	}

	status := postAnnouncement(t, app, `{"winner":"  "}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, fiber.StatusBadRequest)
	}
	if len(announcements.winners) != 0 {
		t.Error("fan-out must not run without a winner")
	}
}
