package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "valid uppercase", input: "SENT", want: StatusSent},
		{name: "valid lowercase with spaces", input: " pending ", want: StatusPending},
		{name: "invalid", input: "QUEUED", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if StatusPending.IsTerminal() {
		t.Fatal("PENDING must not be terminal")
	}
	for _, s := range []Status{StatusSent, StatusFailed, StatusSkipped} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestParseCategoryFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseCategoryFromString(" daily_reminder ")
	if err != nil {
		t.Fatalf("ParseCategoryFromString() unexpected error = %v", err)
	}
	if got != CategoryDailyReminder {
		t.Fatalf("ParseCategoryFromString() = %s, want %s", got, CategoryDailyReminder)
	}

	_, err = ParseCategoryFromString("BIRTHDAY")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseCategoryFromString() error = %v, want ErrValidation", err)
	}
}

func TestParseEventTypeFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseEventTypeFromString(" Frame_Added ")
	if err != nil {
		t.Fatalf("ParseEventTypeFromString() unexpected error = %v", err)
	}
	if got != EventFrameAdded {
		t.Fatalf("ParseEventTypeFromString() = %s, want %s", got, EventFrameAdded)
	}

	_, err = ParseEventTypeFromString("frame_pinned")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseEventTypeFromString() error = %v, want ErrValidation", err)
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	base := Notification{
		RecipientFID:   42,
		Category:       CategoryDailyReminder,
		IdempotencyKey: "daily_reminder_42_2026-08-29",
		Title:          "🗳️ Time to vote!",
		Body:           "Your daily vote is waiting.",
		TargetURL:      "https://app.example.com/vote",
		Status:         StatusPending,
		ScheduledFor:   time.Now(),
	}

	tests := []struct {
		name    string
		mutate  func(*Notification)
		wantErr bool
	}{
		{
			name:   "valid notification",
			mutate: func(n *Notification) {},
		},
		{
			name: "missing fid",
			mutate: func(n *Notification) {
				n.RecipientFID = 0
			},
			wantErr: true,
		},
		{
			name: "invalid category",
			mutate: func(n *Notification) {
				n.Category = Category("BIRTHDAY")
			},
			wantErr: true,
		},
		{
			name: "missing idempotency key",
			mutate: func(n *Notification) {
				n.IdempotencyKey = ""
			},
			wantErr: true,
		},
		{
			name: "missing title",
			mutate: func(n *Notification) {
				n.Title = ""
			},
			wantErr: true,
		},
		{
			name: "title over limit",
			mutate: func(n *Notification) {
				n.Title = strings.Repeat("a", MaxTitleLength+1)
			},
			wantErr: true,
		},
		{
			name: "body over limit",
			mutate: func(n *Notification) {
				n.Body = strings.Repeat("a", MaxBodyLength+1)
			},
			wantErr: true,
		},
		{
			name: "target url over limit",
			mutate: func(n *Notification) {
				n.TargetURL = "https://" + strings.Repeat("a", MaxTargetURLLength)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := base
			tt.mutate(&n)

			err := n.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "under limit unchanged", input: "hello", limit: 10, want: "hello"},
		{name: "exact limit unchanged", input: "hello", limit: 5, want: "hello"},
		{name: "over limit cut", input: "hello world", limit: 5, want: "hello"},
		{name: "multibyte safe", input: "🗳️🗳️🗳️", limit: 2, want: "🗳️"},
		{name: "zero limit", input: "hello", limit: 0, want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := TruncateRunes(tt.input, tt.limit); got != tt.want {
				t.Fatalf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}

func TestRecipientCanReceivePush(t *testing.T) {
	t.Parallel()

	token := "tok-1"
	endpoint := "https://push.example.com/v1"

	tests := []struct {
		name      string
		recipient *Recipient
		want      bool
	}{
		{name: "nil recipient", recipient: nil, want: false},
		{
			name:      "disabled",
			recipient: &Recipient{FID: 1, NotificationsEnabled: false, DeliveryToken: &token, DeliveryEndpoint: &endpoint},
			want:      false,
		},
		{
			name:      "enabled without token",
			recipient: &Recipient{FID: 1, NotificationsEnabled: true, DeliveryEndpoint: &endpoint},
			want:      false,
		},
		{
			name:      "enabled with token and endpoint",
			recipient: &Recipient{FID: 1, NotificationsEnabled: true, DeliveryToken: &token, DeliveryEndpoint: &endpoint},
			want:      true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.recipient.CanReceivePush(); got != tt.want {
				t.Fatalf("CanReceivePush() = %v, want %v", got, tt.want)
			}
		})
	}
}
