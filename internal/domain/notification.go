package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition applies to the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSent, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Category represents the kind of push a notification carries.
type Category string

const (
	CategoryWelcome         Category = "WELCOME"
	CategoryDailyReminder   Category = "DAILY_REMINDER"
	CategoryEveningReminder Category = "EVENING_REMINDER"
	CategoryMonthlyWinner   Category = "MONTHLY_WINNER"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryWelcome, CategoryDailyReminder, CategoryEveningReminder, CategoryMonthlyWinner:
		return true
	}
	return false
}

func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// Content limits (in characters). Titles and bodies over the limit are
// truncated at creation time, never rejected.
const (
	MaxTitleLength     = 32
	MaxBodyLength      = 128
	MaxTargetURLLength = 1024
)

// Notification is the core domain entity representing one queued push for one
// recipient.
type Notification struct {
	ID             string
	RecipientFID   uint64
	Category       Category
	IdempotencyKey string
	Title          string
	Body           string
	TargetURL      string
	Status         Status
	ScheduledFor   time.Time
	RetryCount     int
	ErrorMessage   *string
	SentAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (n *Notification) Validate() error {
	if n.RecipientFID == 0 {
		return fmt.Errorf("%w: recipient fid is required", ErrValidation)
	}
	if !n.Category.IsValid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, n.Category)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	if n.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrValidation)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len([]rune(n.Title)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if len([]rune(n.Body)) > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters", ErrValidation, MaxBodyLength)
	}
	if len([]rune(n.TargetURL)) > MaxTargetURLLength {
		return fmt.Errorf("%w: target url exceeds %d characters", ErrValidation, MaxTargetURLLength)
	}
	return nil
}

// TruncateRunes shortens s to at most limit characters, rune-safe.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
