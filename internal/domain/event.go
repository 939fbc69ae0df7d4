package domain

import (
	"fmt"
	"strings"
)

// EventType identifies a lifecycle signal sent by a recipient's client about
// this mini app.
type EventType string

const (
	EventFrameAdded            EventType = "frame_added"
	EventFrameRemoved          EventType = "frame_removed"
	EventNotificationsEnabled  EventType = "notifications_enabled"
	EventNotificationsDisabled EventType = "notifications_disabled"
)

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventFrameAdded, EventFrameRemoved, EventNotificationsEnabled, EventNotificationsDisabled:
		return true
	}
	return false
}

func ParseEventTypeFromString(s string) (EventType, error) {
	e := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("%w: invalid event type %q", ErrValidation, s)
	}
	return e, nil
}

// NotificationDetails carries the fresh delivery credential a client hands
// over when it enables notifications.
type NotificationDetails struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// LifecycleEvent is a verified, parsed lifecycle signal.
type LifecycleEvent struct {
	Type                EventType
	FID                 uint64
	NotificationDetails *NotificationDetails
}

func (e *LifecycleEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: invalid event type %q", ErrValidation, e.Type)
	}
	if e.FID == 0 {
		return fmt.Errorf("%w: fid is required", ErrValidation)
	}

	needsDetails := e.Type == EventNotificationsEnabled
	if needsDetails && (e.NotificationDetails == nil ||
		strings.TrimSpace(e.NotificationDetails.Token) == "" ||
		strings.TrimSpace(e.NotificationDetails.URL) == "") {
		return fmt.Errorf("%w: %s requires notification details", ErrValidation, e.Type)
	}

	return nil
}
