package domain

import "time"

// Recipient is the subset of a user record this engine owns: whether pushes
// are accepted and where to deliver them. DeliveryToken and DeliveryEndpoint
// are non-nil only while NotificationsEnabled is true; disabling clears both.
type Recipient struct {
	FID                  uint64
	NotificationsEnabled bool
	DeliveryToken        *string
	DeliveryEndpoint     *string
	LastReminderSentAt   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CanReceivePush reports whether the recipient currently has everything a
// delivery attempt needs.
func (r *Recipient) CanReceivePush() bool {
	if r == nil || !r.NotificationsEnabled {
		return false
	}
	return r.DeliveryToken != nil && *r.DeliveryToken != "" &&
		r.DeliveryEndpoint != nil && *r.DeliveryEndpoint != ""
}
