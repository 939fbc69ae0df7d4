package repository

import (
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	RecipientFID   uint64          `gorm:"not null;index"`
	Category       domain.Category `gorm:"type:varchar(20);not null"`
	IdempotencyKey string          `gorm:"type:varchar(255);not null"`
	Title          string          `gorm:"type:varchar(32);not null"`
	Body           string          `gorm:"type:varchar(128);not null"`
	TargetURL      string          `gorm:"type:varchar(1024);not null"`
	Status         domain.Status   `gorm:"type:varchar(10);not null"`
	ScheduledFor   time.Time       `gorm:"not null"`
	RetryCount     int             `gorm:"not null;default:0"`
	ErrorMessage   *string         `gorm:"type:text"`
	SentAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// RecipientModel is the persistence model for the recipients table.
type RecipientModel struct {
	FID                  uint64  `gorm:"primaryKey;autoIncrement:false"`
	NotificationsEnabled bool    `gorm:"not null;default:false"`
	DeliveryToken        *string `gorm:"type:varchar(255)"`
	DeliveryEndpoint     *string `gorm:"type:varchar(1024)"`
	LastReminderSentAt   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (RecipientModel) TableName() string {
	return "recipients"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:             n.ID,
		RecipientFID:   n.RecipientFID,
		Category:       n.Category,
		IdempotencyKey: n.IdempotencyKey,
		Title:          n.Title,
		Body:           n.Body,
		TargetURL:      n.TargetURL,
		Status:         n.Status,
		ScheduledFor:   n.ScheduledFor,
		RetryCount:     n.RetryCount,
		ErrorMessage:   n.ErrorMessage,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:             m.ID,
		RecipientFID:   m.RecipientFID,
		Category:       m.Category,
		IdempotencyKey: m.IdempotencyKey,
		Title:          m.Title,
		Body:           m.Body,
		TargetURL:      m.TargetURL,
		Status:         m.Status,
		ScheduledFor:   m.ScheduledFor,
		RetryCount:     m.RetryCount,
		ErrorMessage:   m.ErrorMessage,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func recipientModelFromDomain(r *domain.Recipient) *RecipientModel {
	if r == nil {
		return nil
	}

	return &RecipientModel{
		FID:                  r.FID,
		NotificationsEnabled: r.NotificationsEnabled,
		DeliveryToken:        r.DeliveryToken,
		DeliveryEndpoint:     r.DeliveryEndpoint,
		LastReminderSentAt:   r.LastReminderSentAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func recipientModelToDomain(m *RecipientModel) *domain.Recipient {
	if m == nil {
		return nil
	}

	return &domain.Recipient{
		FID:                  m.FID,
		NotificationsEnabled: m.NotificationsEnabled,
		DeliveryToken:        m.DeliveryToken,
		DeliveryEndpoint:     m.DeliveryEndpoint,
		LastReminderSentAt:   m.LastReminderSentAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
