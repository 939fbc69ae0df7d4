package repository

import (
	"context"
	"errors"
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecipientRepository interface {
	GetByFID(ctx context.Context, fid uint64) (*domain.Recipient, error)
	Upsert(ctx context.Context, r *domain.Recipient) error
	EnableNotifications(ctx context.Context, fid uint64, token string, endpoint string) error
	DisableNotifications(ctx context.Context, fid uint64) error
	SetLastReminderSentAt(ctx context.Context, fid uint64, at time.Time) error
	ListEnabledWithToken(ctx context.Context) ([]domain.Recipient, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) GetByFID(ctx context.Context, fid uint64) (*domain.Recipient, error) {
	var model RecipientModel
	err := r.db.WithContext(ctx).First(&model, "fid = ?", fid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recipientModelToDomain(&model), nil
}

func (r *GormRecipientRepo) Upsert(ctx context.Context, recipient *domain.Recipient) error {
	model := recipientModelFromDomain(recipient)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"notifications_enabled", "delivery_token", "delivery_endpoint", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if recipient != nil {
		*recipient = *recipientModelToDomain(model)
	}
	return nil
}

// EnableNotifications stores a fresh credential pair and flips the flag in one
// update; the row is created if the recipient has never been seen.
func (r *GormRecipientRepo) EnableNotifications(ctx context.Context, fid uint64, token string, endpoint string) error {
	recipient := &domain.Recipient{
		FID:                  fid,
		NotificationsEnabled: true,
		DeliveryToken:        &token,
		DeliveryEndpoint:     &endpoint,
	}
	return r.Upsert(ctx, recipient)
}

// DisableNotifications clears the credential pair together with the flag so
// the token invariant holds in a single write.
func (r *GormRecipientRepo) DisableNotifications(ctx context.Context, fid uint64) error {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("fid = ?", fid).
		Updates(map[string]any{
			"notifications_enabled": false,
			"delivery_token":        nil,
			"delivery_endpoint":     nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRecipientRepo) SetLastReminderSentAt(ctx context.Context, fid uint64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("fid = ?", fid).
		Update("last_reminder_sent_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRecipientRepo) ListEnabledWithToken(ctx context.Context) ([]domain.Recipient, error) {
	var models []RecipientModel
	err := r.db.WithContext(ctx).
		Where("notifications_enabled = ? AND delivery_token IS NOT NULL AND delivery_endpoint IS NOT NULL", true).
		Order("fid ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}

	return recipients, nil
}
