package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/selimacar/frame-notifier/internal/repository"
	"gorm.io/gorm"
)

func createNotificationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_notifications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notifications_deliverable ON notifications (scheduled_for) WHERE status = 'PENDING'`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_dedup ON notifications (recipient_fid, idempotency_key, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_retention ON notifications (created_at) WHERE status IN ('SENT', 'FAILED', 'SKIPPED')`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationModel{})
		},
	}
}
