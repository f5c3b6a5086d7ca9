package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/repository"
	"gorm.io/gorm"
)

func createDispatchAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_dispatch_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DispatchAttemptModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_dispatch_attempts_message_id ON dispatch_attempts (message_id, attempt_number)`,
				`CREATE INDEX IF NOT EXISTS idx_dispatch_attempts_provider_created ON dispatch_attempts (provider_name, created_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DispatchAttemptModel{})
		},
	}
}
