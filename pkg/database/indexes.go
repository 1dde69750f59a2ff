package database

import (
	"fmt"

	"github.com/bookhub/backend/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// supportingIndexes back the hot paths of the scheduled jobs: the overdue
// borrow sweep and the expired refresh token purge.
var supportingIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_borrows_book_open ON borrows(book_id) WHERE returned = false",
	"CREATE INDEX IF NOT EXISTS idx_books_unavailable ON books(id) WHERE available = false",
	"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expiry_user ON refresh_tokens(expiry_date, user_id)",
}

// OptimizedIndexes creates the supporting indexes. Every statement is
// idempotent, so running it on each boot is safe.
func OptimizedIndexes(db *gorm.DB) error {
	for _, stmt := range supportingIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			logger.GetLogger().Error("Failed to create index",
				zap.String("statement", stmt),
				zap.Error(err),
			)
			return fmt.Errorf("create index: %w", err)
		}
	}
	logger.GetLogger().Info("Supporting indexes ensured", zap.Int("count", len(supportingIndexes)))
	return nil
}
