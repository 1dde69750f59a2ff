package database

import (
	"github.com/bookhub/backend/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate bootstraps the schema for every model and then adds the
// indexes struct tags cannot express.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Book{},
		&model.Borrow{},
	); err != nil {
		return err
	}
	return OptimizedIndexes(db)
}
