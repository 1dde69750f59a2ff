package repository

import (
	"context"
	"time"

	"github.com/bookhub/backend/internal/model"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"gorm.io/gorm"
)

type BorrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) *BorrowRepository {
	return &BorrowRepository{db: db}
}

// ReleaseOverdue marks every unreturned borrow whose end date is before now
// as returned and flags its book available again. Both updates commit together.
func (r *BorrowRepository) ReleaseOverdue(ctx context.Context, now time.Time) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ReleaseOverdue")

	start := time.Now()
	var released int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookIDs []uint
		if err := tx.Model(&model.Borrow{}).
			Where("returned = ? AND end_date < ?", false, now).
			Pluck("book_id", &bookIDs).Error; err != nil {
			return err
		}
		if len(bookIDs) == 0 {
			return nil
		}

		result := tx.Model(&model.Borrow{}).
			Where("returned = ? AND end_date < ?", false, now).
			Update("returned", true)
		if result.Error != nil {
			return result.Error
		}
		released = result.RowsAffected

		return tx.Model(&model.Book{}).
			Where("id IN ?", bookIDs).
			Update("available", true).Error
	})

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to release overdue borrows").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return 0, err
	}

	logger.InfoWithContext(ctx, "Overdue borrows released").
		Int64("released", released).
		Duration(time.Since(start)).
		Log()

	return released, nil
}
