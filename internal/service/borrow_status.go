package service

import (
	"context"
	"time"

	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
)

type OverdueReleaser interface {
	ReleaseOverdue(ctx context.Context, now time.Time) (int64, error)
}

// BorrowStatusService returns overdue books to the shelf.
type BorrowStatusService struct {
	borrows OverdueReleaser
	now     func() time.Time
}

func NewBorrowStatusService(borrows OverdueReleaser) *BorrowStatusService {
	return &BorrowStatusService{borrows: borrows, now: time.Now}
}

func (s *BorrowStatusService) UpdateExpiredBorrows(ctx context.Context) error {
	ctx = ctxutil.WithFunction(ctx, "service", "UpdateExpiredBorrows")

	released, err := s.borrows.ReleaseOverdue(ctx, s.now())
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update book statuses").
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Book statuses updated").
		Int64("released", released).
		Log()
	return nil
}
