package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bookhub/backend/internal/model"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// UpsertForAccount writes value as the account's only refresh token. The
// insert and the conflict update on user_id are a single statement, so two
// concurrent sign-ins for one account end with exactly one row holding the
// last value written.
func (r *RefreshTokenRepository) UpsertForAccount(ctx context.Context, userID uint, value string, expiresAt time.Time) (*model.RefreshToken, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpsertForAccount")

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before upsert").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var stored model.RefreshToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := model.RefreshToken{
			UserID:     userID,
			Token:      value,
			ExpiryDate: expiresAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expiry_date", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return translate(err)
		}
		return tx.Where("user_id = ?", userID).First(&stored).Error
	})
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to upsert refresh token").
			Uint("user_id", userID).
			Duration(duration).
			Err(err).
			Log()
		return nil, err
	}

	logger.DebugWithContext(ctx, "Refresh token stored").
		Uint("user_id", userID).
		Uint("refresh_token_id", stored.ID).
		Time("expiry_date", stored.ExpiryDate).
		Duration(duration).
		Log()

	return &stored, nil
}

// FindByValue returns nil, nil for an unknown value.
func (r *RefreshTokenRepository) FindByValue(ctx context.Context, value string) (*model.RefreshToken, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "FindByValue")

	var token model.RefreshToken
	err := r.db.WithContext(ctx).Where("token = ?", value).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to find refresh token").
			Err(err).
			Log()
		return nil, err
	}
	return &token, nil
}

// Delete removes the row only while it still holds token.Token, so a value
// replaced by a concurrent sign-in is left alone.
func (r *RefreshTokenRepository) Delete(ctx context.Context, token *model.RefreshToken) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "Delete")

	result := r.db.WithContext(ctx).
		Where("id = ? AND token = ?", token.ID, token.Token).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete refresh token").
			Uint("refresh_token_id", token.ID).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Refresh token deleted").
		Uint("refresh_token_id", token.ID).
		Int64("rows_affected", result.RowsAffected).
		Log()

	return nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "DeleteExpired")

	start := time.Now()
	result := r.db.WithContext(ctx).Where("expiry_date < ?", now).Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to purge expired refresh tokens").
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	logger.InfoWithContext(ctx, "Expired refresh tokens purged").
		Int64("rows_affected", result.RowsAffected).
		Duration(time.Since(start)).
		Log()

	return result.RowsAffected, nil
}
