package model

import "time"

// RefreshToken is the single live refresh token of an account. UserID is
// unique, so a second issue for the same account updates this row.
type RefreshToken struct {
	ID         uint      `gorm:"primarykey"`
	UserID     uint      `gorm:"column:user_id;uniqueIndex:idx_refresh_tokens_user_id;not null"`
	Token      string    `gorm:"column:token;uniqueIndex:idx_refresh_tokens_token;not null"`
	ExpiryDate time.Time `gorm:"column:expiry_date;not null;index:idx_refresh_tokens_expiry"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiryDate)
}
