package model

import (
	"time"

	"gorm.io/gorm"
)

type Book struct {
	gorm.Model
	Title       string `gorm:"column:title;not null"`
	ISBN        string `gorm:"column:isbn;uniqueIndex:idx_books_isbn"`
	Description string `gorm:"column:description;type:text"`
	AuthorID    *uint  `gorm:"column:author_id;index"`
	Available   bool   `gorm:"column:available;not null;default:true"`
}

// Borrow records one lending. A borrow is overdue once EndDate has passed
// and Returned is still false.
type Borrow struct {
	ID        uint      `gorm:"primarykey"`
	BookID    uint      `gorm:"column:book_id;not null;index"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	StartDate time.Time `gorm:"column:start_date;not null"`
	EndDate   time.Time `gorm:"column:end_date;not null;index:idx_borrows_open,where:returned = false"`
	Returned  bool      `gorm:"column:returned;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
