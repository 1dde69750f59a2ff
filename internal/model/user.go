package model

import (
	"gorm.io/gorm"
)

// User is an account. PasswordHash is nil only for accounts that never had
// a local password; GitHub-created accounts get a random one.
type User struct {
	gorm.Model
	FirstName    string  `gorm:"column:first_name;not null"`
	LastName     string  `gorm:"column:last_name;not null;default:''"`
	Email        string  `gorm:"column:email;uniqueIndex:idx_users_email;not null"`
	PasswordHash *string `gorm:"column:password"`
	GithubID     *string `gorm:"column:github_id;uniqueIndex:idx_users_github_id,where:github_id IS NOT NULL"`
	Role         string  `gorm:"column:role;not null;default:'USER'"`
}

// FullName is first and last name joined by a single space.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) HasGithubID() bool {
	return u.GithubID != nil && *u.GithubID != ""
}
