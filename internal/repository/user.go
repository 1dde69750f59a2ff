package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bookhub/backend/internal/model"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail returns nil, nil when no account has this email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetByEmail")
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetByID")
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByGithubID(ctx context.Context, githubID string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "GetByGithubID")
	return r.first(ctx, "github_id = ?", githubID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var user model.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	duration := time.Since(start)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.DebugWithContext(ctx, "User not found").
			Duration(duration).
			Log()
		return nil, nil
	}
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to get user").
			Duration(duration).
			Err(err).
			Log()
		return nil, err
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ExistsByEmail")

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count users by email").
			Err(err).
			Log()
		return false, err
	}
	return count > 0, nil
}

// Create inserts the user. A clash on email or github id yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "Create")

	logger.DebugWithContext(ctx, "Creating new user").
		String("email", user.Email).
		Bool("github", user.HasGithubID()).
		Log()

	start := time.Now()
	err := translate(r.db.WithContext(ctx).Create(user).Error)
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User created successfully").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return nil
}

func (r *UserRepository) UpdateNames(ctx context.Context, id uint, firstName, lastName string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpdateNames")
	return r.updates(ctx, id, map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
	})
}

func (r *UserRepository) UpdateEmail(ctx context.Context, id uint, email string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UpdateEmail")
	return r.updates(ctx, id, map[string]interface{}{"email": email})
}

func (r *UserRepository) LinkGithubID(ctx context.Context, id uint, githubID string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "LinkGithubID")
	return r.updates(ctx, id, map[string]interface{}{"github_id": githubID})
}

func (r *UserRepository) updates(ctx context.Context, id uint, values map[string]interface{}) error {
	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(values)
	duration := time.Since(start)

	if err := translate(result.Error); err != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			Uint("user_id", id).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "User updated successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}
