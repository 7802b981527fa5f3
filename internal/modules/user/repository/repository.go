package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/engagementledger/internal/entity"
	"anoa.com/engagementledger/pkg/apperror"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: username or email already taken", apperror.ErrConflict)
		}
		return fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var rows []entity.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: user %q", apperror.ErrNotFound, email)
	}
	return &rows[0], nil
}
