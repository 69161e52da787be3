package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type UserRepo interface {
	GetOrCreateByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

// GetOrCreateByIdentifier resolves an identifier string to its identity row,
// creating it on first sight. Calling it twice with the same identifier
// returns the same row; a concurrent insert of the same identifier is
// absorbed by re-reading after a unique-index conflict.
func (ur *userRepo) GetOrCreateByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}

	var user types.User
	err := transaction.WithContext(ctx).
		Where("identifier = ?", identifier).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = types.User{Identifier: identifier}
	if createErr := transaction.WithContext(ctx).Create(&user).Error; createErr != nil {
		var existing types.User
		if retryErr := transaction.WithContext(ctx).
			Where("identifier = ?", identifier).
			First(&existing).Error; retryErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &user, nil
}
