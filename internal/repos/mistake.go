package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type MistakeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, mistake *types.Mistake) (*types.Mistake, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint, course string) ([]*types.Mistake, error)
	Delete(ctx context.Context, tx *gorm.DB, mistakeID, userID uint) (bool, error)
}

type mistakeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMistakeRepo(db *gorm.DB, baseLog *logger.Logger) MistakeRepo {
	repoLog := baseLog.With("repo", "MistakeRepo")
	return &mistakeRepo{db: db, log: repoLog}
}

func (mr *mistakeRepo) Create(ctx context.Context, tx *gorm.DB, mistake *types.Mistake) (*types.Mistake, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	mistake.Question = types.TruncateBytes(mistake.Question, types.MaxMistakeFieldLen)
	mistake.Correction = types.TruncateBytes(mistake.Correction, types.MaxMistakeFieldLen)

	if err := transaction.WithContext(ctx).Create(mistake).Error; err != nil {
		return nil, err
	}
	return mistake, nil
}

// ListByUser returns the user's mistakes newest first; course narrows the
// list when non-empty.
func (mr *mistakeRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uint, course string) ([]*types.Mistake, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	query := transaction.WithContext(ctx).
		Where("user_id = ?", userID)
	if course != "" {
		query = query.Where("course = ?", course)
	}

	var mistakes []*types.Mistake
	if err := query.Order("created_at DESC").Find(&mistakes).Error; err != nil {
		return nil, err
	}
	return mistakes, nil
}

// Delete removes a mistake only when it belongs to userID. Returns whether a
// row was deleted.
func (mr *mistakeRepo) Delete(ctx context.Context, tx *gorm.DB, mistakeID, userID uint) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	result := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", mistakeID, userID).
		Delete(&types.Mistake{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
