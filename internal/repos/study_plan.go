package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type StudyPlanRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uint) (*types.StudyPlan, error)
	Upsert(ctx context.Context, tx *gorm.DB, userID uint, plan datatypes.JSON) (*types.StudyPlan, error)
}

type studyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
	repoLog := baseLog.With("repo", "StudyPlanRepo")
	return &studyPlanRepo{db: db, log: repoLog}
}

// Get returns the user's plan, or nil when none has been saved yet.
func (sr *studyPlanRepo) Get(ctx context.Context, tx *gorm.DB, userID uint) (*types.StudyPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var plan types.StudyPlan
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (sr *studyPlanRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uint, plan datatypes.JSON) (*types.StudyPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	row := &types.StudyPlan{
		UserID: userID,
		Plan:   plan,
	}
	if err := transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"plan":       plan,
			"updated_at": time.Now(),
		}),
	}).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
