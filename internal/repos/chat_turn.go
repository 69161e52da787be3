package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type ChatTurnRepo interface {
	Append(ctx context.Context, tx *gorm.DB, userID uint, course, role, content string) (*types.ChatTurn, error)
	Recent(ctx context.Context, tx *gorm.DB, userID uint, course string, limit int) ([]*types.ChatTurn, error)
	RecentUserQuestions(ctx context.Context, tx *gorm.DB, userID uint, course string, limit int) ([]string, error)
}

type chatTurnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatTurnRepo(db *gorm.DB, baseLog *logger.Logger) ChatTurnRepo {
	repoLog := baseLog.With("repo", "ChatTurnRepo")
	return &chatTurnRepo{db: db, log: repoLog}
}

func (cr *chatTurnRepo) Append(ctx context.Context, tx *gorm.DB, userID uint, course, role, content string) (*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	content = types.TruncateBytes(content, types.MaxTurnContentLen)

	turn := &types.ChatTurn{
		UserID:  userID,
		Course:  course,
		Role:    role,
		Content: content,
	}
	if err := transaction.WithContext(ctx).Create(turn).Error; err != nil {
		return nil, err
	}
	return turn, nil
}

// Recent returns the last limit turns for (user, course) in chronological
// order, ready to be replayed as conversation history.
func (cr *chatTurnRepo) Recent(ctx context.Context, tx *gorm.DB, userID uint, course string, limit int) ([]*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var newestFirst []*types.ChatTurn
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course = ?", userID, course).
		Order("id DESC").
		Limit(limit).
		Find(&newestFirst).Error; err != nil {
		return nil, err
	}

	turns := make([]*types.ChatTurn, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		turns = append(turns, newestFirst[i])
	}
	return turns, nil
}

// RecentUserQuestions returns the newest limit user-role contents, newest
// first, for the similarity window.
func (cr *chatTurnRepo) RecentUserQuestions(ctx context.Context, tx *gorm.DB, userID uint, course string, limit int) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var turns []*types.ChatTurn
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND course = ? AND role = ?", userID, course, types.RoleUser).
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, err
	}

	questions := make([]string, 0, len(turns))
	for _, t := range turns {
		questions = append(questions, t.Content)
	}
	return questions, nil
}
