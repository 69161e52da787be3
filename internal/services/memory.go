package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// Personalization window sizes. Turns feed conversation continuity,
// questions feed repeat detection, mistakes feed the prompt digest.
const (
	RecentTurnLimit     = 20
	RecentQuestionLimit = 20
	MistakeDigestLimit  = 15
)

// MemoryService is the long-term memory surface: identity resolution plus
// per-user conversation log, mistakes, and study plan. Everything after the
// initial identity resolution is keyed by the opaque integer user ID.
type MemoryService interface {
	ResolveIdentity(ctx context.Context, identifier string) (*types.User, error)
	AppendTurn(ctx context.Context, userID uint, course, role, content string) error
	RecentTurns(ctx context.Context, userID uint, course string, limit int) ([]types.ChatMessage, error)
	RecentQuestions(ctx context.Context, userID uint, course string, limit int) ([]string, error)
	Mistakes(ctx context.Context, userID uint, course string) ([]*types.Mistake, error)
	AddMistake(ctx context.Context, userID uint, course, topic, question, correction string) (*types.Mistake, error)
	DeleteMistake(ctx context.Context, mistakeID, userID uint) (bool, error)
	StudyPlan(ctx context.Context, userID uint) (*types.StudyPlan, error)
	SaveStudyPlan(ctx context.Context, userID uint, plan datatypes.JSON) (*types.StudyPlan, error)
}

type memoryService struct {
	log       *logger.Logger
	users     repos.UserRepo
	turns     repos.ChatTurnRepo
	mistakes  repos.MistakeRepo
	studyPlan repos.StudyPlanRepo
}

func NewMemoryService(users repos.UserRepo, turns repos.ChatTurnRepo, mistakes repos.MistakeRepo, studyPlan repos.StudyPlanRepo, baseLog *logger.Logger) MemoryService {
	return &memoryService{
		log:       baseLog.With("service", "MemoryService"),
		users:     users,
		turns:     turns,
		mistakes:  mistakes,
		studyPlan: studyPlan,
	}
}

func (ms *memoryService) ResolveIdentity(ctx context.Context, identifier string) (*types.User, error) {
	user, err := ms.users.GetOrCreateByIdentifier(ctx, nil, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}

func (ms *memoryService) AppendTurn(ctx context.Context, userID uint, course, role, content string) error {
	if _, err := ms.turns.Append(ctx, nil, userID, course, role, content); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last limit persisted turns in chronological order,
// shaped as live conversation messages.
func (ms *memoryService) RecentTurns(ctx context.Context, userID uint, course string, limit int) ([]types.ChatMessage, error) {
	turns, err := ms.turns.Recent(ctx, nil, userID, course, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	messages := make([]types.ChatMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, types.ChatMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return messages, nil
}

func (ms *memoryService) RecentQuestions(ctx context.Context, userID uint, course string, limit int) ([]string, error) {
	questions, err := ms.turns.RecentUserQuestions(ctx, nil, userID, course, limit)
	if err != nil {
		return nil, fmt.Errorf("recent questions: %w", err)
	}
	return questions, nil
}

func (ms *memoryService) Mistakes(ctx context.Context, userID uint, course string) ([]*types.Mistake, error) {
	mistakes, err := ms.mistakes.ListByUser(ctx, nil, userID, course)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	return mistakes, nil
}

func (ms *memoryService) AddMistake(ctx context.Context, userID uint, course, topic, question, correction string) (*types.Mistake, error) {
	mistake := &types.Mistake{
		UserID:     userID,
		Course:     course,
		Topic:      topic,
		Question:   question,
		Correction: correction,
	}
	created, err := ms.mistakes.Create(ctx, nil, mistake)
	if err != nil {
		return nil, fmt.Errorf("add mistake: %w", err)
	}
	return created, nil
}

func (ms *memoryService) DeleteMistake(ctx context.Context, mistakeID, userID uint) (bool, error) {
	deleted, err := ms.mistakes.Delete(ctx, nil, mistakeID, userID)
	if err != nil {
		return false, fmt.Errorf("delete mistake: %w", err)
	}
	return deleted, nil
}

func (ms *memoryService) StudyPlan(ctx context.Context, userID uint) (*types.StudyPlan, error) {
	plan, err := ms.studyPlan.Get(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get study plan: %w", err)
	}
	return plan, nil
}

func (ms *memoryService) SaveStudyPlan(ctx context.Context, userID uint, plan datatypes.JSON) (*types.StudyPlan, error) {
	saved, err := ms.studyPlan.Upsert(ctx, nil, userID, plan)
	if err != nil {
		return nil, fmt.Errorf("save study plan: %w", err)
	}
	return saved, nil
}
