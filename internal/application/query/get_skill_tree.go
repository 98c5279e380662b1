package query

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SKILL TREE QUERY
// Собирает персонализированный лес навыков: каталог узлов, аннотированный
// статусом и прогрессом пользователя. Только чтение, без побочных эффектов -
// безопасно вызывать на каждую отрисовку дерева.
// ══════════════════════════════════════════════════════════════════════════════

// GetSkillTreeQuery содержит параметры запроса дерева навыков.
type GetSkillTreeQuery struct {
	// UserID - для кого собирается проекция.
	UserID shared.UserID
}

// Validate проверяет корректность параметров запроса.
func (q *GetSkillTreeQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// SkillNodeDTO - DTO одного узла с пользовательскими аннотациями.
type SkillNodeDTO struct {
	// ID - идентификатор узла.
	ID string `json:"id"`

	// Title - название узла.
	Title string `json:"title"`

	// Description - описание узла.
	Description string `json:"description,omitempty"`

	// RequiredLevel - минимальный уровень для разблокировки.
	RequiredLevel int `json:"required_level"`

	// RequiredXP - минимальный XP для разблокировки.
	RequiredXP int `json:"required_xp"`

	// XPReward - награда за полное освоение.
	XPReward int `json:"xp_reward"`

	// TopicRef - тема, прогресс по которой ведёт узел (может быть пустой).
	TopicRef string `json:"topic_ref,omitempty"`

	// Status - статус узла: locked, available, unlocked, completed.
	Status string `json:"status"`

	// Progress - прогресс освоения темы узла в [0.0, 1.0].
	Progress float64 `json:"progress"`

	// Children - дочерние узлы в порядке OrderIndex.
	Children []SkillNodeDTO `json:"children,omitempty"`
}

// GetSkillTreeResult содержит результат запроса дерева навыков.
type GetSkillTreeResult struct {
	// Roots - корни леса в порядке OrderIndex.
	Roots []SkillNodeDTO `json:"roots"`

	// UnlockedCount - сколько узлов пользователь разблокировал.
	UnlockedCount int `json:"unlocked_count"`

	// CompletedCount - сколько узлов пользователь освоил.
	CompletedCount int `json:"completed_count"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetSkillTreeHandler обрабатывает запрос дерева навыков.
type GetSkillTreeHandler struct {
	nodeRepo     skilltree.SkillNodeRepository
	unlockRepo   skilltree.SkillUnlockRepository
	progressRepo progression.ProgressRepository
}

// NewGetSkillTreeHandler создаёт новый обработчик.
func NewGetSkillTreeHandler(
	nodeRepo skilltree.SkillNodeRepository,
	unlockRepo skilltree.SkillUnlockRepository,
	progressRepo progression.ProgressRepository,
) *GetSkillTreeHandler {
	return &GetSkillTreeHandler{
		nodeRepo:     nodeRepo,
		unlockRepo:   unlockRepo,
		progressRepo: progressRepo,
	}
}

// Handle выполняет запрос.
func (h *GetSkillTreeHandler) Handle(ctx context.Context, query GetSkillTreeQuery) (*GetSkillTreeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetSkillTree", shared.ErrValidation, err.Error(), err)
	}

	nodes, err := h.nodeRepo.ListAll(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetSkillTree", shared.ErrStoreUnavailable, "failed to load node catalog", err)
	}

	unlockList, err := h.unlockRepo.ListByUser(ctx, query.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetSkillTree", shared.ErrStoreUnavailable, "failed to load unlocks", err)
	}

	userXP := shared.XP(0)
	progress, err := h.progressRepo.GetByUserID(ctx, query.UserID)
	switch {
	case err == nil:
		userXP = progress.XP
	case errors.Is(err, shared.ErrProgressNotFound):
		// Без прогресса все гейты оцениваются от нулевого XP.
	default:
		return nil, shared.WrapError("query", "GetSkillTree", shared.ErrStoreUnavailable, "failed to load progress", err)
	}

	unlocks := make(map[shared.NodeID]*skilltree.SkillUnlock, len(unlockList))
	completed := 0
	for _, u := range unlockList {
		unlocks[u.NodeID] = u
		if u.IsCompleted() {
			completed++
		}
	}

	roots := skilltree.BuildForest(nodes, unlocks, userXP)

	dtos := make([]SkillNodeDTO, 0, len(roots))
	for _, root := range roots {
		dtos = append(dtos, toNodeDTO(root))
	}

	return &GetSkillTreeResult{
		Roots:          dtos,
		UnlockedCount:  len(unlockList),
		CompletedCount: completed,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// toNodeDTO рекурсивно конвертирует аннотированный узел в DTO.
func toNodeDTO(an *skilltree.AnnotatedNode) SkillNodeDTO {
	dto := SkillNodeDTO{
		ID:            an.Node.ID.String(),
		Title:         an.Node.Title,
		Description:   an.Node.Description,
		RequiredLevel: an.Node.RequiredLevel.Int(),
		RequiredXP:    an.Node.RequiredXP.Int(),
		XPReward:      an.Node.XPReward,
		Status:        string(an.Status),
		Progress:      an.Progress,
	}
	if an.Node.TopicRef != nil {
		dto.TopicRef = an.Node.TopicRef.String()
	}
	for _, child := range an.Children {
		dto.Children = append(dto.Children, toNodeDTO(child))
	}
	return dto
}
