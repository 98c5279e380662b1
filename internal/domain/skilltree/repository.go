package skilltree

import (
	"context"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// SkillNodeRepository - каталог узлов (только чтение для движка).
type SkillNodeRepository interface {
	// GetByID возвращает узел или shared.ErrNodeNotFound.
	GetByID(ctx context.Context, nodeID shared.NodeID) (*SkillNode, error)

	// ListAll возвращает все узлы каталога.
	ListAll(ctx context.Context) ([]*SkillNode, error)

	// ListByTopic возвращает узлы, привязанные к теме.
	ListByTopic(ctx context.Context, topicID shared.TopicID) ([]*SkillNode, error)
}

// SkillUnlockRepository - разблокировки пользователей.
type SkillUnlockRepository interface {
	// Get возвращает разблокировку или shared.ErrNotFound.
	Get(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*SkillUnlock, error)

	// ListByUser возвращает все разблокировки пользователя.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*SkillUnlock, error)

	// Create сохраняет новую разблокировку. Повторная вставка той же пары
	// (user, node) возвращает shared.ErrAlreadyExists.
	Create(ctx context.Context, unlock *SkillUnlock) error

	// UpdateProgress сохраняет прогресс освоения узла.
	UpdateProgress(ctx context.Context, userID shared.UserID, nodeID shared.NodeID, progress float64) error

	// MarkCompleted выставляет CompletedAt, если он ещё не выставлен.
	// Возвращает true ровно один раз на пару (user, node) - это
	// гарантия однократности награды за освоение узла.
	MarkCompleted(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (bool, error)
}
