// Package skilltree содержит доменную модель дерева навыков: статический
// каталог узлов, гейты разблокировки и прогресс пользователя по узлам.
// Дерево - это лес с одним родителем у узла (не произвольный DAG).
package skilltree

import (
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL NODE (статический каталог)
// ══════════════════════════════════════════════════════════════════════════════

// SkillNode - один узел дерева навыков. Каталог узлов авторится админами
// и для движка прогресса доступен только на чтение.
type SkillNode struct {
	// ID - идентификатор узла.
	ID shared.NodeID

	// ParentID - родительский узел; nil для корней леса.
	ParentID *shared.NodeID

	// Title - название узла.
	Title string

	// Description - описание узла.
	Description string

	// RequiredLevel - минимальный уровень для разблокировки.
	RequiredLevel shared.Level

	// RequiredXP - минимальный XP для разблокировки.
	RequiredXP shared.XP

	// XPReward - награда за полное освоение узла.
	XPReward int

	// TopicRef - необязательная ссылка на тему, прогресс по которой
	// определяет прогресс узла.
	TopicRef *shared.TopicID

	// OrderIndex - порядок отображения среди узлов одного уровня.
	OrderIndex int
}

// IsRoot возвращает true для корневого узла (без родителя).
func (n *SkillNode) IsRoot() bool {
	return n.ParentID == nil
}

// HasTopic возвращает true, если узел привязан к теме.
func (n *SkillNode) HasTopic() bool {
	return n.TopicRef != nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL UNLOCK (прогресс пользователя по узлу)
// ══════════════════════════════════════════════════════════════════════════════

// SkillUnlock - запись о разблокировке узла пользователем.
// Создаётся при разблокировке; CompletedAt выставляется ровно один раз.
type SkillUnlock struct {
	// UserID - кто разблокировал.
	UserID shared.UserID

	// NodeID - какой узел.
	NodeID shared.NodeID

	// Progress - прогресс освоения темы узла в [0.0, 1.0].
	Progress float64

	// UnlockedAt - время разблокировки.
	UnlockedAt time.Time

	// CompletedAt - время завершения; nil, пока узел не освоен.
	CompletedAt *time.Time
}

// IsCompleted возвращает true, если узел полностью освоен.
func (u *SkillUnlock) IsCompleted() bool {
	return u != nil && u.CompletedAt != nil
}

// NewSkillUnlock создаёт запись о разблокировке с нулевым прогрессом.
func NewSkillUnlock(userID shared.UserID, nodeID shared.NodeID) *SkillUnlock {
	return &SkillUnlock{
		UserID:     userID,
		NodeID:     nodeID,
		Progress:   0,
		UnlockedAt: time.Now().UTC(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK GATES
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateGates проверяет три гейта разблокировки и возвращает типизированную
// ошибку по первому неудовлетворённому: уровень, XP, родитель. Разные виды
// ошибок существуют именно для того, чтобы UI показывал, ЧТО не выполнено.
func EvaluateGates(node *SkillNode, userXP shared.XP, parentUnlocked bool) error {
	if userXP.Level() < node.RequiredLevel {
		return shared.ErrInsufficientLevel
	}
	if userXP < node.RequiredXP {
		return shared.ErrInsufficientXP
	}
	if !node.IsRoot() && !parentUnlocked {
		return shared.ErrParentNotUnlocked
	}
	return nil
}

// CanUnlock возвращает true, если узел ещё не разблокирован и все три гейта
// удовлетворены. Узел с заблокированным родителем никогда не доступен,
// какими бы ни были уровень и XP.
func CanUnlock(node *SkillNode, userXP shared.XP, alreadyUnlocked, parentUnlocked bool) bool {
	if alreadyUnlocked {
		return false
	}
	return EvaluateGates(node, userXP, parentUnlocked) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ComputeTopicProgress вычисляет прогресс узла как долю пройденных активных
// вопросов темы. Для темы без активных вопросов прогресс равен 0 (деления
// на ноль нет).
func ComputeTopicProgress(distinctPassed, totalActive int) float64 {
	if totalActive <= 0 {
		return 0
	}
	progress := float64(distinctPassed) / float64(totalActive)
	if progress > 1 {
		progress = 1
	}
	return progress
}
