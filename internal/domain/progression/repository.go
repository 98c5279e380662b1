package progression

import (
	"context"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository определяет операции для работы с прогрессом пользователей.
type ProgressRepository interface {
	// GetByUserID возвращает прогресс пользователя.
	// Возвращает shared.ErrProgressNotFound, если записи ещё нет.
	GetByUserID(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// AddXP атомарно увеличивает XP пользователя на amount одной операцией
	// хранилища (upsert: создаёт запись с xp = amount, если её нет).
	// Возвращает прогресс ПОСЛЕ инкремента, включая кешированный уровень
	// ДО инкремента в поле Level. Никогда не уменьшает XP.
	AddXP(ctx context.Context, userID shared.UserID, amount int) (*UserProgress, error)

	// SetLevelCache обновляет кешированный уровень. Кеш для чтения,
	// не источник истины.
	SetLevelCache(ctx context.Context, userID shared.UserID, level shared.Level) error

	// UpdateStreak сохраняет состояние серии после перехода автомата
	// (upsert: продление серии само по себе - первое взаимодействие).
	UpdateStreak(ctx context.Context, userID shared.UserID, state StreakState) error

	// IncrementTotalSolved увеличивает счётчик решённых вопросов на 1.
	IncrementTotalSolved(ctx context.Context, userID shared.UserID) error

	// TopByXP возвращает топ-N пользователей по XP (проекция лидерборда).
	TopByXP(ctx context.Context, limit int) ([]*UserProgress, error)

	// Count возвращает общее количество пользователей с прогрессом.
	Count(ctx context.Context) (int, error)
}

// LedgerRepository определяет операции для работы с XP-журналом.
// Журнал append-only: интерфейс намеренно не содержит Update и Delete.
type LedgerRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, entry *LedgerEntry) error

	// ListByUser возвращает последние записи пользователя (от новых к старым).
	ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*LedgerEntry, error)

	// ListByUserSince возвращает записи пользователя начиная с указанного времени.
	ListByUserSince(ctx context.Context, userID shared.UserID, since time.Time) ([]*LedgerEntry, error)

	// SumByUser возвращает сумму всех начислений пользователя.
	// Инвариант: сумма журнала равна UserProgress.XP.
	SumByUser(ctx context.Context, userID shared.UserID) (int, error)
}
