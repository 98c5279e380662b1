package progression

import (
	"context"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PROJECTION
// Лидерборд - производная проекция user_progress, не самостоятельное
// состояние. Кеш может быть потерян и перестроен в любой момент.
// ══════════════════════════════════════════════════════════════════════════════

// RankedEntry - одна строка лидерборда с вычисленной позицией.
type RankedEntry struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// Rank - позиция в рейтинге (с 1).
	Rank int64

	// XP - текущее количество очков опыта.
	XP shared.XP

	// Level - уровень, вычисленный из XP.
	Level shared.Level

	// CurrentStreak - текущая серия дней активности.
	CurrentStreak int

	// TotalSolved - количество решённых вопросов.
	TotalSolved int
}

// RankedFromProgress строит строку лидерборда из прогресса пользователя.
// Позицию проставляет вызывающий.
func RankedFromProgress(p *UserProgress, rank int64) RankedEntry {
	return RankedEntry{
		UserID:        p.UserID,
		Rank:          rank,
		XP:            p.XP,
		Level:         p.CurrentLevel(),
		CurrentStreak: p.CurrentStreak,
		TotalSolved:   p.TotalSolved,
	}
}

// LeaderboardCache - быстрое чтение топ-N по XP. Реализация находится в
// infrastructure/persistence/redis; каждый читатель обязан иметь запасной
// путь через ProgressRepository.TopByXP.
type LeaderboardCache interface {
	// GetTop возвращает топ-N строк с проставленными позициями.
	GetTop(ctx context.Context, limit int) ([]RankedEntry, error)

	// GetRank возвращает позицию пользователя (с 1).
	GetRank(ctx context.Context, userID shared.UserID) (int64, error)

	// GetCount возвращает количество строк в кеше.
	GetCount(ctx context.Context) (int64, error)

	// UpdateFromProgress обновляет строку одного пользователя после начисления.
	UpdateFromProgress(ctx context.Context, p *UserProgress) error

	// Rebuild полностью перестраивает проекцию из user_progress.
	Rebuild(ctx context.Context, users []*UserProgress) error

	// Invalidate сбрасывает кеш.
	Invalidate(ctx context.Context) error
}
