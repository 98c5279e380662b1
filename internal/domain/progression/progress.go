// Package progression содержит доменную модель прогресса пользователя:
// XP-журнал, уровни, серии активных дней. Это ядро бизнес-логики движка -
// здесь нет внешних зависимостей.
package progression

import (
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress - агрегированный прогресс одного пользователя.
// Создаётся лениво при первом взаимодействии и никогда не удаляется.
// Поле XP - единственный источник истины; Level хранится как кеш для чтения
// и всегда пересчитывается из XP при принятии решений.
type UserProgress struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// XP - текущее количество очков опыта (монотонно растёт).
	XP shared.XP

	// Level - кешированный уровень. Не источник истины!
	// Для любых решений используйте CurrentLevel().
	Level shared.Level

	// CurrentStreak - текущая серия дней активности.
	CurrentStreak int

	// BestStreak - лучшая серия дней активности.
	BestStreak int

	// LastActiveDate - дата последней активности (без компонента времени).
	// Нулевое значение означает, что активности ещё не было.
	LastActiveDate time.Time

	// TotalSolved - количество решённых вопросов (первые прохождения).
	TotalSolved int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewUserProgress создаёт пустой прогресс для пользователя.
func NewUserProgress(userID shared.UserID) *UserProgress {
	now := time.Now().UTC()
	return &UserProgress{
		UserID:    userID,
		XP:        0,
		Level:     shared.MinLevel,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CurrentLevel возвращает уровень, пересчитанный из XP.
// Расхождение с кешированным Level - это баг, а не новый источник истины.
func (p *UserProgress) CurrentLevel() shared.Level {
	return p.XP.Level()
}

// ProgressPercent возвращает прогресс внутри текущего уровня в [0, 100).
func (p *UserProgress) ProgressPercent() float64 {
	return p.XP.ProgressPercent()
}

// HasActivity возвращает true, если пользователь уже был активен хотя бы раз.
func (p *UserProgress) HasActivity() bool {
	return !p.LastActiveDate.IsZero()
}

// String возвращает строковое представление для логирования.
func (p *UserProgress) String() string {
	return fmt.Sprintf(
		"UserProgress{User: %s, XP: %d, Level: %d, Streak: %d/%d, Solved: %d}",
		p.UserID, p.XP, p.CurrentLevel(), p.CurrentStreak, p.BestStreak, p.TotalSolved,
	)
}

// Clone создаёт копию прогресса.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
