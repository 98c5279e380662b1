// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Возвращает агрегированный прогресс пользователя вместе с последними
// записями XP-журнала для квитанций в UI.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProgressQuery содержит параметры запроса прогресса.
type GetUserProgressQuery struct {
	// UserID - чей прогресс запрашивается.
	UserID shared.UserID

	// HistoryLimit - сколько последних записей журнала вернуть
	// (по умолчанию 10, максимум 100, 0 допустимо).
	HistoryLimit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetUserProgressQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	if q.HistoryLimit < 0 {
		return errors.New("history_limit cannot be negative")
	}
	if q.HistoryLimit > 100 {
		q.HistoryLimit = 100
	}
	return nil
}

// LedgerEntryDTO - DTO одной записи XP-журнала.
type LedgerEntryDTO struct {
	// Amount - размер начисления.
	Amount int `json:"amount"`

	// Reason - причина начисления.
	Reason string `json:"reason"`

	// Meta - типизированные метаданные причины.
	Meta progression.Metadata `json:"meta,omitempty"`

	// CreatedAt - время начисления.
	CreatedAt time.Time `json:"created_at"`
}

// UserProgressDTO - DTO агрегированного прогресса.
type UserProgressDTO struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// XP - текущее количество очков опыта.
	XP int `json:"xp"`

	// Level - уровень, вычисленный из XP.
	Level int `json:"level"`

	// ProgressPercent - прогресс внутри текущего уровня в [0, 100).
	ProgressPercent float64 `json:"progress_percent"`

	// XPToNextLevel - сколько XP осталось до следующего уровня.
	XPToNextLevel int `json:"xp_to_next_level"`

	// CurrentStreak - текущая серия дней активности.
	CurrentStreak int `json:"current_streak"`

	// BestStreak - лучшая серия дней активности.
	BestStreak int `json:"best_streak"`

	// LastActiveDate - дата последней активности (YYYY-MM-DD, пустая
	// строка - активности ещё не было).
	LastActiveDate string `json:"last_active_date,omitempty"`

	// TotalSolved - количество решённых вопросов.
	TotalSolved int `json:"total_solved"`
}

// GetUserProgressResult содержит результат запроса.
type GetUserProgressResult struct {
	// Progress - агрегированный прогресс.
	Progress UserProgressDTO `json:"progress"`

	// RecentHistory - последние записи журнала (от новых к старым).
	RecentHistory []LedgerEntryDTO `json:"recent_history"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetUserProgressHandler обрабатывает запрос прогресса пользователя.
type GetUserProgressHandler struct {
	progressRepo progression.ProgressRepository
	ledgerRepo   progression.LedgerRepository
}

// NewGetUserProgressHandler создаёт новый обработчик.
func NewGetUserProgressHandler(
	progressRepo progression.ProgressRepository,
	ledgerRepo progression.LedgerRepository,
) *GetUserProgressHandler {
	return &GetUserProgressHandler{
		progressRepo: progressRepo,
		ledgerRepo:   ledgerRepo,
	}
}

// Handle выполняет запрос. Для пользователя без прогресса возвращается
// пустой прогресс (нулевой XP, уровень 1) - запись создаётся лениво при
// первом начислении, а не при первом чтении.
func (h *GetUserProgressHandler) Handle(ctx context.Context, query GetUserProgressQuery) (*GetUserProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetUserProgress", shared.ErrValidation, err.Error(), err)
	}

	limit := query.HistoryLimit
	if limit == 0 {
		limit = 10
	}

	progress, err := h.progressRepo.GetByUserID(ctx, query.UserID)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrProgressNotFound):
		progress = progression.NewUserProgress(query.UserID)
	default:
		return nil, shared.WrapError("query", "GetUserProgress", shared.ErrStoreUnavailable, "failed to load progress", err)
	}

	entries, err := h.ledgerRepo.ListByUser(ctx, query.UserID, limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetUserProgress", shared.ErrStoreUnavailable, "failed to load ledger history", err)
	}

	history := make([]LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		history = append(history, LedgerEntryDTO{
			Amount:    e.Amount,
			Reason:    e.Reason.String(),
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
		})
	}

	return &GetUserProgressResult{
		Progress:      toProgressDTO(progress),
		RecentHistory: history,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// toProgressDTO конвертирует доменную сущность в DTO. Уровень всегда
// пересчитывается из XP - кешированное поле Level для чтения не используется.
func toProgressDTO(p *progression.UserProgress) UserProgressDTO {
	level := p.CurrentLevel()

	dto := UserProgressDTO{
		UserID:          p.UserID.String(),
		XP:              p.XP.Int(),
		Level:           level.Int(),
		ProgressPercent: p.ProgressPercent(),
		XPToNextLevel:   level.CeilXP() - p.XP.Int(),
		CurrentStreak:   p.CurrentStreak,
		BestStreak:      p.BestStreak,
		TotalSolved:     p.TotalSolved,
	}
	if !p.LastActiveDate.IsZero() {
		dto.LastActiveDate = p.LastActiveDate.Format("2006-01-02")
	}
	return dto
}
