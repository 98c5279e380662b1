package query

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ-N пользователей по XP. Быстрый путь - Redis-проекция за циклом
// circuit breaker; запасной путь - прямой запрос к user_progress.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	return nil
}

// LeaderboardRowDTO - DTO одной строки лидерборда.
type LeaderboardRowDTO struct {
	// Rank - позиция в рейтинге (с 1).
	Rank int64 `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// XP - текущее количество очков опыта.
	XP int `json:"xp"`

	// Level - уровень пользователя.
	Level int `json:"level"`

	// CurrentStreak - текущая серия дней активности.
	CurrentStreak int `json:"current_streak"`

	// TotalSolved - количество решённых вопросов.
	TotalSolved int `json:"total_solved"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Entries - строки лидерборда.
	Entries []LeaderboardRowDTO `json:"entries"`

	// TotalCount - общее количество пользователей с прогрессом.
	TotalCount int `json:"total_count"`

	// FromCache - получен ли результат из Redis-проекции.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	progressRepo progression.ProgressRepository
	cache        progression.LeaderboardCache
	breaker      *circuitbreaker.CircuitBreaker
}

// NewGetLeaderboardHandler создаёт новый обработчик. Кеш необязателен:
// без него все запросы идут напрямую в PostgreSQL.
func NewGetLeaderboardHandler(
	progressRepo progression.ProgressRepository,
	cache progression.LeaderboardCache,
	breaker *circuitbreaker.CircuitBreaker,
) *GetLeaderboardHandler {
	if breaker == nil {
		breaker = circuitbreaker.LeaderboardCacheBreaker(nil)
	}
	return &GetLeaderboardHandler{
		progressRepo: progressRepo,
		cache:        cache,
		breaker:      breaker,
	}
}

// Handle выполняет запрос. Любая ошибка кеша (включая разомкнутый breaker
// и пустую проекцию) приводит к чтению из PostgreSQL, а не к отказу.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	if entries, ok := h.tryCache(ctx, query.Limit); ok {
		return h.buildResult(ctx, entries, true), nil
	}

	users, err := h.progressRepo.TopByXP(ctx, query.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrStoreUnavailable, "failed to load leaderboard", err)
	}

	entries := make([]progression.RankedEntry, 0, len(users))
	for i, p := range users {
		entries = append(entries, progression.RankedFromProgress(p, int64(i+1)))
	}
	return h.buildResult(ctx, entries, false), nil
}

// tryCache читает топ из Redis-проекции за циклом circuit breaker.
func (h *GetLeaderboardHandler) tryCache(ctx context.Context, limit int) ([]progression.RankedEntry, bool) {
	if h.cache == nil {
		return nil, false
	}

	var entries []progression.RankedEntry
	err := h.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		entries, err = h.cache.GetTop(ctx, limit)
		return err
	})
	if err != nil || len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

func (h *GetLeaderboardHandler) buildResult(ctx context.Context, entries []progression.RankedEntry, fromCache bool) *GetLeaderboardResult {
	totalCount, err := h.progressRepo.Count(ctx)
	if err != nil {
		totalCount = len(entries)
	}

	rows := make([]LeaderboardRowDTO, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, LeaderboardRowDTO{
			Rank:          e.Rank,
			UserID:        e.UserID.String(),
			XP:            e.XP.Int(),
			Level:         e.Level.Int(),
			CurrentStreak: e.CurrentStreak,
			TotalSolved:   e.TotalSolved,
		})
	}

	return &GetLeaderboardResult{
		Entries:     rows,
		TotalCount:  totalCount,
		FromCache:   fromCache,
		GeneratedAt: time.Now().UTC(),
	}
}
