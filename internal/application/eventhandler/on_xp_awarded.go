// Package eventhandler содержит обработчики доменных событий.
// Обработчики — "реактивная" часть системы: они подписываются на шину
// событий и запускают побочные эффекты, не замедляя основной конвейер
// начисления.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP AWARDED HANDLER
// Держит Redis-проекцию лидерборда в актуальном состоянии: каждое
// начисление XP инкрементально обновляет запись пользователя в кеше.
// Периодический rebuild-джоб чинит дрейф, если обновление потерялось.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPAwardedHandler обрабатывает событие начисления XP.
type OnXPAwardedHandler struct {
	progressRepo progression.ProgressRepository
	cache        progression.LeaderboardCache

	logger *slog.Logger
	config XPAwardedConfig
}

// XPAwardedConfig содержит конфигурацию обработчика.
type XPAwardedConfig struct {
	// UpdateTimeout - бюджет времени на одно обновление кеша.
	UpdateTimeout time.Duration
}

// DefaultXPAwardedConfig возвращает конфигурацию по умолчанию.
func DefaultXPAwardedConfig() XPAwardedConfig {
	return XPAwardedConfig{
		UpdateTimeout: 3 * time.Second,
	}
}

// NewOnXPAwardedHandler создаёт новый обработчик события начисления XP.
func NewOnXPAwardedHandler(
	progressRepo progression.ProgressRepository,
	cache progression.LeaderboardCache,
	logger *slog.Logger,
	config XPAwardedConfig,
) *OnXPAwardedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.UpdateTimeout <= 0 {
		config.UpdateTimeout = DefaultXPAwardedConfig().UpdateTimeout
	}

	return &OnXPAwardedHandler{
		progressRepo: progressRepo,
		cache:        cache,
		logger:       logger.With("handler", "on_xp_awarded"),
		config:       config,
	}
}

// Handle обрабатывает событие начисления XP.
// Ошибки кеша не возвращаются наверх: лидерборд — вторичная проекция,
// и плановый rebuild восстановит её. Конвейер начисления не должен
// падать из-за недоступного Redis.
func (h *OnXPAwardedHandler) Handle(event shared.Event) error {
	xpEvent, ok := event.(shared.XPAwardedEvent)
	if !ok {
		h.logger.Warn("received non-XPAwardedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.UpdateTimeout)
	defer cancel()

	userID := shared.UserID(xpEvent.UserID)
	progress, err := h.progressRepo.GetByUserID(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load progress for leaderboard update",
			"user_id", xpEvent.UserID,
			"error", err,
		)
		return nil
	}

	if err := h.cache.UpdateFromProgress(ctx, progress); err != nil {
		h.logger.Warn("failed to update leaderboard cache",
			"user_id", xpEvent.UserID,
			"error", err,
		)
		return nil
	}

	h.logger.Debug("leaderboard cache updated",
		"user_id", xpEvent.UserID,
		"amount", xpEvent.Amount,
		"new_xp", xpEvent.NewXP,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnXPAwardedHandler) EventType() shared.EventType {
	return shared.EventXPAwarded
}
