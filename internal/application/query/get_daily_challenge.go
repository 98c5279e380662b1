package query

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY CHALLENGE QUERY
// Возвращает сегодняшнее задание (создавая его лениво через провайдер),
// статус выполнения пользователем и серию выполненных дней.
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeProvider выдаёт задание на дату, создавая его при отсутствии.
// Реализуется командным обработчиком подготовки задания.
type ChallengeProvider interface {
	GetOrCreate(ctx context.Context, day time.Time) (*challenge.DailyChallenge, error)
}

// GetDailyChallengeQuery содержит параметры запроса задания.
type GetDailyChallengeQuery struct {
	// UserID - для кого запрашивается статус выполнения.
	UserID shared.UserID
}

// Validate проверяет корректность параметров запроса.
func (q *GetDailyChallengeQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return errors.New("user_id is required")
	}
	return nil
}

// DailyChallengeDTO - DTO ежедневного задания.
type DailyChallengeDTO struct {
	// ID - идентификатор задания.
	ID uuid.UUID `json:"id"`

	// Date - дата задания (YYYY-MM-DD).
	Date string `json:"date"`

	// QuestionID - назначенный вопрос.
	QuestionID string `json:"question_id"`

	// BonusXP - одноразовый бонус за выполнение.
	BonusXP int `json:"bonus_xp"`
}

// GetDailyChallengeResult содержит результат запроса.
type GetDailyChallengeResult struct {
	// Challenge - сегодняшнее задание.
	Challenge DailyChallengeDTO `json:"challenge"`

	// Completed - выполнил ли пользователь сегодняшнее задание.
	Completed bool `json:"completed"`

	// CompletionStreak - серия подряд выполненных дней (сегодня может
	// отсутствовать, разрыв раньше обнуляет серию).
	CompletionStreak int `json:"completion_streak"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetDailyChallengeHandler обрабатывает запрос ежедневного задания.
type GetDailyChallengeHandler struct {
	provider       ChallengeProvider
	completionRepo challenge.CompletionRepository
}

// NewGetDailyChallengeHandler создаёт новый обработчик.
func NewGetDailyChallengeHandler(
	provider ChallengeProvider,
	completionRepo challenge.CompletionRepository,
) *GetDailyChallengeHandler {
	return &GetDailyChallengeHandler{
		provider:       provider,
		completionRepo: completionRepo,
	}
}

// Handle выполняет запрос. Возвращает shared.ErrNoActiveQuestions, если
// задание не из чего выбрать (пустой каталог).
func (h *GetDailyChallengeHandler) Handle(ctx context.Context, query GetDailyChallengeQuery) (*GetDailyChallengeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetDailyChallenge", shared.ErrValidation, err.Error(), err)
	}

	today := timeutil.Today()

	ch, err := h.provider.GetOrCreate(ctx, today)
	if err != nil {
		return nil, err
	}

	completed, err := h.completionRepo.Exists(ctx, query.UserID, ch.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetDailyChallenge", shared.ErrStoreUnavailable, "failed to check completion", err)
	}

	since := today.AddDate(0, 0, -challenge.CompletionStreakWindow)
	dates, err := h.completionRepo.ListDatesSince(ctx, query.UserID, since)
	if err != nil {
		return nil, shared.WrapError("query", "GetDailyChallenge", shared.ErrStoreUnavailable, "failed to load completion dates", err)
	}

	return &GetDailyChallengeResult{
		Challenge: DailyChallengeDTO{
			ID:         ch.ID,
			Date:       timeutil.FormatDate(ch.Date),
			QuestionID: ch.QuestionID.String(),
			BonusXP:    ch.BonusXP,
		},
		Completed:        completed,
		CompletionStreak: challenge.CompletionStreak(dates, today),
		GeneratedAt:      time.Now().UTC(),
	}, nil
}
