// Package challenge contains the daily challenge domain model: one designated
// question per calendar date, a one-time bonus reward per user, and the
// derived completion streak.
package challenge

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// DefaultBonusXP is granted for completing the daily challenge.
const DefaultBonusXP = 25

// CompletionStreakWindow bounds how far back the completion streak scan looks.
const CompletionStreakWindow = 30

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// DailyChallenge is the unique challenge row for one calendar date.
// Created lazily on the first request for a date that has none.
type DailyChallenge struct {
	ID         uuid.UUID
	Date       time.Time // day granularity, UTC midnight
	QuestionID shared.QuestionID
	BonusXP    int
	CreatedAt  time.Time
}

// IsForDay reports whether the challenge belongs to the given calendar day.
func (c *DailyChallenge) IsForDay(t time.Time) bool {
	return timeutil.IsSameDay(c.Date, t)
}

// NewDailyChallenge builds a challenge for the given day.
func NewDailyChallenge(day time.Time, questionID shared.QuestionID) *DailyChallenge {
	return &DailyChallenge{
		ID:         uuid.New(),
		Date:       timeutil.StartOfDay(day),
		QuestionID: questionID,
		BonusXP:    DefaultBonusXP,
		CreatedAt:  time.Now().UTC(),
	}
}

// DailyChallengeCompletion marks that a user completed a challenge.
// The row's existence is the completion flag; uniqueness on
// (user, challenge) makes completion idempotent at the store level.
type DailyChallengeCompletion struct {
	UserID      shared.UserID
	ChallengeID uuid.UUID
	XPEarned    int
	CompletedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION SELECTION
// ══════════════════════════════════════════════════════════════════════════════

// SelectQuestion picks a random challenge question from the active catalog,
// preferring medium difficulty and falling back to any active question.
// The randomness source is injected so tests can seed it. Returns
// shared.ErrNoActiveQuestions when the catalog is empty.
func SelectQuestion(rng *rand.Rand, active []*catalog.Question) (*catalog.Question, error) {
	if len(active) == 0 {
		return nil, shared.ErrNoActiveQuestions
	}

	var preferred []*catalog.Question
	for _, q := range active {
		if q.Difficulty.IsChallengeable() {
			preferred = append(preferred, q)
		}
	}

	pool := preferred
	if len(pool) == 0 {
		pool = active
	}
	return pool[rng.Intn(len(pool))], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION STREAK
// ══════════════════════════════════════════════════════════════════════════════

// CompletionStreak counts the consecutive run of completed days ending at
// today. Today itself may be missing (the user has not acted yet); any
// earlier gap breaks the run. Dates are compared at day granularity and the
// count never exceeds CompletionStreakWindow days including today.
func CompletionStreak(completedDates []time.Time, today time.Time) int {
	days := make(map[time.Time]struct{}, len(completedDates))
	for _, d := range completedDates {
		days[timeutil.StartOfDay(d)] = struct{}{}
	}

	streak := 0
	day := timeutil.StartOfDay(today)
	if _, ok := days[day]; ok {
		streak++
	}

	for i := 1; i < CompletionStreakWindow; i++ {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[day]; !ok {
			break
		}
		streak++
	}
	return streak
}
