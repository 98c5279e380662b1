package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STREAK COMMAND
// Advances the consecutive-activity streak for one qualifying activity.
// Must be the only path that grants streak bonuses: the same-day branch of
// the state machine is what makes repeated solves within a day safe.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakCommand contains the data to advance a user's streak.
type UpdateStreakCommand struct {
	// UserID is the user whose streak advances.
	UserID shared.UserID

	// ActivityAt is when the qualifying activity happened.
	// Defaults to now; compared at day granularity in UTC.
	ActivityAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateStreakCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("update_streak: user_id is required")
	}
	return nil
}

// UpdateStreakResult contains the result of a streak advance.
type UpdateStreakResult struct {
	// UserID is the user whose streak advanced.
	UserID shared.UserID

	// Transition is the state machine outcome.
	Transition progression.StreakTransition

	// CurrentStreak is the streak after the transition.
	CurrentStreak int

	// BestStreak is the best streak after the transition.
	BestStreak int

	// PreviousStreak is the streak before the transition.
	PreviousStreak int

	// BonusAwarded indicates a continuation bonus was granted.
	BonusAwarded bool

	// BonusXP is the granted continuation bonus, zero if none.
	BonusXP int

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakHandler handles the UpdateStreakCommand.
type UpdateStreakHandler struct {
	progressRepo   progression.ProgressRepository
	awardHandler   *AwardXPHandler
	eventPublisher shared.EventPublisher
}

// NewUpdateStreakHandler creates a new UpdateStreakHandler.
func NewUpdateStreakHandler(
	progressRepo progression.ProgressRepository,
	awardHandler *AwardXPHandler,
	eventPublisher shared.EventPublisher,
) *UpdateStreakHandler {
	return &UpdateStreakHandler{
		progressRepo:   progressRepo,
		awardHandler:   awardHandler,
		eventPublisher: eventPublisher,
	}
}

// Handle executes one step of the streak state machine and grants the
// continuation bonus when the streak extends to a new day. Same-day repeat
// calls are no-ops, so callers may invoke this once per qualifying event
// without double-counting.
func (h *UpdateStreakHandler) Handle(ctx context.Context, cmd UpdateStreakCommand) (*UpdateStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_streak: validation failed: %w", err)
	}

	activityAt := cmd.ActivityAt
	if activityAt.IsZero() {
		activityAt = timeutil.Now()
	}

	state := progression.StreakState{}
	progress, err := h.progressRepo.GetByUserID(ctx, cmd.UserID)
	switch {
	case err == nil:
		state = progression.StreakState{
			Current:        progress.CurrentStreak,
			Best:           progress.BestStreak,
			LastActiveDate: progress.LastActiveDate,
		}
	case errors.Is(err, shared.ErrProgressNotFound):
		// First ever activity: the zero state starts a streak of 1.
	default:
		return nil, fmt.Errorf("update_streak: failed to load progress: %w", err)
	}

	transition := progression.AdvanceStreak(state, activityAt)

	result := &UpdateStreakResult{
		UserID:         cmd.UserID,
		Transition:     transition.Transition,
		CurrentStreak:  transition.State.Current,
		BestStreak:     transition.State.Best,
		PreviousStreak: transition.PreviousStreak,
		Events:         make([]shared.Event, 0, 1),
	}

	if transition.Transition == progression.TransitionSameDay {
		return result, nil
	}

	if err := h.progressRepo.UpdateStreak(ctx, cmd.UserID, transition.State); err != nil {
		return nil, fmt.Errorf("update_streak: failed to persist streak: %w", err)
	}

	if transition.BonusEligible {
		award, err := h.awardHandler.Handle(ctx, AwardXPCommand{
			UserID:        cmd.UserID,
			Amount:        progression.StreakBonusXP,
			Reason:        progression.ReasonStreakBonus,
			Meta:          progression.StreakMeta{Streak: transition.State.Current},
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			return nil, fmt.Errorf("update_streak: failed to grant streak bonus: %w", err)
		}
		result.BonusAwarded = true
		result.BonusXP = award.Amount
	}

	switch transition.Transition {
	case progression.TransitionStarted, progression.TransitionExtended:
		event := shared.NewStreakExtendedEvent(cmd.UserID.String(), result.CurrentStreak, result.BestStreak)
		if transition.Transition == progression.TransitionStarted {
			event.BaseEvent = shared.NewBaseEvent(shared.EventStreakStarted, cmd.UserID.String())
		}
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)

	case progression.TransitionBroken:
		event := shared.NewStreakBrokenEvent(cmd.UserID.String(), transition.PreviousStreak)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	if h.eventPublisher != nil {
		for _, event := range result.Events {
			_ = h.eventPublisher.Publish(event)
		}
	}

	return result, nil
}
