package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE DAILY CHALLENGE COMMAND
// Grants the one-time daily bonus. The (user, challenge) uniqueness
// constraint is the race-safety mechanism: a losing concurrent caller
// observes "already completed", never a double grant.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteDailyChallengeCommand contains the data to complete a challenge.
type CompleteDailyChallengeCommand struct {
	// UserID is the user completing the challenge.
	UserID shared.UserID

	// ChallengeID is the challenge being completed.
	ChallengeID uuid.UUID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteDailyChallengeCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("complete_daily_challenge: user_id is required")
	}
	if c.ChallengeID == uuid.Nil {
		return errors.New("complete_daily_challenge: challenge_id is required")
	}
	return nil
}

// CompleteDailyChallengeResult contains the completion outcome.
type CompleteDailyChallengeResult struct {
	// UserID is the user who completed the challenge.
	UserID shared.UserID

	// ChallengeID is the completed challenge.
	ChallengeID uuid.UUID

	// AlreadyCompleted indicates the user completed this challenge before.
	AlreadyCompleted bool

	// XPEarned is the granted bonus, zero when AlreadyCompleted.
	XPEarned int

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteDailyChallengeHandler handles the CompleteDailyChallengeCommand.
type CompleteDailyChallengeHandler struct {
	challengeRepo  challenge.DailyChallengeRepository
	completionRepo challenge.CompletionRepository
	awardHandler   *AwardXPHandler
	eventPublisher shared.EventPublisher

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewCompleteDailyChallengeHandler creates a new CompleteDailyChallengeHandler.
func NewCompleteDailyChallengeHandler(
	challengeRepo challenge.DailyChallengeRepository,
	completionRepo challenge.CompletionRepository,
	awardHandler *AwardXPHandler,
	eventPublisher shared.EventPublisher,
) *CompleteDailyChallengeHandler {
	return &CompleteDailyChallengeHandler{
		challengeRepo:  challengeRepo,
		completionRepo: completionRepo,
		awardHandler:   awardHandler,
		eventPublisher: eventPublisher,
		now:            timeutil.Now,
	}
}

// Handle executes the completion. A challenge from any day other than today
// fails with shared.ErrChallengeExpired; a repeat completion is an idempotent
// no-op reported through the AlreadyCompleted flag.
func (h *CompleteDailyChallengeHandler) Handle(ctx context.Context, cmd CompleteDailyChallengeCommand) (*CompleteDailyChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: validation failed: %w", err)
	}

	ch, err := h.challengeRepo.GetByID(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: %w", err)
	}

	result := &CompleteDailyChallengeResult{
		UserID:      cmd.UserID,
		ChallengeID: cmd.ChallengeID,
		Events:      make([]shared.Event, 0, 1),
	}

	done, err := h.completionRepo.Exists(ctx, cmd.UserID, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: failed to check completion: %w", err)
	}
	if done {
		result.AlreadyCompleted = true
		return result, nil
	}

	if !ch.IsForDay(h.now()) {
		return nil, fmt.Errorf("complete_daily_challenge: %w", shared.ErrChallengeExpired)
	}

	// Inserting the completion row first claims the one-per-user slot;
	// only the insert winner grants the bonus, so a concurrent duplicate
	// can never double-grant XP.
	completion := &challenge.DailyChallengeCompletion{
		UserID:      cmd.UserID,
		ChallengeID: cmd.ChallengeID,
		XPEarned:    ch.BonusXP,
		CompletedAt: h.now(),
	}
	if err := h.completionRepo.Create(ctx, completion); err != nil {
		if shared.IsAlreadyExists(err) {
			result.AlreadyCompleted = true
			return result, nil
		}
		return nil, fmt.Errorf("complete_daily_challenge: failed to store completion: %w", err)
	}

	award, err := h.awardHandler.Handle(ctx, AwardXPCommand{
		UserID: cmd.UserID,
		Amount: ch.BonusXP,
		Reason: progression.ReasonDailyChallenge,
		Meta: progression.ChallengeMeta{
			ChallengeID: ch.ID.String(),
			Date:        timeutil.FormatDate(ch.Date),
		},
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: failed to grant bonus: %w", err)
	}

	result.XPEarned = award.Amount

	event := shared.NewChallengeCompletedEvent(cmd.UserID.String(), ch.ID.String(), award.Amount)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.eventPublisher != nil {
		for _, e := range result.Events {
			_ = h.eventPublisher.Publish(e)
		}
	}

	return result, nil
}
