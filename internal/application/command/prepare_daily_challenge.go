package command

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREPARE DAILY CHALLENGE COMMAND
// Get-or-create for the one challenge row per calendar date. Used lazily by
// the read path and eagerly by the scheduler shortly after midnight.
// ══════════════════════════════════════════════════════════════════════════════

// PrepareDailyChallengeCommand names the day to prepare.
type PrepareDailyChallengeCommand struct {
	// Date is the calendar day; defaults to today. Time component ignored.
	Date time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// PrepareDailyChallengeResult contains the prepared challenge.
type PrepareDailyChallengeResult struct {
	// Challenge is the challenge row for the date.
	Challenge *challenge.DailyChallenge

	// Created indicates this call created the row (false when it already
	// existed or another instance won the creation race).
	Created bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// PrepareDailyChallengeHandler handles the PrepareDailyChallengeCommand.
type PrepareDailyChallengeHandler struct {
	challengeRepo  challenge.DailyChallengeRepository
	questions      catalog.QuestionReader
	eventPublisher shared.EventPublisher

	// rng is injectable so challenge selection is reproducible in tests.
	rng *rand.Rand
}

// NewPrepareDailyChallengeHandler creates a new PrepareDailyChallengeHandler.
func NewPrepareDailyChallengeHandler(
	challengeRepo challenge.DailyChallengeRepository,
	questions catalog.QuestionReader,
	eventPublisher shared.EventPublisher,
	rng *rand.Rand,
) *PrepareDailyChallengeHandler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PrepareDailyChallengeHandler{
		challengeRepo:  challengeRepo,
		questions:      questions,
		eventPublisher: eventPublisher,
		rng:            rng,
	}
}

// Handle returns the challenge for the date, creating it when absent.
// Creation is safe under concurrent first-requesters: the date's uniqueness
// constraint decides the winner and the loser re-reads instead of erroring.
// Returns shared.ErrNoActiveQuestions when the catalog is empty.
func (h *PrepareDailyChallengeHandler) Handle(ctx context.Context, cmd PrepareDailyChallengeCommand) (*PrepareDailyChallengeResult, error) {
	day := cmd.Date
	if day.IsZero() {
		day = timeutil.Today()
	}

	existing, err := h.challengeRepo.GetByDate(ctx, day)
	switch {
	case err == nil:
		return &PrepareDailyChallengeResult{Challenge: existing}, nil
	case shared.IsNotFound(err):
		// No challenge for this date yet, create one.
	default:
		return nil, fmt.Errorf("prepare_daily_challenge: failed to load challenge: %w", err)
	}

	active, err := h.questions.ListActiveQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare_daily_challenge: failed to list questions: %w", err)
	}

	question, err := challenge.SelectQuestion(h.rng, active)
	if err != nil {
		return nil, fmt.Errorf("prepare_daily_challenge: %w", err)
	}

	ch := challenge.NewDailyChallenge(day, question.ID)
	if err := h.challengeRepo.Create(ctx, ch); err != nil {
		if shared.IsAlreadyExists(err) {
			// Lost the creation race; the winner's challenge stands.
			winner, err := h.challengeRepo.GetByDate(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("prepare_daily_challenge: failed to re-read challenge: %w", err)
			}
			return &PrepareDailyChallengeResult{Challenge: winner}, nil
		}
		return nil, fmt.Errorf("prepare_daily_challenge: failed to create challenge: %w", err)
	}

	result := &PrepareDailyChallengeResult{
		Challenge: ch,
		Created:   true,
		Events:    make([]shared.Event, 0, 1),
	}

	event := shared.NewChallengeCreatedEvent(ch.ID.String(), ch.QuestionID.String(), ch.Date, ch.BonusXP)
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

// GetOrCreate is a convenience wrapper for the read path: it returns the
// challenge for the day, creating it lazily. Satisfies query.ChallengeProvider.
func (h *PrepareDailyChallengeHandler) GetOrCreate(ctx context.Context, day time.Time) (*challenge.DailyChallenge, error) {
	result, err := h.Handle(ctx, PrepareDailyChallengeCommand{Date: day})
	if err != nil {
		return nil, err
	}
	return result.Challenge, nil
}
