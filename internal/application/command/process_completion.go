package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS COMPLETION COMMAND
// Entry point for graded attempts delivered by the grading subsystem.
// Orchestrates the full first-pass pipeline: reward bundle, solved counter,
// streak advance and skill-node progress. Repeat passes and failures are
// recorded but never rewarded - solving a question twice re-grants nothing.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessCompletionCommand carries one graded attempt.
type ProcessCompletionCommand struct {
	// UserID is the user who made the attempt.
	UserID shared.UserID

	// QuestionID is the attempted question.
	QuestionID shared.QuestionID

	// Status is the grading outcome.
	Status catalog.AttemptStatus

	// HintsUsed is the number of hints consumed during the attempt.
	HintsUsed int

	// ExecutionMs is the solution's execution time in milliseconds.
	ExecutionMs int64

	// AttemptedAt is when the attempt was graded (defaults to now).
	AttemptedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ProcessCompletionCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("process_completion: user_id is required")
	}
	if c.QuestionID == "" {
		return errors.New("process_completion: question_id is required")
	}
	switch c.Status {
	case catalog.AttemptPassed, catalog.AttemptFailed:
	default:
		return fmt.Errorf("process_completion: unknown attempt status: %s", c.Status)
	}
	if c.HintsUsed < 0 {
		return errors.New("process_completion: hints_used cannot be negative")
	}
	if c.ExecutionMs < 0 {
		return errors.New("process_completion: execution_ms cannot be negative")
	}
	return nil
}

// ProcessCompletionResult contains the pipeline outcome.
type ProcessCompletionResult struct {
	// UserID is the user who made the attempt.
	UserID shared.UserID

	// QuestionID is the attempted question.
	QuestionID shared.QuestionID

	// FirstPass indicates this was the user's first passing attempt.
	FirstPass bool

	// XPAwarded is the total XP granted for the solve bundle (zero unless
	// FirstPass).
	XPAwarded int

	// Breakdown itemizes the solve bundle for UI receipts.
	Breakdown []progression.BreakdownLine

	// NewXP is the user's total XP after all grants.
	NewXP shared.XP

	// LeveledUp indicates the solve bundle crossed a level boundary.
	LeveledUp bool

	// PreviousLevel is the cached level before the solve bundle.
	PreviousLevel shared.Level

	// NewLevel is the level after the solve bundle.
	NewLevel shared.Level

	// Streak is the streak advance outcome, nil unless FirstPass.
	Streak *UpdateStreakResult

	// NodeProgress is the skill-node recomputation outcome, nil when the
	// question's topic has no nodes or this was not a first pass.
	NodeProgress *UpdateNodeProgressResult

	// Events contains domain events generated directly by this handler.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProcessCompletionHandler handles the ProcessCompletionCommand.
type ProcessCompletionHandler struct {
	questions           catalog.QuestionReader
	recorder            catalog.AttemptRecorder
	progressRepo        progression.ProgressRepository
	awardHandler        *AwardXPHandler
	streakHandler       *UpdateStreakHandler
	nodeProgressHandler *UpdateNodeProgressHandler
	eventPublisher      shared.EventPublisher
}

// NewProcessCompletionHandler creates a new ProcessCompletionHandler.
func NewProcessCompletionHandler(
	questions catalog.QuestionReader,
	recorder catalog.AttemptRecorder,
	progressRepo progression.ProgressRepository,
	awardHandler *AwardXPHandler,
	streakHandler *UpdateStreakHandler,
	nodeProgressHandler *UpdateNodeProgressHandler,
	eventPublisher shared.EventPublisher,
) *ProcessCompletionHandler {
	return &ProcessCompletionHandler{
		questions:           questions,
		recorder:            recorder,
		progressRepo:        progressRepo,
		awardHandler:        awardHandler,
		streakHandler:       streakHandler,
		nodeProgressHandler: nodeProgressHandler,
		eventPublisher:      eventPublisher,
	}
}

// Handle executes the completion pipeline:
//
//  1. Record the attempt fact. The store's sticky-pass upsert reports
//     whether this write turned the pair into a pass for the first time -
//     that report, not a prior read, decides who gets the reward, so two
//     racing deliveries of the same pass can never both win.
//  2. On the winning first pass only: compose the fixed-weight reward
//     bundle, grant it, bump the solved counter, advance the streak and
//     recompute node progress for the question's topic.
//
// Failures and repeat passes return a success result with FirstPass=false
// and zero XP; they are expected outcomes, not errors.
func (h *ProcessCompletionHandler) Handle(ctx context.Context, cmd ProcessCompletionCommand) (*ProcessCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("process_completion: validation failed: %w", err)
	}

	attemptedAt := cmd.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}

	question, err := h.questions.GetQuestion(ctx, cmd.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("process_completion: %w", err)
	}

	newPass, err := h.recorder.RecordAttempt(ctx, catalog.AttemptFact{
		UserID:      cmd.UserID,
		QuestionID:  cmd.QuestionID,
		Status:      cmd.Status,
		HintsUsed:   cmd.HintsUsed,
		ExecutionMs: cmd.ExecutionMs,
	})
	if err != nil {
		return nil, fmt.Errorf("process_completion: failed to record attempt: %w", err)
	}

	result := &ProcessCompletionResult{
		UserID:     cmd.UserID,
		QuestionID: cmd.QuestionID,
		Breakdown:  []progression.BreakdownLine{},
		Events:     make([]shared.Event, 0, 1),
	}

	if !newPass {
		return result, nil
	}
	result.FirstPass = true

	total, breakdown := progression.ComposeQuestionReward(cmd.HintsUsed, cmd.ExecutionMs)
	award, err := h.awardHandler.Handle(ctx, AwardXPCommand{
		UserID: cmd.UserID,
		Amount: total,
		Reason: progression.ReasonQuestionPass,
		Meta: progression.QuestionPassMeta{
			QuestionID: cmd.QuestionID,
			Breakdown:  breakdown,
		},
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("process_completion: failed to grant solve reward: %w", err)
	}

	result.XPAwarded = total
	result.Breakdown = breakdown
	result.NewXP = award.NewXP
	result.LeveledUp = award.LeveledUp
	result.PreviousLevel = award.PreviousLevel
	result.NewLevel = award.NewLevel

	if err := h.progressRepo.IncrementTotalSolved(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("process_completion: failed to bump solved counter: %w", err)
	}

	result.Streak, err = h.streakHandler.Handle(ctx, UpdateStreakCommand{
		UserID:        cmd.UserID,
		ActivityAt:    attemptedAt,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("process_completion: failed to advance streak: %w", err)
	}
	if result.Streak.BonusAwarded {
		result.NewXP = result.NewXP.Add(result.Streak.BonusXP)
	}

	if question.TopicID != "" && h.nodeProgressHandler != nil {
		result.NodeProgress, err = h.nodeProgressHandler.Handle(ctx, UpdateNodeProgressCommand{
			UserID:        cmd.UserID,
			TopicID:       question.TopicID,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			return nil, fmt.Errorf("process_completion: failed to update node progress: %w", err)
		}
		if result.NodeProgress.XPAwarded > 0 {
			result.NewXP = result.NewXP.Add(result.NodeProgress.XPAwarded)
		}
	}

	solved := shared.NewQuestionSolvedEvent(cmd.UserID.String(), cmd.QuestionID.String(), total)
	if cmd.CorrelationID != "" {
		solved.BaseEvent = solved.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, solved)

	if h.eventPublisher != nil {
		for _, event := range result.Events {
			_ = h.eventPublisher.Publish(event)
		}
	}

	return result, nil
}
