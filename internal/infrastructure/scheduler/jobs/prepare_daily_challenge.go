package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codequest-hub/codequest-progression/internal/application/command"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREPARE DAILY CHALLENGE JOB
// ══════════════════════════════════════════════════════════════════════════════

// PrepareDailyChallengeJob eagerly creates the challenge row for the current
// date shortly after midnight. The read path also creates the row lazily, so
// this job only moves the creation off the first user's request.
type PrepareDailyChallengeJob struct {
	handler *command.PrepareDailyChallengeHandler
	logger  *slog.Logger
}

// NewPrepareDailyChallengeJob creates a new prepare daily challenge job.
func NewPrepareDailyChallengeJob(
	handler *command.PrepareDailyChallengeHandler,
	logger *slog.Logger,
) *PrepareDailyChallengeJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &PrepareDailyChallengeJob{
		handler: handler,
		logger:  logger,
	}
}

// Name returns the job name.
func (j *PrepareDailyChallengeJob) Name() string {
	return "prepare_daily_challenge"
}

// Description returns a human-readable description.
func (j *PrepareDailyChallengeJob) Description() string {
	return "Creates the daily challenge row for the current date"
}

// Run executes the job. An empty question catalog is logged and tolerated:
// the challenge will be created lazily once questions appear.
func (j *PrepareDailyChallengeJob) Run(ctx context.Context) error {
	today := timeutil.Today()

	result, err := j.handler.Handle(ctx, command.PrepareDailyChallengeCommand{Date: today})
	if err != nil {
		if errors.Is(err, shared.ErrNoActiveQuestions) {
			j.logger.Warn("no active questions, skipping daily challenge preparation",
				"date", timeutil.FormatDate(today),
			)
			return nil
		}
		return fmt.Errorf("failed to prepare daily challenge: %w", err)
	}

	if result.Created {
		j.logger.Info("daily challenge prepared",
			"date", timeutil.FormatDate(today),
			"challenge_id", result.Challenge.ID.String(),
			"question_id", result.Challenge.QuestionID.String(),
		)
	} else {
		j.logger.Debug("daily challenge already exists",
			"date", timeutil.FormatDate(today),
		)
	}

	return nil
}
