// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/application/command"
	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADED ATTEMPT WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// AttemptPayload is the JSON body the grading platform posts for every
// graded attempt.
type AttemptPayload struct {
	UserID        string    `json:"user_id"`
	QuestionID    string    `json:"question_id"`
	Status        string    `json:"status"` // "passed" or "failed"
	HintsUsed     int       `json:"hints_used"`
	ExecutionMs   int64     `json:"execution_ms"`
	AttemptedAt   time.Time `json:"attempted_at,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ToCommand converts the payload to a completion command.
func (p *AttemptPayload) ToCommand() command.ProcessCompletionCommand {
	return command.ProcessCompletionCommand{
		UserID:        shared.UserID(p.UserID),
		QuestionID:    shared.QuestionID(p.QuestionID),
		Status:        catalog.AttemptStatus(p.Status),
		HintsUsed:     p.HintsUsed,
		ExecutionMs:   p.ExecutionMs,
		AttemptedAt:   p.AttemptedAt,
		CorrelationID: p.CorrelationID,
	}
}

// WebhookHandler defines the interface for handling graded attempt deliveries.
type WebhookHandler interface {
	// HandleAttemptResult processes one graded attempt payload.
	HandleAttemptResult(ctx context.Context, payload []byte) (*command.ProcessCompletionResult, error)
}

// AttemptWebhookHandler implements WebhookHandler on top of the completion
// pipeline. Transient store failures are retried in place: the grading
// platform re-delivers on non-2xx responses anyway, and the pipeline is
// idempotent, but retrying here keeps most deliveries single-shot.
type AttemptWebhookHandler struct {
	completions *command.ProcessCompletionHandler
	retrier     *retry.Retrier
}

// NewAttemptWebhookHandler creates a new attempt webhook handler.
func NewAttemptWebhookHandler(completions *command.ProcessCompletionHandler) *AttemptWebhookHandler {
	return &AttemptWebhookHandler{
		completions: completions,
		retrier:     retry.GradingWebhookRetrier(),
	}
}

// HandleAttemptResult parses and processes one graded attempt. Malformed
// payloads come back as validation errors so the transport can answer 4xx
// and stop the grading platform from re-delivering them.
func (h *AttemptWebhookHandler) HandleAttemptResult(ctx context.Context, payload []byte) (*command.ProcessCompletionResult, error) {
	var body AttemptPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, shared.WrapError("http", "AttemptWebhook", shared.ErrValidation, "failed to parse attempt payload", err)
	}

	cmd := body.ToCommand()
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("http", "AttemptWebhook", shared.ErrValidation, err.Error(), err)
	}

	var result *command.ProcessCompletionResult
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = h.completions.Handle(ctx, cmd)
		if opErr != nil && !shared.IsRetryable(opErr) {
			return retry.Permanent(opErr)
		}
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
