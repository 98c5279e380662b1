// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// The single write path into the XP ledger. Every grant in the system - solve
// bundles, streak bonuses, node rewards, challenge bonuses - flows through
// this handler, so the ledger stays the complete history of a user's XP.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data for one XP grant.
type AwardXPCommand struct {
	// UserID is the recipient of the grant.
	UserID shared.UserID

	// Amount is the XP to grant. Must be positive; XP is never revoked.
	Amount int

	// Reason is the closed-set reason code for the grant.
	Reason progression.Reason

	// Meta is the typed per-reason payload stored with the ledger entry.
	Meta progression.Metadata

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("award_xp: user_id is required")
	}
	if c.Amount <= 0 {
		return fmt.Errorf("award_xp: %w", shared.ErrInvalidXPAmount)
	}
	if !c.Reason.IsValid() {
		return fmt.Errorf("award_xp: %w: %s", shared.ErrUnknownReason, c.Reason)
	}
	if c.Meta != nil && c.Meta.MetaReason() != c.Reason {
		return errors.New("award_xp: metadata does not match reason code")
	}
	return nil
}

// AwardXPResult contains the result of one XP grant.
type AwardXPResult struct {
	// UserID is the recipient.
	UserID shared.UserID

	// Amount is the granted XP.
	Amount int

	// NewXP is the user's total XP after the grant.
	NewXP shared.XP

	// PreviousLevel is the cached level before the grant.
	PreviousLevel shared.Level

	// NewLevel is the level recomputed from post-grant XP.
	NewLevel shared.Level

	// LeveledUp indicates the grant pushed the user past a level boundary.
	LeveledUp bool

	// Entry is the ledger entry that was appended.
	Entry *progression.LedgerEntry

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	progressRepo   progression.ProgressRepository
	ledgerRepo     progression.LedgerRepository
	eventPublisher shared.EventPublisher
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(
	progressRepo progression.ProgressRepository,
	ledgerRepo progression.LedgerRepository,
	eventPublisher shared.EventPublisher,
) *AwardXPHandler {
	return &AwardXPHandler{
		progressRepo:   progressRepo,
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the award. The XP increment is a single atomic store
// operation (upsert with increment), so two concurrent grants for the same
// user never lose an update. Level-up detection compares the cached level
// returned from before the increment with the level recomputed from the
// post-increment XP.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_xp: validation failed: %w", err)
	}

	entry, err := progression.NewLedgerEntry(cmd.UserID, cmd.Amount, cmd.Reason, cmd.Meta)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to build ledger entry: %w", err)
	}

	progress, err := h.progressRepo.AddXP(ctx, cmd.UserID, cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to increment xp: %w", err)
	}

	// The balance is already committed at this point; an append failure is
	// surfaced so the caller can retry the journal write, never the grant.
	if err := h.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("award_xp: failed to append ledger entry: %w", err)
	}

	result := &AwardXPResult{
		UserID:        cmd.UserID,
		Amount:        cmd.Amount,
		NewXP:         progress.XP,
		PreviousLevel: progress.Level,
		NewLevel:      progress.CurrentLevel(),
		Entry:         entry,
		Events:        make([]shared.Event, 0, 2),
	}

	awarded := shared.NewXPAwardedEvent(cmd.UserID.String(), cmd.Amount, cmd.Reason.String(), progress.XP.Int())
	if cmd.CorrelationID != "" {
		awarded.BaseEvent = awarded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, awarded)

	if result.NewLevel > result.PreviousLevel {
		result.LeveledUp = true

		// XP is already committed at this point. The level column is a
		// read cache, but a failed refresh is still surfaced so the
		// delivery is retried instead of leaving a stale level behind.
		if err := h.progressRepo.SetLevelCache(ctx, cmd.UserID, result.NewLevel); err != nil {
			return nil, fmt.Errorf("award_xp: failed to refresh level cache: %w", err)
		}

		levelUp := shared.NewLevelUpEvent(
			cmd.UserID.String(),
			result.PreviousLevel.Int(),
			result.NewLevel.Int(),
			progress.XP.Int(),
		)
		if cmd.CorrelationID != "" {
			levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, levelUp)
	}

	h.publish(result.Events)

	return result, nil
}

func (h *AwardXPHandler) publish(events []shared.Event) {
	if h.eventPublisher == nil {
		return
	}
	for _, event := range events {
		_ = h.eventPublisher.Publish(event)
	}
}
