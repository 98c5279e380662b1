package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK SKILL NODE COMMAND
// Validates the three unlock gates (level, XP, parent) and creates the
// unlock row. Unlocking an already-unlocked node is an idempotent no-op.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockSkillNodeCommand contains the data to unlock a node.
type UnlockSkillNodeCommand struct {
	// UserID is the user unlocking the node.
	UserID shared.UserID

	// NodeID is the node to unlock.
	NodeID shared.NodeID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UnlockSkillNodeCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("unlock_skill_node: user_id is required")
	}
	if c.NodeID == "" {
		return errors.New("unlock_skill_node: node_id is required")
	}
	return nil
}

// UnlockSkillNodeResult contains the unlock outcome.
type UnlockSkillNodeResult struct {
	// UserID is the user who unlocked the node.
	UserID shared.UserID

	// NodeID is the unlocked node.
	NodeID shared.NodeID

	// AlreadyUnlocked indicates the node was unlocked before this call.
	AlreadyUnlocked bool

	// Unlock is the unlock row (existing or newly created).
	Unlock *skilltree.SkillUnlock

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UnlockSkillNodeHandler handles the UnlockSkillNodeCommand.
type UnlockSkillNodeHandler struct {
	nodeRepo            skilltree.SkillNodeRepository
	unlockRepo          skilltree.SkillUnlockRepository
	progressRepo        progression.ProgressRepository
	nodeProgressHandler *UpdateNodeProgressHandler
	eventPublisher      shared.EventPublisher
}

// NewUnlockSkillNodeHandler creates a new UnlockSkillNodeHandler.
func NewUnlockSkillNodeHandler(
	nodeRepo skilltree.SkillNodeRepository,
	unlockRepo skilltree.SkillUnlockRepository,
	progressRepo progression.ProgressRepository,
	nodeProgressHandler *UpdateNodeProgressHandler,
	eventPublisher shared.EventPublisher,
) *UnlockSkillNodeHandler {
	return &UnlockSkillNodeHandler{
		nodeRepo:            nodeRepo,
		unlockRepo:          unlockRepo,
		progressRepo:        progressRepo,
		nodeProgressHandler: nodeProgressHandler,
		eventPublisher:      eventPublisher,
	}
}

// Handle executes the unlock. Gate failures surface as the typed errors
// shared.ErrInsufficientLevel, shared.ErrInsufficientXP and
// shared.ErrParentNotUnlocked so the caller can show which gate was unmet.
// A concurrent duplicate unlock loses the insert race and is reported as
// AlreadyUnlocked, not as an error.
func (h *UnlockSkillNodeHandler) Handle(ctx context.Context, cmd UnlockSkillNodeCommand) (*UnlockSkillNodeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("unlock_skill_node: validation failed: %w", err)
	}

	node, err := h.nodeRepo.GetByID(ctx, cmd.NodeID)
	if err != nil {
		return nil, fmt.Errorf("unlock_skill_node: %w", err)
	}

	result := &UnlockSkillNodeResult{
		UserID: cmd.UserID,
		NodeID: cmd.NodeID,
		Events: make([]shared.Event, 0, 1),
	}

	existing, err := h.unlockRepo.Get(ctx, cmd.UserID, cmd.NodeID)
	switch {
	case err == nil:
		result.AlreadyUnlocked = true
		result.Unlock = existing
		return result, nil
	case shared.IsNotFound(err):
		// Not unlocked yet, proceed to the gates.
	default:
		return nil, fmt.Errorf("unlock_skill_node: failed to check unlock: %w", err)
	}

	userXP := shared.XP(0)
	progress, err := h.progressRepo.GetByUserID(ctx, cmd.UserID)
	switch {
	case err == nil:
		userXP = progress.XP
	case errors.Is(err, shared.ErrProgressNotFound):
		// No activity yet: the user is level 1 with zero XP.
	default:
		return nil, fmt.Errorf("unlock_skill_node: failed to load progress: %w", err)
	}

	parentUnlocked := true
	if !node.IsRoot() {
		_, err := h.unlockRepo.Get(ctx, cmd.UserID, *node.ParentID)
		switch {
		case err == nil:
			parentUnlocked = true
		case shared.IsNotFound(err):
			parentUnlocked = false
		default:
			return nil, fmt.Errorf("unlock_skill_node: failed to check parent unlock: %w", err)
		}
	}

	if err := skilltree.EvaluateGates(node, userXP, parentUnlocked); err != nil {
		return nil, fmt.Errorf("unlock_skill_node: %w", err)
	}

	unlock := skilltree.NewSkillUnlock(cmd.UserID, cmd.NodeID)
	if err := h.unlockRepo.Create(ctx, unlock); err != nil {
		if shared.IsAlreadyExists(err) {
			// Lost a concurrent race; the other caller's unlock stands.
			result.AlreadyUnlocked = true
			result.Unlock, err = h.unlockRepo.Get(ctx, cmd.UserID, cmd.NodeID)
			if err != nil {
				return nil, fmt.Errorf("unlock_skill_node: failed to re-read unlock: %w", err)
			}
			return result, nil
		}
		return nil, fmt.Errorf("unlock_skill_node: failed to create unlock: %w", err)
	}
	result.Unlock = unlock

	event := shared.NewNodeUnlockedEvent(cmd.UserID.String(), cmd.NodeID.String())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.eventPublisher != nil {
		for _, e := range result.Events {
			_ = h.eventPublisher.Publish(e)
		}
	}

	// Seed the node's progress immediately so a topic the user already
	// mastered completes the node without waiting for the next solve.
	if node.HasTopic() && h.nodeProgressHandler != nil {
		_, err := h.nodeProgressHandler.Handle(ctx, UpdateNodeProgressCommand{
			UserID:        cmd.UserID,
			TopicID:       *node.TopicRef,
			CorrelationID: cmd.CorrelationID,
		})
		if err != nil {
			return nil, fmt.Errorf("unlock_skill_node: failed to seed node progress: %w", err)
		}
	}

	return result, nil
}
