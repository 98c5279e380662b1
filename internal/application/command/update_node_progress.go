package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE NODE PROGRESS COMMAND
// Recomputes topic mastery for the user's unlocked nodes bound to a topic.
// A node reaching full mastery transitions to completed exactly once and
// grants its reward through the award engine.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateNodeProgressCommand identifies whose progress to recompute and where.
type UpdateNodeProgressCommand struct {
	// UserID is the user whose node progress is recomputed.
	UserID shared.UserID

	// TopicID is the topic whose mastery changed.
	TopicID shared.TopicID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateNodeProgressCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return errors.New("update_node_progress: user_id is required")
	}
	if c.TopicID == "" {
		return errors.New("update_node_progress: topic_id is required")
	}
	return nil
}

// CompletedNode describes one node that transitioned to completed.
type CompletedNode struct {
	NodeID   shared.NodeID
	Title    string
	XPReward int
}

// UpdateNodeProgressResult contains the recomputation outcome.
type UpdateNodeProgressResult struct {
	// UserID is the user whose progress was recomputed.
	UserID shared.UserID

	// TopicID is the recomputed topic.
	TopicID shared.TopicID

	// Progress is the topic mastery fraction in [0.0, 1.0].
	Progress float64

	// UpdatedNodes is how many unlocked nodes had their progress refreshed.
	UpdatedNodes int

	// CompletedNodes lists nodes that completed during this recomputation.
	CompletedNodes []CompletedNode

	// XPAwarded is the total node-completion XP granted.
	XPAwarded int

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateNodeProgressHandler handles the UpdateNodeProgressCommand.
type UpdateNodeProgressHandler struct {
	nodeRepo       skilltree.SkillNodeRepository
	unlockRepo     skilltree.SkillUnlockRepository
	topics         catalog.TopicReader
	attempts       catalog.AttemptReader
	awardHandler   *AwardXPHandler
	eventPublisher shared.EventPublisher
}

// NewUpdateNodeProgressHandler creates a new UpdateNodeProgressHandler.
func NewUpdateNodeProgressHandler(
	nodeRepo skilltree.SkillNodeRepository,
	unlockRepo skilltree.SkillUnlockRepository,
	topics catalog.TopicReader,
	attempts catalog.AttemptReader,
	awardHandler *AwardXPHandler,
	eventPublisher shared.EventPublisher,
) *UpdateNodeProgressHandler {
	return &UpdateNodeProgressHandler{
		nodeRepo:       nodeRepo,
		unlockRepo:     unlockRepo,
		topics:         topics,
		attempts:       attempts,
		awardHandler:   awardHandler,
		eventPublisher: eventPublisher,
	}
}

// Handle recomputes progress = distinctPassed / totalActive for every node
// bound to the topic that the user has unlocked. Completion is a one-time
// transition guarded at the store level, so concurrent recomputations never
// double-grant the node reward.
func (h *UpdateNodeProgressHandler) Handle(ctx context.Context, cmd UpdateNodeProgressCommand) (*UpdateNodeProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_node_progress: validation failed: %w", err)
	}

	nodes, err := h.nodeRepo.ListByTopic(ctx, cmd.TopicID)
	if err != nil {
		return nil, fmt.Errorf("update_node_progress: failed to list nodes: %w", err)
	}

	result := &UpdateNodeProgressResult{
		UserID:  cmd.UserID,
		TopicID: cmd.TopicID,
		Events:  make([]shared.Event, 0),
	}
	if len(nodes) == 0 {
		return result, nil
	}

	totalActive, err := h.topics.CountActiveQuestions(ctx, cmd.TopicID)
	if err != nil {
		return nil, fmt.Errorf("update_node_progress: failed to count active questions: %w", err)
	}
	distinctPassed, err := h.attempts.CountDistinctPassed(ctx, cmd.UserID, cmd.TopicID)
	if err != nil {
		return nil, fmt.Errorf("update_node_progress: failed to count passed questions: %w", err)
	}

	progress := skilltree.ComputeTopicProgress(distinctPassed, totalActive)
	result.Progress = progress

	for _, node := range nodes {
		unlock, err := h.unlockRepo.Get(ctx, cmd.UserID, node.ID)
		if err != nil {
			if shared.IsNotFound(err) {
				// Locked nodes accumulate no progress.
				continue
			}
			return nil, fmt.Errorf("update_node_progress: failed to load unlock: %w", err)
		}
		if unlock.IsCompleted() {
			continue
		}

		if err := h.unlockRepo.UpdateProgress(ctx, cmd.UserID, node.ID, progress); err != nil {
			return nil, fmt.Errorf("update_node_progress: failed to store progress: %w", err)
		}
		result.UpdatedNodes++

		if progress < 1 {
			continue
		}

		transitioned, err := h.unlockRepo.MarkCompleted(ctx, cmd.UserID, node.ID)
		if err != nil {
			return nil, fmt.Errorf("update_node_progress: failed to complete node: %w", err)
		}
		if !transitioned {
			// A concurrent recomputation completed the node first.
			continue
		}

		if node.XPReward > 0 {
			_, err := h.awardHandler.Handle(ctx, AwardXPCommand{
				UserID:        cmd.UserID,
				Amount:        node.XPReward,
				Reason:        progression.ReasonNodeCompleted,
				Meta:          progression.NodeMeta{NodeID: node.ID, Title: node.Title},
				CorrelationID: cmd.CorrelationID,
			})
			if err != nil {
				return nil, fmt.Errorf("update_node_progress: failed to grant node reward: %w", err)
			}
			result.XPAwarded += node.XPReward
		}

		result.CompletedNodes = append(result.CompletedNodes, CompletedNode{
			NodeID:   node.ID,
			Title:    node.Title,
			XPReward: node.XPReward,
		})

		event := shared.NewNodeCompletedEvent(cmd.UserID.String(), node.ID.String(), node.XPReward)
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
