// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventXPAwarded     EventType = "progression.xp_awarded"
	EventLevelUp       EventType = "progression.level_up"
	EventQuestionSolved EventType = "progression.question_solved"

	// Streak events
	EventStreakExtended EventType = "streak.extended"
	EventStreakBroken   EventType = "streak.broken"
	EventStreakStarted  EventType = "streak.started"

	// Skill tree events
	EventNodeUnlocked  EventType = "skilltree.node_unlocked"
	EventNodeCompleted EventType = "skilltree.node_completed"

	// Daily challenge events
	EventChallengeCreated   EventType = "challenge.created"
	EventChallengeCompleted EventType = "challenge.completed"

	// Leaderboard events
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPAwardedEvent is emitted whenever the award engine grants XP.
type XPAwardedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	NewXP  int    `json:"new_xp"`
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"amount":  e.Amount,
		"reason":  e.Reason,
		"new_xp":  e.NewXP,
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID string, amount int, reason string, newXP int) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		NewXP:     newXP,
	}
}

// LevelUpEvent is emitted when a grant pushes a user past a level boundary.
type LevelUpEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	TotalXP       int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"previous_level": e.PreviousLevel,
		"new_level":      e.NewLevel,
		"total_xp":       e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, previousLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:     NewBaseEvent(EventLevelUp, userID),
		UserID:        userID,
		PreviousLevel: previousLevel,
		NewLevel:      newLevel,
		TotalXP:       totalXP,
	}
}

// QuestionSolvedEvent is emitted on a user's first pass of a question.
type QuestionSolvedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	XPAwarded  int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e QuestionSolvedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"question_id": e.QuestionID,
		"xp_awarded":  e.XPAwarded,
	}
}

// NewQuestionSolvedEvent creates a new QuestionSolvedEvent.
func NewQuestionSolvedEvent(userID, questionID string, xpAwarded int) QuestionSolvedEvent {
	return QuestionSolvedEvent{
		BaseEvent:  NewBaseEvent(EventQuestionSolved, userID),
		UserID:     userID,
		QuestionID: questionID,
		XPAwarded:  xpAwarded,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakExtendedEvent is emitted when a day-advance extends the streak.
type StreakExtendedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, currentStreak, bestStreak int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, userID),
		UserID:        userID,
		CurrentStreak: currentStreak,
		BestStreak:    bestStreak,
	}
}

// StreakBrokenEvent is emitted when a gap of more than one day resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Skill Tree Events
// ═══════════════════════════════════════════════════════════════════════════

// NodeUnlockedEvent is emitted when a user unlocks a skill node.
type NodeUnlockedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	NodeID string `json:"node_id"`
}

// Payload implements Event interface.
func (e NodeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"node_id": e.NodeID,
	}
}

// NewNodeUnlockedEvent creates a new NodeUnlockedEvent.
func NewNodeUnlockedEvent(userID, nodeID string) NodeUnlockedEvent {
	return NodeUnlockedEvent{
		BaseEvent: NewBaseEvent(EventNodeUnlocked, userID),
		UserID:    userID,
		NodeID:    nodeID,
	}
}

// NodeCompletedEvent is emitted when node progress reaches 100% for the first time.
type NodeCompletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	NodeID   string `json:"node_id"`
	XPReward int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e NodeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"node_id":   e.NodeID,
		"xp_reward": e.XPReward,
	}
}

// NewNodeCompletedEvent creates a new NodeCompletedEvent.
func NewNodeCompletedEvent(userID, nodeID string, xpReward int) NodeCompletedEvent {
	return NodeCompletedEvent{
		BaseEvent: NewBaseEvent(EventNodeCompleted, userID),
		UserID:    userID,
		NodeID:    nodeID,
		XPReward:  xpReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeCreatedEvent is emitted when a challenge is created for a date.
type ChallengeCreatedEvent struct {
	BaseEvent
	ChallengeID string    `json:"challenge_id"`
	QuestionID  string    `json:"question_id"`
	Date        time.Time `json:"date"`
	BonusXP     int       `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e ChallengeCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"challenge_id": e.ChallengeID,
		"question_id":  e.QuestionID,
		"date":         e.Date.Format("2006-01-02"),
		"bonus_xp":     e.BonusXP,
	}
}

// NewChallengeCreatedEvent creates a new ChallengeCreatedEvent.
func NewChallengeCreatedEvent(challengeID, questionID string, date time.Time, bonusXP int) ChallengeCreatedEvent {
	return ChallengeCreatedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCreated, challengeID),
		ChallengeID: challengeID,
		QuestionID:  questionID,
		Date:        date,
		BonusXP:     bonusXP,
	}
}

// ChallengeCompletedEvent is emitted on a user's first completion of a challenge.
type ChallengeCompletedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	XPEarned    int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"challenge_id": e.ChallengeID,
		"xp_earned":    e.XPEarned,
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(userID, challengeID string, xpEarned int) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, userID),
		UserID:      userID,
		ChallengeID: challengeID,
		XPEarned:    xpEarned,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
