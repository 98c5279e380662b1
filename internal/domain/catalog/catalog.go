// Package catalog contains read-only contracts for the external content
// catalog and grading subsystems. The progression engine never authors or
// mutates questions, topics, or attempt facts - it only reads them.
// This is a pure domain layer with zero external dependencies.
package catalog

import (
	"context"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// Difficulty grades a question from 1 (easy) to 5 (hard).
type Difficulty int

const (
	DifficultyTrivial Difficulty = 1
	DifficultyEasy    Difficulty = 2
	DifficultyMedium  Difficulty = 3
	DifficultyHard    Difficulty = 4
	DifficultyExpert  Difficulty = 5
)

// IsValid checks that the difficulty is in range.
func (d Difficulty) IsValid() bool {
	return d >= DifficultyTrivial && d <= DifficultyExpert
}

// IsChallengeable reports whether the difficulty is in the preferred band
// for daily challenge selection.
func (d Difficulty) IsChallengeable() bool {
	return d == DifficultyEasy || d == DifficultyMedium
}

// Question is the read model of a practice question.
type Question struct {
	ID         shared.QuestionID
	TopicID    shared.TopicID
	Title      string
	Difficulty Difficulty
	Points     int
	IsActive   bool
}

// Topic is the read model of a topic (a week's worth of questions).
type Topic struct {
	ID    shared.TopicID
	Title string
	Week  int
}

// AttemptStatus is the grading outcome of a single attempt.
type AttemptStatus string

const (
	AttemptPassed AttemptStatus = "passed"
	AttemptFailed AttemptStatus = "failed"
)

// AttemptFact is a graded attempt record owned by the grading subsystem.
// The engine only ever asks "has this user ever passed this question".
type AttemptFact struct {
	UserID      shared.UserID
	QuestionID  shared.QuestionID
	Status      AttemptStatus
	HintsUsed   int
	ExecutionMs int64
}

// QuestionReader reads question metadata from the catalog.
type QuestionReader interface {
	// GetQuestion returns a question by ID.
	// Returns shared.ErrQuestionNotFound if absent.
	GetQuestion(ctx context.Context, id shared.QuestionID) (*Question, error)

	// ListActiveQuestions returns all active questions.
	ListActiveQuestions(ctx context.Context) ([]*Question, error)

	// ListActiveByDifficulty returns active questions within [min, max].
	ListActiveByDifficulty(ctx context.Context, min, max Difficulty) ([]*Question, error)
}

// TopicReader reads topic structure from the catalog.
type TopicReader interface {
	// GetTopic returns a topic by ID.
	// Returns shared.ErrTopicNotFound if absent.
	GetTopic(ctx context.Context, id shared.TopicID) (*Topic, error)

	// CountActiveQuestions returns the number of active questions in a topic.
	CountActiveQuestions(ctx context.Context, topicID shared.TopicID) (int, error)
}

// AttemptReader reads pass history from the grading subsystem's store.
type AttemptReader interface {
	// CountDistinctPassed returns how many distinct active questions of the
	// topic the user has passed at least once.
	CountDistinctPassed(ctx context.Context, userID shared.UserID, topicID shared.TopicID) (int, error)
}

// AttemptRecorder stores attempt facts delivered by the grading webhook.
// A pass is sticky: once a (user, question) pair is recorded as passed,
// later failed attempts never downgrade it.
type AttemptRecorder interface {
	// RecordAttempt stores the fact and reports whether this write turned
	// the (user, question) pair into a pass for the first time. The report
	// must come from the store's own conflict resolution: when two
	// deliveries of the same pass race, exactly one sees true.
	RecordAttempt(ctx context.Context, fact AttemptFact) (newPass bool, err error)
}
