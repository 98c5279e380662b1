package challenge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// DailyChallengeRepository persists the one-per-date challenge rows.
type DailyChallengeRepository interface {
	// GetByDate returns the challenge for a calendar day,
	// or shared.ErrChallengeNotFound.
	GetByDate(ctx context.Context, day time.Time) (*DailyChallenge, error)

	// GetByID returns a challenge by id, or shared.ErrChallengeNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*DailyChallenge, error)

	// Create inserts a challenge. The date carries a unique constraint;
	// a concurrent loser gets shared.ErrAlreadyExists and must re-read.
	Create(ctx context.Context, c *DailyChallenge) error
}

// CompletionRepository persists per-user challenge completions.
type CompletionRepository interface {
	// Exists reports whether the user already completed the challenge.
	Exists(ctx context.Context, userID shared.UserID, challengeID uuid.UUID) (bool, error)

	// Create inserts a completion row. (user, challenge) is unique;
	// a duplicate insert returns shared.ErrAlreadyExists.
	Create(ctx context.Context, completion *DailyChallengeCompletion) error

	// ListDatesSince returns the challenge dates the user completed on or
	// after the given day. Feeds the completion streak computation.
	ListDatesSince(ctx context.Context, userID shared.UserID, since time.Time) ([]time.Time, error)
}
