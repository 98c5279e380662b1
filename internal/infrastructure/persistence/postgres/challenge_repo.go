// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// DailyChallengeRepository implements challenge.DailyChallengeRepository.
type DailyChallengeRepository struct {
	conn *Connection
}

// NewDailyChallengeRepository creates a new DailyChallengeRepository.
func NewDailyChallengeRepository(conn *Connection) *DailyChallengeRepository {
	return &DailyChallengeRepository{conn: conn}
}

// GetByDate returns the challenge for a calendar day.
func (r *DailyChallengeRepository) GetByDate(ctx context.Context, day time.Time) (*challenge.DailyChallenge, error) {
	query := `
		SELECT id, date, question_id, bonus_xp, created_at
		FROM daily_challenges
		WHERE date = $1
	`

	return r.scanChallenge(r.conn.QueryRow(ctx, query, timeutil.StartOfDay(day)))
}

// GetByID returns a challenge by id.
func (r *DailyChallengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*challenge.DailyChallenge, error) {
	query := `
		SELECT id, date, question_id, bonus_xp, created_at
		FROM daily_challenges
		WHERE id = $1
	`

	return r.scanChallenge(r.conn.QueryRow(ctx, query, id))
}

// Create inserts a challenge. The unique date constraint decides races
// between concurrent first-requesters; the loser must re-read.
func (r *DailyChallengeRepository) Create(ctx context.Context, c *challenge.DailyChallenge) error {
	query := `
		INSERT INTO daily_challenges (id, date, question_id, bonus_xp, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.Date,
		c.QuestionID.String(),
		c.BonusXP,
		c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create daily challenge: %w", err)
	}
	return nil
}

func (r *DailyChallengeRepository) scanChallenge(row pgx.Row) (*challenge.DailyChallenge, error) {
	var (
		c          challenge.DailyChallenge
		questionID string
	)

	err := row.Scan(&c.ID, &c.Date, &questionID, &c.BonusXP, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan daily challenge: %w", err)
	}

	c.QuestionID = shared.QuestionID(questionID)
	c.Date = timeutil.StartOfDay(c.Date)
	return &c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements challenge.CompletionRepository.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

// Exists reports whether the user already completed the challenge.
func (r *CompletionRepository) Exists(ctx context.Context, userID shared.UserID, challengeID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM daily_challenge_completions
			WHERE user_id = $1 AND challenge_id = $2
		)
	`

	if err := r.conn.QueryRow(ctx, query, userID.String(), challengeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}
	return exists, nil
}

// Create inserts a completion row. The (user, challenge) primary key turns a
// concurrent duplicate into shared.ErrAlreadyExists, which callers treat as
// "already completed" rather than a failure.
func (r *CompletionRepository) Create(ctx context.Context, completion *challenge.DailyChallengeCompletion) error {
	query := `
		INSERT INTO daily_challenge_completions (user_id, challenge_id, xp_earned, completed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query,
		completion.UserID.String(),
		completion.ChallengeID,
		completion.XPEarned,
		completion.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create completion: %w", err)
	}
	return nil
}

// ListDatesSince returns the dates of challenges the user completed on or
// after the given day.
func (r *CompletionRepository) ListDatesSince(ctx context.Context, userID shared.UserID, since time.Time) ([]time.Time, error) {
	query := `
		SELECT dc.date
		FROM daily_challenge_completions dcc
		JOIN daily_challenges dc ON dc.id = dcc.challenge_id
		WHERE dcc.user_id = $1 AND dc.date >= $2
		ORDER BY dc.date
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), timeutil.StartOfDay(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, timeutil.StartOfDay(d))
	}
	return dates, rows.Err()
}
