// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progression.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `user_id, xp, level, current_streak, best_streak,
	   last_active_date, total_solved, created_at, updated_at`

// GetByUserID returns the user's progress row.
func (r *ProgressRepository) GetByUserID(ctx context.Context, userID shared.UserID) (*progression.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE user_id = $1
	`

	row := r.conn.QueryRow(ctx, query, userID.String())
	return r.scanProgress(row)
}

// AddXP atomically increments the user's XP by amount in a single statement.
// The row is created lazily with xp = amount on first award. The RETURNING
// clause yields the post-increment XP together with the cached level column,
// which the upsert deliberately does not touch, so callers see the
// pre-increment level and can detect a level-up.
func (r *ProgressRepository) AddXP(ctx context.Context, userID shared.UserID, amount int) (*progression.UserProgress, error) {
	if amount <= 0 {
		return nil, shared.ErrInvalidXPAmount
	}

	query := `
		INSERT INTO user_progress (user_id, xp, level)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET xp = user_progress.xp + $2
		RETURNING ` + progressColumns + `
	`

	row := r.conn.QueryRow(ctx, query, userID.String(), amount)
	progress, err := r.scanProgress(row)
	if err != nil {
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return progress, nil
}

// SetLevelCache persists the recomputed level. The column is a read cache;
// nothing in the engine makes decisions from it.
func (r *ProgressRepository) SetLevelCache(ctx context.Context, userID shared.UserID, level shared.Level) error {
	query := `UPDATE user_progress SET level = $1 WHERE user_id = $2`

	result, err := r.conn.Exec(ctx, query, level.Int(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to set level cache: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}
	return nil
}

// UpdateStreak persists the streak state after a tracker transition.
// Upserts so that a streak advance is itself a valid first interaction.
func (r *ProgressRepository) UpdateStreak(ctx context.Context, userID shared.UserID, state progression.StreakState) error {
	query := `
		INSERT INTO user_progress (user_id, current_streak, best_streak, last_active_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = $2, best_streak = $3, last_active_date = $4
	`

	var lastActive *time.Time
	if !state.LastActiveDate.IsZero() {
		day := timeutil.StartOfDay(state.LastActiveDate)
		lastActive = &day
	}

	if _, err := r.conn.Exec(ctx, query, userID.String(), state.Current, state.Best, lastActive); err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	return nil
}

// IncrementTotalSolved bumps the solved-question counter by one.
func (r *ProgressRepository) IncrementTotalSolved(ctx context.Context, userID shared.UserID) error {
	query := `UPDATE user_progress SET total_solved = total_solved + 1 WHERE user_id = $1`

	result, err := r.conn.Exec(ctx, query, userID.String())
	if err != nil {
		return fmt.Errorf("failed to increment total solved: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}
	return nil
}

// TopByXP returns the top-N users by XP for the leaderboard projection.
func (r *ProgressRepository) TopByXP(ctx context.Context, limit int) ([]*progression.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		ORDER BY xp DESC, user_id
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top by xp: %w", err)
	}
	defer rows.Close()

	var result []*progression.UserProgress
	for rows.Next() {
		progress, err := r.scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, progress)
	}
	return result, rows.Err()
}

// Count returns the total number of users with progress.
func (r *ProgressRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM user_progress`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user progress: %w", err)
	}
	return count, nil
}

// scanProgress scans a progress row from either pgx.Row or pgx.Rows.
func (r *ProgressRepository) scanProgress(row pgx.Row) (*progression.UserProgress, error) {
	var (
		p          progression.UserProgress
		userID     string
		xp, level  int
		lastActive *time.Time
	)

	err := row.Scan(
		&userID,
		&xp,
		&level,
		&p.CurrentStreak,
		&p.BestStreak,
		&lastActive,
		&p.TotalSolved,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan user progress: %w", err)
	}

	p.UserID = shared.UserID(userID)
	p.XP = shared.XP(xp)
	p.Level = shared.Level(level)
	if lastActive != nil {
		p.LastActiveDate = timeutil.StartOfDay(*lastActive)
	}
	return &p, nil
}
