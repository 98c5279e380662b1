// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements progression.LedgerRepository for PostgreSQL.
// The xp_ledger table is append-only: this type never issues UPDATE or DELETE.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append writes one ledger entry.
func (r *LedgerRepository) Append(ctx context.Context, entry *progression.LedgerEntry) error {
	metaJSON, err := progression.EncodeMetadata(entry.Meta)
	if err != nil {
		return shared.WrapError("progression", "Append", shared.ErrInvalidEntity, "failed to encode metadata", err)
	}

	query := `
		INSERT INTO xp_ledger (id, user_id, amount, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.conn.Exec(ctx, query,
		entry.ID,
		entry.UserID.String(),
		entry.Amount,
		entry.Reason.String(),
		metaJSON,
		entry.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent entries, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*progression.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, reason, metadata, created_at
		FROM xp_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// ListByUserSince returns the user's entries created at or after the given time.
func (r *LedgerRepository) ListByUserSince(ctx context.Context, userID shared.UserID, since time.Time) ([]*progression.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, reason, metadata, created_at
		FROM xp_ledger
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// SumByUser returns the total of all grants for a user.
// The sum must equal user_progress.xp; a divergence is a bug.
func (r *LedgerRepository) SumByUser(ctx context.Context, userID shared.UserID) (int, error) {
	var sum int
	query := `SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1`

	if err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return sum, nil
}

func (r *LedgerRepository) collectEntries(rows pgx.Rows) ([]*progression.LedgerEntry, error) {
	var entries []*progression.LedgerEntry
	for rows.Next() {
		var (
			entry   progression.LedgerEntry
			userID  string
			reason  string
			rawMeta []byte
		)

		if err := rows.Scan(&entry.ID, &userID, &entry.Amount, &reason, &rawMeta, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entry.UserID = shared.UserID(userID)
		entry.Reason = progression.Reason(reason)

		meta, err := progression.DecodeMetadata(entry.Reason, rawMeta)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ledger metadata: %w", err)
		}
		entry.Meta = meta

		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
