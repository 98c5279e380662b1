// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// Local read model of the external content catalog plus attempt facts.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.QuestionReader, catalog.TopicReader,
// catalog.AttemptReader, and catalog.AttemptRecorder for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Questions
// ─────────────────────────────────────────────────────────────────────────────

const questionColumns = `id, topic_id, title, difficulty, points, is_active`

// GetQuestion returns a question by ID.
func (r *CatalogRepository) GetQuestion(ctx context.Context, id shared.QuestionID) (*catalog.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE id = $1
	`

	q, err := r.scanQuestion(r.conn.QueryRow(ctx, query, id.String()))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

// ListActiveQuestions returns all active questions.
func (r *CatalogRepository) ListActiveQuestions(ctx context.Context) ([]*catalog.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE is_active
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active questions: %w", err)
	}
	defer rows.Close()

	return r.collectQuestions(rows)
}

// ListActiveByDifficulty returns active questions within [min, max].
func (r *CatalogRepository) ListActiveByDifficulty(ctx context.Context, min, max catalog.Difficulty) ([]*catalog.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE is_active AND difficulty BETWEEN $1 AND $2
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query, int(min), int(max))
	if err != nil {
		return nil, fmt.Errorf("failed to query questions by difficulty: %w", err)
	}
	defer rows.Close()

	return r.collectQuestions(rows)
}

func (r *CatalogRepository) collectQuestions(rows pgx.Rows) ([]*catalog.Question, error) {
	var questions []*catalog.Question
	for rows.Next() {
		q, err := r.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *CatalogRepository) scanQuestion(row pgx.Row) (*catalog.Question, error) {
	var (
		q          catalog.Question
		id         string
		topicID    string
		difficulty int
	)

	err := row.Scan(&id, &topicID, &q.Title, &difficulty, &q.Points, &q.IsActive)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}

	q.ID = shared.QuestionID(id)
	q.TopicID = shared.TopicID(topicID)
	q.Difficulty = catalog.Difficulty(difficulty)
	return &q, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topics
// ─────────────────────────────────────────────────────────────────────────────

// GetTopic returns a topic by ID.
func (r *CatalogRepository) GetTopic(ctx context.Context, id shared.TopicID) (*catalog.Topic, error) {
	query := `SELECT id, title, week FROM topics WHERE id = $1`

	var (
		t       catalog.Topic
		topicID string
	)
	err := r.conn.QueryRow(ctx, query, id.String()).Scan(&topicID, &t.Title, &t.Week)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to scan topic: %w", err)
	}

	t.ID = shared.TopicID(topicID)
	return &t, nil
}

// CountActiveQuestions returns the number of active questions in a topic.
func (r *CatalogRepository) CountActiveQuestions(ctx context.Context, topicID shared.TopicID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM questions WHERE topic_id = $1 AND is_active`

	if err := r.conn.QueryRow(ctx, query, topicID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active questions: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attempt facts
// ─────────────────────────────────────────────────────────────────────────────

// CountDistinctPassed returns how many distinct active questions of the topic
// the user has passed at least once.
func (r *CatalogRepository) CountDistinctPassed(ctx context.Context, userID shared.UserID, topicID shared.TopicID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM question_attempts qa
		JOIN questions q ON q.id = qa.question_id
		WHERE qa.user_id = $1
		  AND qa.status = 'passed'
		  AND q.topic_id = $2
		  AND q.is_active
	`

	if err := r.conn.QueryRow(ctx, query, userID.String(), topicID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passed questions: %w", err)
	}
	return count, nil
}

// RecordAttempt upserts an attempt fact and reports whether this write
// recorded a new pass. A recorded pass is sticky: the ON CONFLICT clause only
// overwrites a previous failure, so a passing fact that touches zero rows
// means the pass already existed. First-pass decisions hang off this write
// outcome - two racing deliveries of the same pass conflict on the row and
// exactly one of them sees a row change.
func (r *CatalogRepository) RecordAttempt(ctx context.Context, fact catalog.AttemptFact) (bool, error) {
	query := `
		INSERT INTO question_attempts (user_id, question_id, status, hints_used, execution_ms, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, question_id) DO UPDATE
		SET status = EXCLUDED.status,
		    hints_used = EXCLUDED.hints_used,
		    execution_ms = EXCLUDED.execution_ms,
		    attempted_at = EXCLUDED.attempted_at
		WHERE question_attempts.status = 'failed'
	`

	tag, err := r.conn.Exec(ctx, query,
		fact.UserID.String(),
		fact.QuestionID.String(),
		string(fact.Status),
		fact.HintsUsed,
		fact.ExecutionMs,
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	newPass := fact.Status == catalog.AttemptPassed && tag.RowsAffected() > 0
	return newPass, nil
}
