// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL NODE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillNodeRepository implements skilltree.SkillNodeRepository for PostgreSQL.
// The catalog is admin-authored; this type only reads.
type SkillNodeRepository struct {
	conn *Connection
}

// NewSkillNodeRepository creates a new SkillNodeRepository.
func NewSkillNodeRepository(conn *Connection) *SkillNodeRepository {
	return &SkillNodeRepository{conn: conn}
}

const skillNodeColumns = `id, parent_id, title, description, required_level,
	   required_xp, xp_reward, topic_ref, order_index`

// GetByID returns a skill node by id.
func (r *SkillNodeRepository) GetByID(ctx context.Context, nodeID shared.NodeID) (*skilltree.SkillNode, error) {
	query := `
		SELECT ` + skillNodeColumns + `
		FROM skill_nodes
		WHERE id = $1
	`

	node, err := r.scanNode(r.conn.QueryRow(ctx, query, nodeID.String()))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNodeNotFound
		}
		return nil, err
	}
	return node, nil
}

// ListAll returns every node in the catalog.
func (r *SkillNodeRepository) ListAll(ctx context.Context) ([]*skilltree.SkillNode, error) {
	query := `
		SELECT ` + skillNodeColumns + `
		FROM skill_nodes
		ORDER BY order_index, id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill nodes: %w", err)
	}
	defer rows.Close()

	return r.collectNodes(rows)
}

// ListByTopic returns the nodes bound to a topic.
func (r *SkillNodeRepository) ListByTopic(ctx context.Context, topicID shared.TopicID) ([]*skilltree.SkillNode, error) {
	query := `
		SELECT ` + skillNodeColumns + `
		FROM skill_nodes
		WHERE topic_ref = $1
		ORDER BY order_index, id
	`

	rows, err := r.conn.Query(ctx, query, topicID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query skill nodes by topic: %w", err)
	}
	defer rows.Close()

	return r.collectNodes(rows)
}

func (r *SkillNodeRepository) collectNodes(rows pgx.Rows) ([]*skilltree.SkillNode, error) {
	var nodes []*skilltree.SkillNode
	for rows.Next() {
		node, err := r.scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func (r *SkillNodeRepository) scanNode(row pgx.Row) (*skilltree.SkillNode, error) {
	var (
		node                    skilltree.SkillNode
		id                      string
		parentID, topicRef      *string
		requiredLevel, required int
	)

	err := row.Scan(
		&id,
		&parentID,
		&node.Title,
		&node.Description,
		&requiredLevel,
		&required,
		&node.XPReward,
		&topicRef,
		&node.OrderIndex,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan skill node: %w", err)
	}

	node.ID = shared.NodeID(id)
	node.RequiredLevel = shared.Level(requiredLevel)
	node.RequiredXP = shared.XP(required)
	if parentID != nil {
		pid := shared.NodeID(*parentID)
		node.ParentID = &pid
	}
	if topicRef != nil {
		tid := shared.TopicID(*topicRef)
		node.TopicRef = &tid
	}
	return &node, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL UNLOCK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillUnlockRepository implements skilltree.SkillUnlockRepository for PostgreSQL.
type SkillUnlockRepository struct {
	conn *Connection
}

// NewSkillUnlockRepository creates a new SkillUnlockRepository.
func NewSkillUnlockRepository(conn *Connection) *SkillUnlockRepository {
	return &SkillUnlockRepository{conn: conn}
}

// Get returns the unlock row for a (user, node) pair.
func (r *SkillUnlockRepository) Get(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*skilltree.SkillUnlock, error) {
	query := `
		SELECT user_id, node_id, progress, unlocked_at, completed_at
		FROM skill_unlocks
		WHERE user_id = $1 AND node_id = $2
	`

	return r.scanUnlock(r.conn.QueryRow(ctx, query, userID.String(), nodeID.String()))
}

// ListByUser returns all of the user's unlocks.
func (r *SkillUnlockRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*skilltree.SkillUnlock, error) {
	query := `
		SELECT user_id, node_id, progress, unlocked_at, completed_at
		FROM skill_unlocks
		WHERE user_id = $1
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query skill unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []*skilltree.SkillUnlock
	for rows.Next() {
		unlock, err := r.scanUnlock(rows)
		if err != nil {
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlocks, rows.Err()
}

// Create inserts a new unlock row. The (user, node) primary key turns a
// concurrent duplicate into shared.ErrAlreadyExists.
func (r *SkillUnlockRepository) Create(ctx context.Context, unlock *skilltree.SkillUnlock) error {
	query := `
		INSERT INTO skill_unlocks (user_id, node_id, progress, unlocked_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		unlock.UserID.String(),
		unlock.NodeID.String(),
		unlock.Progress,
		unlock.UnlockedAt,
		unlock.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create skill unlock: %w", err)
	}
	return nil
}

// UpdateProgress persists the recomputed topic-mastery progress.
func (r *SkillUnlockRepository) UpdateProgress(ctx context.Context, userID shared.UserID, nodeID shared.NodeID, progress float64) error {
	query := `
		UPDATE skill_unlocks
		SET progress = $1
		WHERE user_id = $2 AND node_id = $3
	`

	result, err := r.conn.Exec(ctx, query, progress, userID.String(), nodeID.String())
	if err != nil {
		return fmt.Errorf("failed to update unlock progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkCompleted sets completed_at if it is still NULL. The WHERE clause makes
// the transition one-time: exactly one caller ever observes transitioned=true,
// which is what gates the one-time completion reward.
func (r *SkillUnlockRepository) MarkCompleted(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (bool, error) {
	query := `
		UPDATE skill_unlocks
		SET completed_at = NOW(), progress = 1
		WHERE user_id = $1 AND node_id = $2 AND completed_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query, userID.String(), nodeID.String())
	if err != nil {
		return false, fmt.Errorf("failed to mark unlock completed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *SkillUnlockRepository) scanUnlock(row pgx.Row) (*skilltree.SkillUnlock, error) {
	var (
		unlock      skilltree.SkillUnlock
		userID      string
		nodeID      string
		completedAt *time.Time
	)

	err := row.Scan(&userID, &nodeID, &unlock.Progress, &unlock.UnlockedAt, &completedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan skill unlock: %w", err)
	}

	unlock.UserID = shared.UserID(userID)
	unlock.NodeID = shared.NodeID(nodeID)
	unlock.CompletedAt = completedAt
	return &unlock, nil
}
