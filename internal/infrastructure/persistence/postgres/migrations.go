// Package postgres implements the PostgreSQL persistence layer for the
// CodeQuest progression engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progress and XP ledger tables
-- Version: 001

-- Aggregated progress, one row per user, created lazily on first interaction.
-- xp is the source of truth; level is a read cache.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id UUID PRIMARY KEY,
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    current_streak INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    last_active_date DATE,
    total_solved INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND best_streak >= current_streak)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_xp ON user_progress(xp DESC);
CREATE INDEX IF NOT EXISTS idx_user_progress_last_active ON user_progress(last_active_date);

-- Append-only XP ledger. No UPDATE or DELETE is ever issued against this table.
CREATE TABLE IF NOT EXISTS xp_ledger (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    amount INTEGER NOT NULL,
    reason VARCHAR(30) NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT positive_amount CHECK (amount > 0),
    CONSTRAINT valid_reason CHECK (reason IN (
        'question_pass', 'streak_bonus', 'topic_mastered', 'node_completed', 'daily_challenge'
    ))
);

CREATE INDEX IF NOT EXISTS idx_xp_ledger_user ON xp_ledger(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_ledger_reason ON xp_ledger(reason);

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_user_progress_updated_at ON user_progress;
CREATE TRIGGER update_user_progress_updated_at
    BEFORE UPDATE ON user_progress
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_user_progress_updated_at ON user_progress;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS xp_ledger;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE SKILL TREE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create skill tree tables
-- Version: 002

-- Static node catalog, admin-authored, read-only to the engine.
-- parent_id forms a forest: at most one parent per node.
CREATE TABLE IF NOT EXISTS skill_nodes (
    id VARCHAR(100) PRIMARY KEY,
    parent_id VARCHAR(100) REFERENCES skill_nodes(id) ON DELETE RESTRICT,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    required_level INTEGER NOT NULL DEFAULT 1,
    required_xp INTEGER NOT NULL DEFAULT 0,
    xp_reward INTEGER NOT NULL DEFAULT 0,
    topic_ref VARCHAR(100),
    order_index INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_required_level CHECK (required_level >= 1),
    CONSTRAINT valid_required_xp CHECK (required_xp >= 0),
    CONSTRAINT valid_xp_reward CHECK (xp_reward >= 0)
);

CREATE INDEX IF NOT EXISTS idx_skill_nodes_parent ON skill_nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_skill_nodes_topic ON skill_nodes(topic_ref) WHERE topic_ref IS NOT NULL;

-- Per-user unlocks. The (user, node) primary key is the idempotence guarantee:
-- a concurrent duplicate unlock loses with a unique violation, not a double row.
CREATE TABLE IF NOT EXISTS skill_unlocks (
    user_id UUID NOT NULL,
    node_id VARCHAR(100) NOT NULL REFERENCES skill_nodes(id) ON DELETE CASCADE,
    progress DOUBLE PRECISION NOT NULL DEFAULT 0,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,

    PRIMARY KEY (user_id, node_id),
    CONSTRAINT valid_progress CHECK (progress >= 0 AND progress <= 1)
);

CREATE INDEX IF NOT EXISTS idx_skill_unlocks_user ON skill_unlocks(user_id);
CREATE INDEX IF NOT EXISTS idx_skill_unlocks_completed ON skill_unlocks(user_id) WHERE completed_at IS NOT NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS skill_unlocks;
DROP TABLE IF EXISTS skill_nodes;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create daily challenge tables
-- Version: 003

-- One challenge per calendar date; the unique date is the race-safety
-- mechanism for concurrent lazy creation.
CREATE TABLE IF NOT EXISTS daily_challenges (
    id UUID PRIMARY KEY,
    date DATE NOT NULL UNIQUE,
    question_id VARCHAR(100) NOT NULL,
    bonus_xp INTEGER NOT NULL DEFAULT 25,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_bonus_xp CHECK (bonus_xp > 0)
);

-- Completion rows: existence is the completion flag. The (user, challenge)
-- primary key makes completion idempotent under concurrency.
CREATE TABLE IF NOT EXISTS daily_challenge_completions (
    user_id UUID NOT NULL,
    challenge_id UUID NOT NULL REFERENCES daily_challenges(id) ON DELETE CASCADE,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, challenge_id)
);

CREATE INDEX IF NOT EXISTS idx_challenge_completions_user ON daily_challenge_completions(user_id, completed_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS daily_challenge_completions;
DROP TABLE IF EXISTS daily_challenges;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create catalog projection tables
-- Version: 004
-- Local read model of the external content catalog plus attempt facts
-- from the grading subsystem.

CREATE TABLE IF NOT EXISTS topics (
    id VARCHAR(100) PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    week INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS questions (
    id VARCHAR(100) PRIMARY KEY,
    topic_id VARCHAR(100) NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    difficulty INTEGER NOT NULL DEFAULT 1,
    points INTEGER NOT NULL DEFAULT 10,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_difficulty CHECK (difficulty >= 1 AND difficulty <= 5)
);

CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id);
CREATE INDEX IF NOT EXISTS idx_questions_active ON questions(difficulty) WHERE is_active;

-- Attempt facts from the grading subsystem. One row per first pass keeps
-- "has this user ever passed this question" a primary key lookup.
CREATE TABLE IF NOT EXISTS question_attempts (
    user_id UUID NOT NULL,
    question_id VARCHAR(100) NOT NULL,
    status VARCHAR(10) NOT NULL,
    hints_used INTEGER NOT NULL DEFAULT 0,
    execution_ms BIGINT NOT NULL DEFAULT 0,
    attempted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, question_id),
    CONSTRAINT valid_status CHECK (status IN ('passed', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_question_attempts_question ON question_attempts(question_id);
`

const migration004Down = `
DROP TABLE IF EXISTS question_attempts;
DROP TABLE IF EXISTS questions;
DROP TABLE IF EXISTS topics;
`
