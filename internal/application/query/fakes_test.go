package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

const testUser = shared.UserID("6f1b1f60-0000-4000-8000-000000000002")

// ─────────────────────────────────────────────────────────────────────────────
// Progress / ledger
// ─────────────────────────────────────────────────────────────────────────────

type stubProgressRepo struct {
	progress map[shared.UserID]*progression.UserProgress
	topErr   error
}

func newStubProgressRepo() *stubProgressRepo {
	return &stubProgressRepo{progress: make(map[shared.UserID]*progression.UserProgress)}
}

func (s *stubProgressRepo) GetByUserID(_ context.Context, userID shared.UserID) (*progression.UserProgress, error) {
	p, ok := s.progress[userID]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return p, nil
}

func (s *stubProgressRepo) AddXP(context.Context, shared.UserID, int) (*progression.UserProgress, error) {
	return nil, errors.New("not implemented in stub")
}

func (s *stubProgressRepo) SetLevelCache(context.Context, shared.UserID, shared.Level) error {
	return nil
}

func (s *stubProgressRepo) UpdateStreak(context.Context, shared.UserID, progression.StreakState) error {
	return nil
}

func (s *stubProgressRepo) IncrementTotalSolved(context.Context, shared.UserID) error {
	return nil
}

func (s *stubProgressRepo) TopByXP(_ context.Context, limit int) ([]*progression.UserProgress, error) {
	if s.topErr != nil {
		return nil, s.topErr
	}
	all := make([]*progression.UserProgress, 0, len(s.progress))
	for _, p := range s.progress {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].XP > all[j].XP })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *stubProgressRepo) Count(context.Context) (int, error) {
	return len(s.progress), nil
}

type stubLedgerRepo struct {
	entries []*progression.LedgerEntry
}

func (s *stubLedgerRepo) Append(context.Context, *progression.LedgerEntry) error { return nil }

func (s *stubLedgerRepo) ListByUser(_ context.Context, userID shared.UserID, limit int) ([]*progression.LedgerEntry, error) {
	var out []*progression.LedgerEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *stubLedgerRepo) ListByUserSince(context.Context, shared.UserID, time.Time) ([]*progression.LedgerEntry, error) {
	return nil, nil
}

func (s *stubLedgerRepo) SumByUser(context.Context, shared.UserID) (int, error) { return 0, nil }

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard cache
// ─────────────────────────────────────────────────────────────────────────────

type stubLeaderboardCache struct {
	entries []progression.RankedEntry
	err     error
	calls   int
}

func (s *stubLeaderboardCache) GetTop(_ context.Context, limit int) ([]progression.RankedEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *stubLeaderboardCache) GetRank(context.Context, shared.UserID) (int64, error) {
	return 0, errors.New("not implemented in stub")
}

func (s *stubLeaderboardCache) GetCount(context.Context) (int64, error) {
	return int64(len(s.entries)), nil
}

func (s *stubLeaderboardCache) UpdateFromProgress(context.Context, *progression.UserProgress) error {
	return nil
}

func (s *stubLeaderboardCache) Rebuild(context.Context, []*progression.UserProgress) error {
	return nil
}

func (s *stubLeaderboardCache) Invalidate(context.Context) error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Skill tree
// ─────────────────────────────────────────────────────────────────────────────

type stubSkillRepo struct {
	nodes   []*skilltree.SkillNode
	unlocks []*skilltree.SkillUnlock
}

func (s *stubSkillRepo) GetByID(_ context.Context, nodeID shared.NodeID) (*skilltree.SkillNode, error) {
	for _, n := range s.nodes {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return nil, shared.ErrNodeNotFound
}

func (s *stubSkillRepo) ListAll(context.Context) ([]*skilltree.SkillNode, error) {
	return s.nodes, nil
}

func (s *stubSkillRepo) ListByTopic(_ context.Context, topicID shared.TopicID) ([]*skilltree.SkillNode, error) {
	var out []*skilltree.SkillNode
	for _, n := range s.nodes {
		if n.TopicRef != nil && *n.TopicRef == topicID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubSkillRepo) Get(_ context.Context, userID shared.UserID, nodeID shared.NodeID) (*skilltree.SkillUnlock, error) {
	for _, u := range s.unlocks {
		if u.UserID == userID && u.NodeID == nodeID {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubSkillRepo) ListByUser(_ context.Context, userID shared.UserID) ([]*skilltree.SkillUnlock, error) {
	var out []*skilltree.SkillUnlock
	for _, u := range s.unlocks {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubSkillRepo) Create(_ context.Context, unlock *skilltree.SkillUnlock) error {
	s.unlocks = append(s.unlocks, unlock)
	return nil
}

func (s *stubSkillRepo) UpdateProgress(context.Context, shared.UserID, shared.NodeID, float64) error {
	return nil
}

func (s *stubSkillRepo) MarkCompleted(context.Context, shared.UserID, shared.NodeID) (bool, error) {
	return false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily challenge
// ─────────────────────────────────────────────────────────────────────────────

type stubChallengeProvider struct {
	challenge *challenge.DailyChallenge
	err       error
}

func (s *stubChallengeProvider) GetOrCreate(context.Context, time.Time) (*challenge.DailyChallenge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.challenge, nil
}

type stubCompletionRepo struct {
	completed map[uuid.UUID]bool
	dates     []time.Time
}

func (s *stubCompletionRepo) Exists(_ context.Context, _ shared.UserID, challengeID uuid.UUID) (bool, error) {
	return s.completed[challengeID], nil
}

func (s *stubCompletionRepo) Create(context.Context, *challenge.DailyChallengeCompletion) error {
	return nil
}

func (s *stubCompletionRepo) ListDatesSince(_ context.Context, _ shared.UserID, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range s.dates {
		if !d.Before(timeutil.StartOfDay(since)) {
			out = append(out, d)
		}
	}
	return out, nil
}
