// Package redis implements Redis caching for the CodeQuest progression engine.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLeaderboardEmpty is returned when the cached leaderboard has no entries.
	ErrLeaderboardEmpty = errors.New("leaderboard_cache: leaderboard is empty")

	// ErrUserNotInLeaderboard is returned when the user is not in the cache.
	ErrUserNotInLeaderboard = errors.New("leaderboard_cache: user not in leaderboard")

	// ErrUserIDEmpty is returned when an empty user ID is provided.
	ErrUserIDEmpty = errors.New("leaderboard_cache: user ID cannot be empty")

	// ErrInvalidLimit is returned when a non-positive limit is provided.
	ErrInvalidLimit = errors.New("leaderboard_cache: limit must be positive")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardEntry is the stored (JSON) shape of one cached ranking row.
// Reads convert it to progression.RankedEntry.
type LeaderboardEntry struct {
	// UserID is the user's identifier.
	UserID string `json:"user_id"`

	// XP is the user's total experience points.
	XP int `json:"xp"`

	// Level is derived from XP.
	Level int `json:"level"`

	// Rank is the 1-based position in the leaderboard.
	Rank int64 `json:"rank"`

	// CurrentStreak is the user's active-day streak.
	CurrentStreak int `json:"current_streak"`

	// TotalSolved is the number of first-pass solves.
	TotalSolved int `json:"total_solved"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache provides fast top-N XP rankings using a Redis sorted set.
//
// Architecture:
//   - Sorted set "leaderboard:xp" stores userID -> XP
//   - Hash "leaderboard:info" stores userID -> LeaderboardEntry JSON
//
// Rank lookups are O(log N) and range reads O(log N + M). The cache is a
// projection of user_progress; the query layer falls back to PostgreSQL on
// any cache failure, so losing this data is always safe.
type LeaderboardCache struct {
	cache *Cache
}

// Key names for leaderboard cache.
const (
	keyLeaderboardXP   = PrefixLeaderboard + "xp"
	keyLeaderboardInfo = PrefixLeaderboard + "info"
	keyLeaderboardMeta = PrefixLeaderboard + "meta"
)

// LeaderboardMeta contains metadata about the cached leaderboard.
type LeaderboardMeta struct {
	LastRebuiltAt time.Time `json:"last_rebuilt_at"`
	TotalUsers    int64     `json:"total_users"`
	TotalXP       int64     `json:"total_xp"`
}

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

var _ progression.LeaderboardCache = (*LeaderboardCache)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateFromProgress updates one user's cached ranking data after an award.
// O(log N).
func (l *LeaderboardCache) UpdateFromProgress(ctx context.Context, p *progression.UserProgress) error {
	if p == nil || p.UserID.IsEmpty() {
		return ErrUserIDEmpty
	}

	entry := toEntry(p)
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := l.cache.Client().Pipeline()
	pipe.ZAdd(ctx, keyLeaderboardXP, redis.Z{
		Score:  float64(entry.XP),
		Member: entry.UserID,
	})
	pipe.HSet(ctx, keyLeaderboardInfo, entry.UserID, data)
	pipe.Expire(ctx, keyLeaderboardXP, TTLLeaderboardCache)
	pipe.Expire(ctx, keyLeaderboardInfo, TTLLeaderboardCache)

	_, err = pipe.Exec(ctx)
	return err
}

// Rebuild replaces the whole cache with a fresh projection of user_progress.
// Runs in a transaction so readers never observe a half-built leaderboard.
func (l *LeaderboardCache) Rebuild(ctx context.Context, users []*progression.UserProgress) error {
	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, keyLeaderboardXP, keyLeaderboardInfo)

	var totalXP int64
	zMembers := make([]redis.Z, 0, len(users))
	hashData := make(map[string]interface{}, len(users))

	for _, p := range users {
		if p == nil || p.UserID.IsEmpty() {
			continue
		}

		entry := toEntry(p)
		zMembers = append(zMembers, redis.Z{
			Score:  float64(entry.XP),
			Member: entry.UserID,
		})
		data, _ := json.Marshal(entry)
		hashData[entry.UserID] = data
		totalXP += int64(entry.XP)
	}

	if len(zMembers) > 0 {
		pipe.ZAdd(ctx, keyLeaderboardXP, zMembers...)
		pipe.HSet(ctx, keyLeaderboardInfo, hashData)
	}

	meta := LeaderboardMeta{
		LastRebuiltAt: time.Now().UTC(),
		TotalUsers:    int64(len(zMembers)),
		TotalXP:       totalXP,
	}
	metaData, _ := json.Marshal(meta)
	pipe.Set(ctx, keyLeaderboardMeta, metaData, TTLLeaderboardCache)

	pipe.Expire(ctx, keyLeaderboardXP, TTLLeaderboardCache)
	pipe.Expire(ctx, keyLeaderboardInfo, TTLLeaderboardCache)

	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate removes all cached leaderboard data.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	return l.cache.Delete(ctx, keyLeaderboardXP, keyLeaderboardInfo, keyLeaderboardMeta)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetTop returns the top N entries by XP, ranks populated.
// Returns ErrLeaderboardEmpty when the cache holds no data, which the query
// layer treats as a miss and answers from PostgreSQL.
func (l *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]progression.RankedEntry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	userIDs, err := l.cache.Client().ZRevRange(ctx, keyLeaderboardXP, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, ErrLeaderboardEmpty
	}

	data, err := l.cache.Client().HMGet(ctx, keyLeaderboardInfo, userIDs...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]progression.RankedEntry, 0, len(userIDs))
	for i, v := range data {
		str, ok := v.(string)
		if !ok {
			continue
		}

		var entry LeaderboardEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		entries = append(entries, progression.RankedEntry{
			UserID:        shared.UserID(entry.UserID),
			Rank:          int64(i + 1),
			XP:            shared.XP(entry.XP),
			Level:         shared.Level(entry.Level),
			CurrentStreak: entry.CurrentStreak,
			TotalSolved:   entry.TotalSolved,
		})
	}

	if len(entries) == 0 {
		return nil, ErrLeaderboardEmpty
	}
	return entries, nil
}

// GetRank returns a user's 1-based rank.
func (l *LeaderboardCache) GetRank(ctx context.Context, userID shared.UserID) (int64, error) {
	if userID.IsEmpty() {
		return 0, ErrUserIDEmpty
	}

	rank, err := l.cache.Client().ZRevRank(ctx, keyLeaderboardXP, userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrUserNotInLeaderboard
		}
		return 0, err
	}
	return rank + 1, nil
}

// GetCount returns the number of cached entries.
func (l *LeaderboardCache) GetCount(ctx context.Context) (int64, error) {
	return l.cache.Client().ZCard(ctx, keyLeaderboardXP).Result()
}

// GetMeta returns the leaderboard metadata.
func (l *LeaderboardCache) GetMeta(ctx context.Context) (*LeaderboardMeta, error) {
	var meta LeaderboardMeta
	if err := l.cache.Get(ctx, keyLeaderboardMeta, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func toEntry(p *progression.UserProgress) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:        p.UserID.String(),
		XP:            p.XP.Int(),
		Level:         p.CurrentLevel().Int(),
		CurrentStreak: p.CurrentStreak,
		TotalSolved:   p.TotalSolved,
	}
}
