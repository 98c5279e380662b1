package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

func seedRankedUsers(repo *stubProgressRepo, xps ...int) {
	for i, xp := range xps {
		userID := shared.UserID(fmt.Sprintf("6f1b1f60-0000-4000-8000-0000000000%02d", i+1))
		p := progression.NewUserProgress(userID)
		p.XP = shared.XP(xp)
		p.TotalSolved = i + 1
		repo.progress[userID] = p
	}
}

func TestGetLeaderboard_ServedFromCache(t *testing.T) {
	progressRepo := newStubProgressRepo()
	seedRankedUsers(progressRepo, 900, 500, 100)

	cache := &stubLeaderboardCache{
		entries: []progression.RankedEntry{
			{UserID: "u-1", Rank: 1, XP: 900, Level: 4},
			{UserID: "u-2", Rank: 2, XP: 500, Level: 3},
		},
	}

	handler := NewGetLeaderboardHandler(progressRepo, cache, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})

	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, int64(1), result.Entries[0].Rank)
	assert.Equal(t, 900, result.Entries[0].XP)
	assert.Equal(t, 1, cache.calls)
}

func TestGetLeaderboard_CacheFailureFallsBackToPostgres(t *testing.T) {
	progressRepo := newStubProgressRepo()
	seedRankedUsers(progressRepo, 900, 500, 100)

	cache := &stubLeaderboardCache{err: errors.New("redis: connection refused")}

	handler := NewGetLeaderboardHandler(progressRepo, cache, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})

	require.NoError(t, err, "cache failure must not fail the query")
	assert.False(t, result.FromCache)
	require.Len(t, result.Entries, 3)
	// Позиции проставлены по убыванию XP.
	assert.Equal(t, int64(1), result.Entries[0].Rank)
	assert.Equal(t, 900, result.Entries[0].XP)
	assert.Equal(t, int64(3), result.Entries[2].Rank)
	assert.Equal(t, 100, result.Entries[2].XP)
}

func TestGetLeaderboard_EmptyCacheFallsBackToPostgres(t *testing.T) {
	progressRepo := newStubProgressRepo()
	seedRankedUsers(progressRepo, 250)

	handler := NewGetLeaderboardHandler(progressRepo, &stubLeaderboardCache{}, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, 2, result.Entries[0].Level)
}

func TestGetLeaderboard_WorksWithoutCache(t *testing.T) {
	progressRepo := newStubProgressRepo()
	seedRankedUsers(progressRepo, 100, 50)

	handler := NewGetLeaderboardHandler(progressRepo, nil, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 2)
}

func TestGetLeaderboard_LimitDefaultsAndCaps(t *testing.T) {
	q := GetLeaderboardQuery{}
	require.NoError(t, q.Validate())
	assert.Equal(t, 20, q.Limit)

	q = GetLeaderboardQuery{Limit: 500}
	require.NoError(t, q.Validate())
	assert.Equal(t, 100, q.Limit)

	q = GetLeaderboardQuery{Limit: -1}
	assert.Error(t, q.Validate())
}
