package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

func TestGetUserProgress_ReturnsAggregateWithHistory(t *testing.T) {
	progressRepo := newStubProgressRepo()
	p := progression.NewUserProgress(testUser)
	p.XP = 330
	p.CurrentStreak = 4
	p.BestStreak = 7
	p.TotalSolved = 12
	p.LastActiveDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	progressRepo.progress[testUser] = p

	ledgerRepo := &stubLedgerRepo{}
	for _, amount := range []int{10, 5, 15} {
		entry, err := progression.NewLedgerEntry(testUser, amount, progression.ReasonQuestionPass, nil)
		require.NoError(t, err)
		ledgerRepo.entries = append(ledgerRepo.entries, entry)
	}

	handler := NewGetUserProgressHandler(progressRepo, ledgerRepo)

	result, err := handler.Handle(context.Background(), GetUserProgressQuery{UserID: testUser})

	require.NoError(t, err)
	assert.Equal(t, testUser.String(), result.Progress.UserID)
	assert.Equal(t, 330, result.Progress.XP)
	// 330 XP лежит во втором уровне [250, 500).
	assert.Equal(t, 2, result.Progress.Level)
	assert.Equal(t, 170, result.Progress.XPToNextLevel)
	assert.InDelta(t, 32.0, result.Progress.ProgressPercent, 0.01)
	assert.Equal(t, 4, result.Progress.CurrentStreak)
	assert.Equal(t, 7, result.Progress.BestStreak)
	assert.Equal(t, "2026-03-14", result.Progress.LastActiveDate)
	assert.Equal(t, 12, result.Progress.TotalSolved)

	require.Len(t, result.RecentHistory, 3)
	// От новых к старым.
	assert.Equal(t, 15, result.RecentHistory[0].Amount)
	assert.Equal(t, 10, result.RecentHistory[2].Amount)
}

func TestGetUserProgress_UnknownUserGetsEmptyProgress(t *testing.T) {
	handler := NewGetUserProgressHandler(newStubProgressRepo(), &stubLedgerRepo{})

	result, err := handler.Handle(context.Background(), GetUserProgressQuery{UserID: testUser})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Progress.XP)
	assert.Equal(t, 1, result.Progress.Level)
	assert.Empty(t, result.Progress.LastActiveDate)
	assert.Empty(t, result.RecentHistory)
}

func TestGetUserProgress_HistoryLimitIsApplied(t *testing.T) {
	progressRepo := newStubProgressRepo()
	progressRepo.progress[testUser] = progression.NewUserProgress(testUser)

	ledgerRepo := &stubLedgerRepo{}
	for i := 0; i < 15; i++ {
		entry, err := progression.NewLedgerEntry(testUser, 10, progression.ReasonQuestionPass, nil)
		require.NoError(t, err)
		ledgerRepo.entries = append(ledgerRepo.entries, entry)
	}

	handler := NewGetUserProgressHandler(progressRepo, ledgerRepo)

	result, err := handler.Handle(context.Background(), GetUserProgressQuery{UserID: testUser})
	require.NoError(t, err)
	assert.Len(t, result.RecentHistory, 10, "default limit is 10")

	result, err = handler.Handle(context.Background(), GetUserProgressQuery{UserID: testUser, HistoryLimit: 3})
	require.NoError(t, err)
	assert.Len(t, result.RecentHistory, 3)
}

func TestGetUserProgress_RejectsInvalidQueries(t *testing.T) {
	handler := NewGetUserProgressHandler(newStubProgressRepo(), &stubLedgerRepo{})

	_, err := handler.Handle(context.Background(), GetUserProgressQuery{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), GetUserProgressQuery{UserID: testUser, HistoryLimit: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
