package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

type awardFixture struct {
	progress  *fakeProgressRepo
	ledger    *fakeLedgerRepo
	publisher *capturePublisher
	handler   *AwardXPHandler
}

func newAwardFixture() *awardFixture {
	f := &awardFixture{
		progress:  newFakeProgressRepo(),
		ledger:    &fakeLedgerRepo{},
		publisher: &capturePublisher{},
	}
	f.handler = NewAwardXPHandler(f.progress, f.ledger, f.publisher)
	return f
}

func TestAwardXP_GrantsAndAppendsLedger(t *testing.T) {
	f := newAwardFixture()

	result, err := f.handler.Handle(context.Background(), AwardXPCommand{
		UserID: testUser,
		Amount: 30,
		Reason: progression.ReasonQuestionPass,
		Meta:   progression.QuestionPassMeta{QuestionID: "q-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, shared.XP(30), result.NewXP)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, shared.Level(1), result.NewLevel)

	sum, _ := f.ledger.SumByUser(context.Background(), testUser)
	assert.Equal(t, 30, sum, "ledger sum must equal total XP")
	require.Len(t, f.ledger.entries, 1)
	assert.Equal(t, progression.ReasonQuestionPass, f.ledger.entries[0].Reason)

	assert.Len(t, f.publisher.byType(shared.EventXPAwarded), 1)
	assert.Empty(t, f.publisher.byType(shared.EventLevelUp))
}

func TestAwardXP_DetectsLevelUp(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, AwardXPCommand{
		UserID: testUser,
		Amount: 240,
		Reason: progression.ReasonQuestionPass,
	})
	require.NoError(t, err)

	result, err := f.handler.Handle(ctx, AwardXPCommand{
		UserID: testUser,
		Amount: 20,
		Reason: progression.ReasonQuestionPass,
	})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, shared.Level(1), result.PreviousLevel)
	assert.Equal(t, shared.Level(2), result.NewLevel)
	assert.Equal(t, shared.XP(260), result.NewXP)

	// The level cache is refreshed on the boundary crossing.
	p, err := f.progress.GetByUserID(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, shared.Level(2), p.Level)

	assert.Len(t, f.publisher.byType(shared.EventLevelUp), 1)
}

func TestAwardXP_LedgerSumMatchesXPAcrossReasons(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	grants := []AwardXPCommand{
		{UserID: testUser, Amount: 30, Reason: progression.ReasonQuestionPass},
		{UserID: testUser, Amount: 15, Reason: progression.ReasonStreakBonus, Meta: progression.StreakMeta{Streak: 2}},
		{UserID: testUser, Amount: 50, Reason: progression.ReasonNodeCompleted, Meta: progression.NodeMeta{NodeID: "go-basics"}},
	}
	for _, cmd := range grants {
		_, err := f.handler.Handle(ctx, cmd)
		require.NoError(t, err)
	}

	p, err := f.progress.GetByUserID(ctx, testUser)
	require.NoError(t, err)
	sum, _ := f.ledger.SumByUser(ctx, testUser)
	assert.Equal(t, p.XP.Int(), sum)
}

func TestAwardXP_RejectsInvalidCommands(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, AwardXPCommand{
		UserID: testUser,
		Amount: 0,
		Reason: progression.ReasonQuestionPass,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidXPAmount)

	_, err = f.handler.Handle(ctx, AwardXPCommand{
		UserID: testUser,
		Amount: 10,
		Reason: progression.Reason("granted_by_admin_typo"),
	})
	assert.ErrorIs(t, err, shared.ErrUnknownReason)

	_, err = f.handler.Handle(ctx, AwardXPCommand{
		UserID: testUser,
		Amount: 10,
		Reason: progression.ReasonQuestionPass,
		Meta:   progression.StreakMeta{Streak: 3},
	})
	assert.Error(t, err, "metadata must match the reason code")

	assert.Empty(t, f.ledger.entries, "no ledger entries on validation failure")
}
