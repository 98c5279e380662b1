package command

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/catalog"
	"github.com/codequest-hub/codequest-progression/internal/domain/challenge"
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

type challengeFixture struct {
	progress    *fakeProgressRepo
	ledger      *fakeLedgerRepo
	catalog     *fakeCatalog
	challenges  *fakeChallengeRepo
	completions *fakeCompletionRepo
	publisher   *capturePublisher

	prepare  *PrepareDailyChallengeHandler
	complete *CompleteDailyChallengeHandler
}

func newChallengeFixture() *challengeFixture {
	f := &challengeFixture{
		progress:  newFakeProgressRepo(),
		ledger:    &fakeLedgerRepo{},
		catalog:   newFakeCatalog(),
		publisher: &capturePublisher{},
	}
	f.challenges = newFakeChallengeRepo()
	f.completions = newFakeCompletionRepo(f.challenges)

	award := NewAwardXPHandler(f.progress, f.ledger, f.publisher)
	f.prepare = NewPrepareDailyChallengeHandler(
		f.challenges, f.catalog, f.publisher, rand.New(rand.NewSource(42)),
	)
	f.complete = NewCompleteDailyChallengeHandler(f.challenges, f.completions, award, f.publisher)
	return f
}

func (f *challengeFixture) seedQuestions(difficulties ...catalog.Difficulty) {
	for i, d := range difficulties {
		id := shared.QuestionID(string(rune('a'+i)) + "-question")
		f.catalog.addQuestion(&catalog.Question{
			ID:         id,
			TopicID:    "topic-go",
			Title:      string(id),
			Difficulty: d,
			IsActive:   true,
		})
	}
}

func TestPrepareDailyChallenge_CreatesLazily(t *testing.T) {
	f := newChallengeFixture()
	f.seedQuestions(catalog.DifficultyEasy, catalog.DifficultyMedium, catalog.DifficultyExpert)

	result, err := f.prepare.Handle(context.Background(), PrepareDailyChallengeCommand{})
	require.NoError(t, err)

	assert.True(t, result.Created)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, timeutil.Today(), result.Challenge.Date)
	assert.Equal(t, challenge.DefaultBonusXP, result.Challenge.BonusXP)

	q, err := f.catalog.GetQuestion(context.Background(), result.Challenge.QuestionID)
	require.NoError(t, err)
	assert.True(t, q.Difficulty.IsChallengeable(), "medium band preferred when available")

	assert.Len(t, f.publisher.byType(shared.EventChallengeCreated), 1)
}

func TestPrepareDailyChallenge_ReturnsExisting(t *testing.T) {
	f := newChallengeFixture()
	f.seedQuestions(catalog.DifficultyEasy)
	ctx := context.Background()

	first, err := f.prepare.Handle(ctx, PrepareDailyChallengeCommand{})
	require.NoError(t, err)

	second, err := f.prepare.Handle(ctx, PrepareDailyChallengeCommand{})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Challenge.ID, second.Challenge.ID)
}

func TestPrepareDailyChallenge_EmptyCatalog(t *testing.T) {
	f := newChallengeFixture()

	_, err := f.prepare.Handle(context.Background(), PrepareDailyChallengeCommand{})
	assert.ErrorIs(t, err, shared.ErrNoActiveQuestions)
}

func TestCompleteDailyChallenge_GrantsBonusOnce(t *testing.T) {
	f := newChallengeFixture()
	f.seedQuestions(catalog.DifficultyMedium)
	ctx := context.Background()

	prepared, err := f.prepare.Handle(ctx, PrepareDailyChallengeCommand{})
	require.NoError(t, err)

	first, err := f.complete.Handle(ctx, CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: prepared.Challenge.ID,
	})
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, challenge.DefaultBonusXP, first.XPEarned)

	second, err := f.complete.Handle(ctx, CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: prepared.Challenge.ID,
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Zero(t, second.XPEarned)

	bonuses := f.ledger.byReason(progression.ReasonDailyChallenge)
	require.Len(t, bonuses, 1, "the daily bonus is granted exactly once")
	meta, ok := bonuses[0].Meta.(progression.ChallengeMeta)
	require.True(t, ok)
	assert.Equal(t, timeutil.FormatDate(prepared.Challenge.Date), meta.Date)
}

func TestCompleteDailyChallenge_ExpiredChallenge(t *testing.T) {
	f := newChallengeFixture()
	yesterday := timeutil.Today().AddDate(0, 0, -1)
	stale := challenge.NewDailyChallenge(yesterday, "a-question")
	require.NoError(t, f.challenges.Create(context.Background(), stale))

	_, err := f.complete.Handle(context.Background(), CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: stale.ID,
	})
	assert.ErrorIs(t, err, shared.ErrChallengeExpired)

	// An expired challenge the user already completed still reports the
	// idempotent outcome instead of the expiry error.
	f.complete.now = func() time.Time { return yesterday.Add(12 * time.Hour) }
	done, err := f.complete.Handle(context.Background(), CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: stale.ID,
	})
	require.NoError(t, err)
	assert.False(t, done.AlreadyCompleted)
	require.Equal(t, challenge.DefaultBonusXP, done.XPEarned)

	f.complete.now = timeutil.Now
	repeat, err := f.complete.Handle(context.Background(), CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: stale.ID,
	})
	require.NoError(t, err)
	assert.True(t, repeat.AlreadyCompleted)
	assert.Zero(t, repeat.XPEarned)
}

func TestCompleteDailyChallenge_UnknownChallenge(t *testing.T) {
	f := newChallengeFixture()

	_, err := f.complete.Handle(context.Background(), CompleteDailyChallengeCommand{
		UserID:      testUser,
		ChallengeID: challenge.NewDailyChallenge(timeutil.Today(), "q").ID,
	})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)
}
