package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

const testUserID = shared.UserID("6f1b1f60-0000-4000-8000-000000000001")

func TestComposeQuestionReward_FullBundle(t *testing.T) {
	total, breakdown := ComposeQuestionReward(0, 500)

	assert.Equal(t, 30, total)
	require.Len(t, breakdown, 4)
	assert.Equal(t, BreakdownLine{Label: "Solved", Amount: 10}, breakdown[0])
	assert.Equal(t, BreakdownLine{Label: "No hints", Amount: 5}, breakdown[1])
	assert.Equal(t, BreakdownLine{Label: "First try", Amount: 10}, breakdown[2])
	assert.Equal(t, BreakdownLine{Label: "Speed bonus", Amount: 5}, breakdown[3])
}

func TestComposeQuestionReward_WithHintsAndSlow(t *testing.T) {
	total, breakdown := ComposeQuestionReward(2, 90000)

	assert.Equal(t, 20, total)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Solved", breakdown[0].Label)
	assert.Equal(t, "First try", breakdown[1].Label)
}

func TestComposeQuestionReward_SpeedThresholdIsExclusive(t *testing.T) {
	total, _ := ComposeQuestionReward(1, 60000)
	assert.Equal(t, 20, total, "exactly 60000ms does not earn the speed bonus")

	total, _ = ComposeQuestionReward(1, 59999)
	assert.Equal(t, 25, total)
}

func TestNewLedgerEntry_Validation(t *testing.T) {
	entry, err := NewLedgerEntry(testUserID, 30, ReasonQuestionPass, QuestionPassMeta{QuestionID: "q-1"})
	require.NoError(t, err)
	assert.Equal(t, testUserID, entry.UserID)
	assert.Equal(t, 30, entry.Amount)
	assert.NotEqual(t, "", entry.ID.String())

	_, err = NewLedgerEntry(testUserID, 0, ReasonQuestionPass, nil)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	_, err = NewLedgerEntry(testUserID, -5, ReasonQuestionPass, nil)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	_, err = NewLedgerEntry(testUserID, 10, Reason("bogus"), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewLedgerEntry("", 10, ReasonQuestionPass, nil)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestNewLedgerEntry_MetadataMustMatchReason(t *testing.T) {
	_, err := NewLedgerEntry(testUserID, 15, ReasonStreakBonus, NodeMeta{NodeID: "n-1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := QuestionPassMeta{
		QuestionID: "q-42",
		Breakdown: []BreakdownLine{
			{Label: "Solved", Amount: 10},
			{Label: "Speed bonus", Amount: 5},
		},
	}

	raw, err := EncodeMetadata(meta)
	require.NoError(t, err)

	decoded, err := DecodeMetadata(ReasonQuestionPass, raw)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestDecodeMetadata_DispatchesOnReason(t *testing.T) {
	raw, err := EncodeMetadata(StreakMeta{Streak: 4})
	require.NoError(t, err)

	decoded, err := DecodeMetadata(ReasonStreakBonus, raw)
	require.NoError(t, err)
	assert.Equal(t, StreakMeta{Streak: 4}, decoded)

	_, err = DecodeMetadata(Reason("bogus"), raw)
	assert.ErrorIs(t, err, shared.ErrUnknownReason)
}
