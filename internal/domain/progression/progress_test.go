package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

func TestLevelFormula(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{1, 1},
		{249, 1},
		{250, 2},
		{499, 2},
		{500, 3},
		{2500, 11},
	}

	for _, tt := range tests {
		assert.Equal(t, shared.Level(tt.level), shared.XP(tt.xp).Level(), "xp=%d", tt.xp)
	}
}

func TestProgressPercent_Range(t *testing.T) {
	for _, xp := range []int{0, 1, 125, 249, 250, 375, 499, 500, 10000} {
		pct := shared.XP(xp).ProgressPercent()
		assert.GreaterOrEqual(t, pct, 0.0, "xp=%d", xp)
		assert.Less(t, pct, 100.0, "xp=%d", xp)
	}

	assert.Equal(t, 0.0, shared.XP(0).ProgressPercent())
	assert.Equal(t, 0.0, shared.XP(250).ProgressPercent())
	assert.Equal(t, 50.0, shared.XP(125).ProgressPercent())
}

func TestCurrentLevelRecomputesFromXP(t *testing.T) {
	p := NewUserProgress(testUserID)
	p.XP = 300
	p.Level = shared.MinLevel // stale cache

	assert.Equal(t, shared.Level(2), p.CurrentLevel(), "decisions must ignore the cached level")
}

func TestNewUserProgress_Defaults(t *testing.T) {
	p := NewUserProgress(testUserID)

	assert.Equal(t, shared.XP(0), p.XP)
	assert.Equal(t, shared.MinLevel, p.Level)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 0, p.TotalSolved)
	assert.False(t, p.HasActivity())
}
