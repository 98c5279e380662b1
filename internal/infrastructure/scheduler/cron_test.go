package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression_Valid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"every minute", EveryMinute},
		{"every 5 minutes", Every5Minutes},
		{"shortly after midnight", ShortlyAfterMidnight},
		{"hour range", "0 9-17 * * *"},
		{"weekday list", "0 12 * * 1,3,5"},
		{"step with range", "0-30/10 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, ce.String())
		})
	}
}

func TestParseCronExpression_Invalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"too few fields", "* * *"},
		{"too many fields", "* * * * * *"},
		{"minute out of range", "60 * * * *"},
		{"hour out of range", "* 24 * * *"},
		{"garbage value", "abc * * * *"},
		{"zero step", "*/0 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCronExpression(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestCronExpression_Next(t *testing.T) {
	t.Run("shortly after midnight", func(t *testing.T) {
		ce := MustParseCronExpression(ShortlyAfterMidnight)

		after := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
		next := ce.Next(after)

		assert.Equal(t, time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC), next)
	})

	t.Run("same day when before fire time", func(t *testing.T) {
		ce := MustParseCronExpression(ShortlyAfterMidnight)

		after := time.Date(2025, 3, 10, 0, 1, 0, 0, time.UTC)
		next := ce.Next(after)

		assert.Equal(t, time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC), next)
	})

	t.Run("every 5 minutes rounds up", func(t *testing.T) {
		ce := MustParseCronExpression(Every5Minutes)

		after := time.Date(2025, 3, 10, 12, 3, 20, 0, time.UTC)
		next := ce.Next(after)

		assert.Equal(t, time.Date(2025, 3, 10, 12, 5, 0, 0, time.UTC), next)
	})

	t.Run("weekday constraint", func(t *testing.T) {
		// 0 0 * * 0 - полночь воскресенья; 10 марта 2025 - понедельник.
		ce := MustParseCronExpression("0 0 * * 0")

		after := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
		next := ce.Next(after)

		assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Sunday, next.Weekday())
	})
}

func TestMustParseCronExpression_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustParseCronExpression("not a cron")
	})
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)

	after := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, after.Add(10*time.Minute), s.Next(after))
}
