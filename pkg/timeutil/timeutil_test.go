package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, 3, 10, 18, 45, 12, 500, time.UTC)
	assert.Equal(t, Date(2025, 3, 10), StartOfDay(in))
}

func TestStartOfDay_ConvertsToUTC(t *testing.T) {
	// 01:30 10 марта в UTC+5 - это ещё 9 марта по UTC.
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 3, 10, 1, 30, 0, 0, loc)

	assert.Equal(t, Date(2025, 3, 9), StartOfDay(in))
}

func TestEndOfDay(t *testing.T) {
	in := Date(2025, 3, 10)
	end := EndOfDay(in)

	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.True(t, IsSameDay(in, end))
}

func TestIsSameDay(t *testing.T) {
	morning := time.Date(2025, 3, 10, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(morning, evening))
	assert.False(t, IsSameDay(evening, nextDay))
}

func TestDayDiff(t *testing.T) {
	tests := []struct {
		name    string
		earlier time.Time
		later   time.Time
		want    int
	}{
		{
			name:    "same day",
			earlier: time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC),
			later:   time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC),
			want:    0,
		},
		{
			name:    "across midnight counts as one day",
			earlier: time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC),
			later:   time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC),
			want:    1,
		},
		{
			name:    "week apart",
			earlier: Date(2025, 3, 10),
			later:   Date(2025, 3, 17),
			want:    7,
		},
		{
			name:    "negative when reversed",
			earlier: Date(2025, 3, 11),
			later:   Date(2025, 3, 10),
			want:    -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayDiff(tt.earlier, tt.later))
		})
	}
}

func TestIsConsecutiveDay(t *testing.T) {
	assert.True(t, IsConsecutiveDay(Date(2025, 3, 10), Date(2025, 3, 11)))
	assert.False(t, IsConsecutiveDay(Date(2025, 3, 10), Date(2025, 3, 10)))
	assert.False(t, IsConsecutiveDay(Date(2025, 3, 10), Date(2025, 3, 12)))

	// Конец месяца: 31 марта -> 1 апреля.
	assert.True(t, IsConsecutiveDay(Date(2025, 3, 31), Date(2025, 4, 1)))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2025-03-10", FormatDate(Date(2025, 3, 10)))
	assert.Equal(t, "2025-01-05", FormatDate(time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 3, 10), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("10.03.2025")
	assert.Error(t, err)
}

func TestFormatParse_RoundTrip(t *testing.T) {
	day := Date(2025, 12, 31)
	parsed, err := ParseDate(FormatDate(day))
	require.NoError(t, err)
	assert.True(t, day.Equal(parsed))
}

func TestToday(t *testing.T) {
	today := Today()
	assert.Equal(t, 0, today.Hour())
	assert.Equal(t, 0, today.Minute())
	assert.True(t, IsToday(today))
}
