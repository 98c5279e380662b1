package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("backend down")

func failingCall(context.Context) error { return errDown }
func okCall(context.Context) error      { return nil }

func newTestBreaker(cooldown time.Duration) *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         cooldown,
	})
}

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	assert.ErrorIs(t, cb.Execute(context.Background(), failingCall), errDown)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(context.Background(), failingCall), errDown)
	assert.Equal(t, StateOpen, cb.State())

	// The backing call must not run while open.
	calls := 0
	err := cb.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestExecute_SuccessResetsFailureRun(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.NoError(t, cb.Execute(context.Background(), okCall))
	require.Error(t, cb.Execute(context.Background(), failingCall))

	assert.Equal(t, StateClosed, cb.State(), "non-consecutive failures must not open the circuit")
}

func TestExecute_RecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker(time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)

	// The probe after the cooldown succeeds and closes the circuit.
	require.NoError(t, cb.Execute(context.Background(), okCall))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_FailedProbeReopens(t *testing.T) {
	cb := newTestBreaker(time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.Error(t, cb.Execute(context.Background(), failingCall))

	time.Sleep(5 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(context.Background(), failingCall), errDown)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(context.Background(), okCall), ErrCircuitOpen)
}

func TestLeaderboardCacheBreaker_NotifiesTransitions(t *testing.T) {
	var transitions []string
	cb := LeaderboardCacheBreaker(func(name string, from, to State) {
		transitions = append(transitions, name+": "+from.String()+" -> "+to.String())
	})

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(context.Background(), failingCall))
	}

	assert.Equal(t, []string{"leaderboard-cache: closed -> open"}, transitions)
}
