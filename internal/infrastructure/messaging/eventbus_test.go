package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	config := DefaultInMemoryEventBusConfig()
	config.AsyncMode = false
	return NewInMemoryEventBus(config)
}

func TestPublish_DeliversToTypeAndCatchAllHandlers(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventXPAwarded, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 30, "question_pass", 30)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u-1", 1, 2, 120)))

	assert.Equal(t, []shared.EventType{shared.EventXPAwarded}, typed)
	assert.Equal(t, []shared.EventType{shared.EventXPAwarded, shared.EventLevelUp}, all)
}

func TestPublish_HandlerErrorDoesNotPropagate(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()

	require.NoError(t, bus.Subscribe(shared.EventXPAwarded, func(shared.Event) error {
		return errors.New("projection broken")
	}))

	assert.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 30, "question_pass", 30)),
		"a broken projection must not fail the operation that produced the event")

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.HandlerFailures)
}

func TestPublish_AsyncModeRunsHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		wg.Done()
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 30, "question_pass", 30)))
	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-2", 30, "question_pass", 30)))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handlers did not run")
	}

	require.NoError(t, bus.Close())
}

func TestClosedBus_RejectsOperations(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 30, "question_pass", 30)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPAwarded, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close(), "closing twice is a no-op")
}

func TestSubscribe_RejectsNilHandler(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()

	assert.Error(t, bus.Subscribe(shared.EventXPAwarded, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestMetrics_CountPublishes(t *testing.T) {
	bus := syncBus()
	defer func() { _ = bus.Close() }()

	require.NoError(t, bus.Subscribe(shared.EventXPAwarded, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 30, "question_pass", 30)))
	require.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u-1", 25, "daily_challenge", 55)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.Zero(t, snap.HandlerFailures)
}
