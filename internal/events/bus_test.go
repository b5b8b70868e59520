package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	var mu sync.Mutex
	var got []string
	bus.SubscribeFunc(EscrowSetupStep, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(EscrowSetupStepEvent).Step)
		return nil
	})

	for _, step := range []string{"initialize", "delegate", "fund"} {
		require.NoError(t, bus.Publish(EscrowSetupStepEvent{BaseEvent: NewBaseEvent(EscrowSetupStep), Step: step}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	assert.Equal(t, []string{"initialize", "delegate", "fund"}, got)
	assert.ErrorIs(t, bus.Publish(SwapCompletedEvent{BaseEvent: NewBaseEvent(SwapCompleted)}), ErrBusClosed)
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { return boom })
	sub := bus.SubscribeFunc(SwapFailed, func(context.Context, Event) error { return nil })

	err := bus.PublishSync(context.Background(), SwapFailedEvent{BaseEvent: NewBaseEvent(SwapFailed)})
	assert.ErrorIs(t, err, boom)

	sub.Unsubscribe()
	assert.NoError(t, bus.PublishSync(context.Background(), EscrowStateChangedEvent{BaseEvent: NewBaseEvent(EscrowStateChanged)}))
}

func TestPublishSyncCallsHandlersInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		bus.SubscribeFunc(SwapCompleted, func(context.Context, Event) error {
			got = append(got, i)
			return nil
		})
	}

	require.NoError(t, bus.PublishSync(context.Background(), SwapCompletedEvent{BaseEvent: NewBaseEvent(SwapCompleted)}))
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	release := make(chan struct{})
	bus.SubscribeFunc(EscrowStateChanged, func(context.Context, Event) error {
		<-release
		return nil
	})

	e := EscrowStateChangedEvent{BaseEvent: NewBaseEvent(EscrowStateChanged)}
	require.NoError(t, bus.Publish(e))
	// первое событие забирает диспетчер, второе занимает очередь
	require.Eventually(t, func() bool { return bus.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(e))
	assert.ErrorIs(t, bus.Publish(e), ErrBufferFull)

	close(release)
	require.NoError(t, bus.Shutdown(context.Background()))
}
