package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("hyprcat.navigator.fetch")
	defer bus.Unsubscribe(ch)

	bus.Emit("hyprcat.navigator.fetch", "/catalog", "agent-1", map[string]interface{}{"status": 200})

	select {
	case ev := <-ch:
		require.Equal(t, "hyprcat.navigator.fetch", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestSubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Emit("hyprcat.payment.confirmed", "/operations/checkout", "agent-1", nil)

	select {
	case ev := <-ch:
		require.Equal(t, "hyprcat.payment.confirmed", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("hyprcat.navigator.fetch")
	bus.Unsubscribe(ch)

	_, ok := <-ch
	require.False(t, ok)
}

func TestSubscriberCount(t *testing.T) {
	bus := NewEventBus()
	ch1 := bus.Subscribe("hyprcat.navigator.fetch")
	ch2 := bus.Subscribe()
	defer bus.Unsubscribe(ch1)
	defer bus.Unsubscribe(ch2)

	require.Equal(t, 2, bus.SubscriberCount())
}
