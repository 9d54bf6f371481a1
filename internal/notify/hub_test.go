package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestPublishRespectsLimit(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	h.Publish("user:U1", KindSuccess, "Query added successfully", "")
	second := h.Publish("user:U1", KindError, "Failed to delete query", "not found")

	active := h.Active("user:U1")
	require.Len(t, active, 1)
	require.Equal(t, second.ID, active[0].ID)
	require.Empty(t, h.Active("user:U2"))
}

func TestActiveNewestFirst(t *testing.T) {
	h := NewHub(Config{Limit: 3})
	defer h.Close()

	a := h.Publish("c", KindInfo, "a", "")
	b := h.Publish("c", KindInfo, "b", "")

	active := h.Active("c")
	require.Equal(t, []string{b.ID, a.ID}, []string{active[0].ID, active[1].ID})

	require.True(t, h.Dismiss("c", b.ID))
	require.False(t, h.Dismiss("c", b.ID))
	require.Len(t, h.Active("c"), 1)
}

func TestSubscribeDeliversPerChannel(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	sub := h.Subscribe("c1", 0)
	defer sub.Unsubscribe()
	other := h.Subscribe("c2", 0)
	defer other.Unsubscribe()

	toast := h.Publish("c1", KindSuccess, "Document uploaded successfully", "")
	ev := receive(t, sub)
	require.Equal(t, EventPublished, ev.Type)
	require.Equal(t, toast.ID, ev.Toast.ID)

	h.Dismiss("c1", toast.ID)
	ev = receive(t, sub)
	require.Equal(t, EventDismissed, ev.Type)

	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event on other channel: %+v", ev)
	default:
	}
}

func TestSubscribeReplaysMissedEvents(t *testing.T) {
	h := NewHub(Config{Limit: 5})
	defer h.Close()

	first := h.Subscribe("c", 0)
	h.Publish("c", KindInfo, "one", "")
	seen := receive(t, first)
	first.Unsubscribe()

	h.Publish("c", KindInfo, "two", "")
	h.Publish("c", KindInfo, "three", "")

	again := h.Subscribe("c", seen.ID)
	defer again.Unsubscribe()
	require.Len(t, again.Missed, 2)
	require.Equal(t, "two", again.Missed[0].Toast.Title)
	require.Equal(t, "three", again.Missed[1].Toast.Title)
}

func TestReplayQueueIsBounded(t *testing.T) {
	h := NewHub(Config{QueueSize: 2})
	defer h.Close()

	for _, title := range []string{"a", "b", "c"} {
		h.Publish("c", KindInfo, title, "")
	}
	sub := h.Subscribe("c", 0)
	defer sub.Unsubscribe()
	require.Empty(t, sub.Missed)

	resumed := h.Subscribe("c", 1)
	defer resumed.Unsubscribe()
	require.Len(t, resumed.Missed, 2)
	require.Equal(t, "b", resumed.Missed[0].Toast.Title)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(Config{BufferSize: 1})
	defer h.Close()

	sub := h.Subscribe("c", 0)
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish("c", KindInfo, "burst", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.Len(t, sub.Events(), 1)
}

func TestUnsubscribeAndClose(t *testing.T) {
	h := NewHub(Config{})

	sub := h.Subscribe("c", 0)
	sub.Unsubscribe()
	sub.Unsubscribe()
	_, ok := <-sub.Events()
	require.False(t, ok)

	live := h.Subscribe("c", 0)
	h.Close()
	_, ok = <-live.Events()
	require.False(t, ok)
	live.Unsubscribe()

	h.Publish("c", KindInfo, "late", "")
	late := h.Subscribe("c", 0)
	_, ok = <-late.Events()
	require.False(t, ok)
}

func TestForgetDropsChannelState(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	h.Publish("user:U1", KindInfo, "hello", "")
	h.Forget("user:U1")
	require.Empty(t, h.Active("user:U1"))

	require.Empty(t, h.queue.missed("user:U1", 0))
}

func TestNotifierPublishesToBoundChannel(t *testing.T) {
	h := NewHub(Config{})
	defer h.Close()

	h.For("device:D1").Notify(KindError, "Upload failed. Please try again.", "")
	active := h.Active("device:D1")
	require.Len(t, active, 1)
	require.Equal(t, KindError, active[0].Kind)
}
