package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishStatus(SessionStatus{Status: "ready", IsAuthenticated: true, IsClientReady: true})

	select {
	case evt := <-ch:
		assert.Equal(t, EventStatusChanged, evt.Type)
		require.NotNil(t, evt.Status)
		assert.Equal(t, "ready", evt.Status.Status)
		assert.True(t, evt.Status.Connected())
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	b.PublishQR(QRUpdate{Code: "abc"})
}

func TestSlowObserverDoesNotBlockPublish(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill the observer buffer well past capacity; publish must stay
	// non-blocking and simply drop for the stalled observer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.PublishMessage(ReceivedMessage{From: "15551234567", Content: "hi"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow observer")
	}
}

func TestEventsCarryDistinctPayloads(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishQR(QRUpdate{Code: "qr-data", SVG: "<svg/>"})
	evt := <-ch
	assert.Equal(t, EventQRUpdated, evt.Type)
	require.NotNil(t, evt.QR)
	assert.Equal(t, "qr-data", evt.QR.Code)
	assert.Nil(t, evt.Status)
	assert.Nil(t, evt.Message)

	b.PublishMessage(ReceivedMessage{From: "a", To: "b", Content: "hello"})
	evt = <-ch
	assert.Equal(t, EventMessageReceived, evt.Type)
	require.NotNil(t, evt.Message)
	assert.Equal(t, "hello", evt.Message.Content)
}
