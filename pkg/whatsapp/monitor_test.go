package whatsapp

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noder-app/noder/pkg/bus"
)

func newTestMonitor(t *testing.T) (*Monitor, *Mailbox, *StatusCache, chan bus.Event) {
	t.Helper()

	mailbox, err := NewMailbox(t.TempDir())
	require.NoError(t, err)

	cache := NewStatusCache(InitializingStatus())
	events := bus.NewEventBus()
	ch := events.Subscribe()
	t.Cleanup(func() { events.Unsubscribe(ch) })

	m := NewMonitor(mailbox, cache, events)
	m.interval = 10 * time.Millisecond
	return m, mailbox, cache, ch
}

func writeStatus(t *testing.T, mailbox *Mailbox, status bus.SessionStatus) {
	t.Helper()
	data, err := json.MarshalIndent(status, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mailbox.StatusPath(), data, 0644))
}

func waitEvent(t *testing.T, ch chan bus.Event) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return bus.Event{}
	}
}

func assertNoEvent(t *testing.T, ch chan bus.Event, wait time.Duration) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(wait):
	}
}

func TestMonitorInitSeedsCacheAndEmits(t *testing.T) {
	m, mailbox, cache, ch := newTestMonitor(t)

	require.NoError(t, m.Init())

	evt := waitEvent(t, ch)
	assert.Equal(t, bus.EventStatusChanged, evt.Type)
	require.NotNil(t, evt.Status)
	assert.Equal(t, StatusInitializing, evt.Status.Status)
	assert.True(t, evt.Status.IsInitializing)

	assert.Equal(t, StatusInitializing, cache.Get().Status)

	// The initial status file must exist for the external service.
	content, err := os.ReadFile(mailbox.StatusPath())
	require.NoError(t, err)
	var onDisk bus.SessionStatus
	require.NoError(t, json.Unmarshal(content, &onDisk))
	assert.Equal(t, StatusInitializing, onDisk.Status)
}

func TestMonitorEmitsOncePerDistinctStatus(t *testing.T) {
	m, mailbox, cache, ch := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	ready := bus.SessionStatus{
		Status:          StatusReady,
		Timestamp:       "2024-01-01T00:00:00Z",
		IsAuthenticated: true,
		IsClientReady:   true,
	}
	writeStatus(t, mailbox, ready)

	evt := waitEvent(t, ch)
	assert.Equal(t, bus.EventStatusChanged, evt.Type)
	assert.Equal(t, StatusReady, evt.Status.Status)
	assert.Equal(t, ready, cache.Get())

	// Rewriting the identical value must not emit again.
	writeStatus(t, mailbox, ready)
	assertNoEvent(t, ch, 100*time.Millisecond)

	// A distinct value emits exactly once more.
	writeStatus(t, mailbox, bus.SessionStatus{Status: StatusDisconnected, Timestamp: "0"})
	evt = waitEvent(t, ch)
	assert.Equal(t, StatusDisconnected, evt.Status.Status)
	assert.False(t, cache.Get().Connected())
}

func TestMonitorIgnoresMalformedStatus(t *testing.T) {
	m, mailbox, cache, ch := newTestMonitor(t)
	cache.Set(DisconnectedStatus())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.NoError(t, os.WriteFile(mailbox.StatusPath(), []byte("{not json"), 0644))
	assertNoEvent(t, ch, 100*time.Millisecond)
	assert.Equal(t, StatusDisconnected, cache.Get().Status)

	// The poller keeps running and picks up the next valid write.
	writeStatus(t, mailbox, bus.SessionStatus{Status: StatusReady, IsAuthenticated: true, IsClientReady: true})
	evt := waitEvent(t, ch)
	assert.Equal(t, StatusReady, evt.Status.Status)
}

func TestMonitorDeduplicatesQR(t *testing.T) {
	m, mailbox, _, ch := newTestMonitor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.NoError(t, os.WriteFile(mailbox.QRPath(), []byte("qr-payload-1\n"), 0644))

	evt := waitEvent(t, ch)
	assert.Equal(t, bus.EventQRUpdated, evt.Type)
	require.NotNil(t, evt.QR)
	assert.Equal(t, "qr-payload-1", evt.QR.Code)
	assert.Contains(t, evt.QR.SVG, "<svg")

	// Same trimmed content: no event.
	require.NoError(t, os.WriteFile(mailbox.QRPath(), []byte("  qr-payload-1  "), 0644))
	assertNoEvent(t, ch, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(mailbox.QRPath(), []byte("qr-payload-2"), 0644))
	evt = waitEvent(t, ch)
	assert.Equal(t, "qr-payload-2", evt.QR.Code)
}

func TestReadStatusMissingFileReportsDisconnected(t *testing.T) {
	m, _, _, _ := newTestMonitor(t)

	status, err := m.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, StatusDisconnected, status.Status)
	assert.False(t, status.Connected())
}

func TestReadStatusRefreshesCache(t *testing.T) {
	m, mailbox, cache, _ := newTestMonitor(t)

	writeStatus(t, mailbox, bus.SessionStatus{
		Status:          StatusReady,
		IsAuthenticated: true,
		IsClientReady:   true,
	})

	status, err := m.ReadStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected())
	assert.Equal(t, status, cache.Get())
}

func TestStatusCacheCopySemantics(t *testing.T) {
	cache := NewStatusCache(InitializingStatus())

	got := cache.Get()
	got.Status = "mutated"

	assert.Equal(t, StatusInitializing, cache.Get().Status)
}
