package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/whatsapp"
)

func TestBootstrapBridgeSeedsInitializingSession(t *testing.T) {
	mailbox, err := whatsapp.NewMailbox(t.TempDir())
	require.NoError(t, err)

	events := bus.NewEventBus()
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	monitor, dispatcher, registry := bootstrapBridge(mailbox, events)
	require.NotNil(t, dispatcher)
	require.NotNil(t, registry)

	// The status file is written before the first poll
	status, err := monitor.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, whatsapp.StatusInitializing, status.Status)
	assert.True(t, status.IsInitializing)

	// A synthetic status event fires at startup without waiting a poll
	select {
	case ev := <-sub:
		assert.Equal(t, bus.EventStatusChanged, ev.Type)
		require.NotNil(t, ev.Status)
		assert.Equal(t, whatsapp.StatusInitializing, ev.Status.Status)
	default:
		t.Fatal("expected a status event at startup")
	}
}
