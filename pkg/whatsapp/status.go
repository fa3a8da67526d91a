package whatsapp

import (
	"sync"
	"time"

	"github.com/noder-app/noder/pkg/bus"
)

// Session status values written by the automation service.
const (
	StatusDisconnected  = "disconnected"
	StatusInitializing  = "initializing"
	StatusAuthenticated = "authenticated-pending"
	StatusReady         = "ready"
)

// DisconnectedStatus is the status reported when no status file exists yet.
func DisconnectedStatus() bus.SessionStatus {
	return bus.SessionStatus{
		Status:    StatusDisconnected,
		Timestamp: "0",
	}
}

// InitializingStatus is the synthetic status seeded before the first poll.
func InitializingStatus() bus.SessionStatus {
	return bus.SessionStatus{
		Status:         StatusInitializing,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		IsInitializing: true,
	}
}

// StatusCache holds the last observed session status. It is the only
// in-process shared mutable state of the bridge: writes come from the
// Monitor (or the initializer), reads from any command handler. Access
// never touches disk and never blocks on I/O.
type StatusCache struct {
	mu     sync.Mutex
	status bus.SessionStatus
}

// NewStatusCache returns a cache seeded with the given status.
func NewStatusCache(initial bus.SessionStatus) *StatusCache {
	return &StatusCache{status: initial}
}

// Get returns a copy of the cached status.
func (c *StatusCache) Get() bus.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Set replaces the cached status.
func (c *StatusCache) Set(status bus.SessionStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}
