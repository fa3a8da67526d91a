package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/logger"
)

const listenerInterval = 500 * time.Millisecond

// ListenerSubscription describes one inbound-message subscription. The
// descriptor is what the automation service reads from listeners.json;
// field names are part of the wire contract.
type ListenerSubscription struct {
	ID           string   `json:"id"`
	PhoneNumbers []string `json:"phoneNumbers"`
	Command      string   `json:"command"`
}

// Registry owns one background poller per active subscription. Pollers are
// isolated by filename (received_<id>.json) and stop cooperatively via
// their context; removal intent is additionally signalled to the service
// through remove_listener.txt.
type Registry struct {
	mailbox  *Mailbox
	events   *bus.EventBus
	interval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRegistry creates a listener registry over the given mailbox.
func NewRegistry(mailbox *Mailbox, events *bus.EventBus) *Registry {
	return &Registry{
		mailbox:  mailbox,
		events:   events,
		interval: listenerInterval,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Register persists the subscription descriptor and spawns a poller for
// its id, then returns immediately. Re-registering an id replaces its
// poller. The descriptor file holds only the latest registration; the
// service treats it as last-write-wins across the whole registry.
func (r *Registry) Register(ctx context.Context, id string, phoneNumbers []string, command string) error {
	if id == "" {
		return fmt.Errorf("listener id is required")
	}

	sub := ListenerSubscription{
		ID:           id,
		PhoneNumbers: phoneNumbers,
		Command:      command,
	}
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize listener descriptor: %w", err)
	}
	if err := os.WriteFile(r.mailbox.ListenersPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write listeners file: %w", err)
	}

	r.mu.Lock()
	if cancel, ok := r.cancels[id]; ok {
		cancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	r.cancels[id] = cancel
	r.mu.Unlock()

	go r.poll(pollCtx, id)

	logger.InfoCF("whatsapp", "Listener registered", map[string]interface{}{
		"id":      id,
		"numbers": len(phoneNumbers),
	})
	return nil
}

// Unregister writes the removal sentinel for the service and stops the
// local poller. The service stops delivering files for the id on its own
// schedule; the sentinel is advisory.
func (r *Registry) Unregister(id string) error {
	if err := os.WriteFile(r.mailbox.RemoveListenerPath(), []byte(id), 0644); err != nil {
		return fmt.Errorf("failed to write remove listener file: %w", err)
	}

	r.mu.Lock()
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	r.mu.Unlock()

	logger.InfoCF("whatsapp", "Listener unregistered", map[string]interface{}{
		"id": id,
	})
	return nil
}

// ActiveIDs returns the ids with a running poller.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.cancels))
	for id := range r.cancels {
		ids = append(ids, id)
	}
	return ids
}

// Stop cancels every poller.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
}

// poll watches received_<id>.json by modification time. Each file instance
// is delivered at most once: the event fires only when the modification
// time is strictly newer than the last observed change, and the file is
// deleted right after emission. Bad reads skip the cycle.
func (r *Registry) poll(ctx context.Context, id string) {
	receivedPath := r.mailbox.ReceivedPath(id)
	lastCheck := time.Now()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(receivedPath)
		if err != nil {
			continue
		}
		if !info.ModTime().After(lastCheck) {
			continue
		}

		if content, err := os.ReadFile(receivedPath); err == nil {
			var msg bus.ReceivedMessage
			if err := json.Unmarshal(content, &msg); err == nil {
				r.events.PublishMessage(msg)
				os.Remove(receivedPath)
				logger.DebugCF("whatsapp", "Inbound message delivered", map[string]interface{}{
					"listener": id,
				})
			}
		}
		lastCheck = time.Now()
	}
}
