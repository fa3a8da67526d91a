package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/sanitize"
)

const (
	dispatchInterval = 100 * time.Millisecond
	dispatchDeadline = 5 * time.Second
)

// OutboundMessage is the request document written into the mailbox for the
// automation service to consume.
type OutboundMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// Dispatcher performs the synchronous, bounded-wait outbound exchange: it
// writes message.json and polls until the service consumes it, reports an
// error artifact, or the deadline passes. Only one request file may exist
// system-wide, so sends are serialized through an internal mutex.
type Dispatcher struct {
	mailbox  *Mailbox
	cache    *StatusCache
	interval time.Duration
	deadline time.Duration

	sendMu sync.Mutex
}

// NewDispatcher creates a dispatcher over the given mailbox.
func NewDispatcher(mailbox *Mailbox, cache *StatusCache) *Dispatcher {
	return &Dispatcher{
		mailbox:  mailbox,
		cache:    cache,
		interval: dispatchInterval,
		deadline: dispatchDeadline,
	}
}

// Send delivers one message through the mailbox. It fails immediately with
// ErrNotConnected when the cached session is not ready; no file is written
// in that case. On the success path the request file has been consumed by
// the service. On timeout the request file is removed so a failed exchange
// never poisons the next one.
func (d *Dispatcher) Send(ctx context.Context, phoneNumber, message string) error {
	status := d.cache.Get()
	if !status.Connected() {
		return fmt.Errorf("%w (status: %s), scan the QR code first", ErrNotConnected, status.Status)
	}

	normalized := normalizePhoneNumber(phoneNumber)
	logger.InfoCF("whatsapp", "Sending message", map[string]interface{}{
		"to":    sanitize.MaskPhoneNumber(normalized),
		"chars": len(message),
	})

	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	messagePath := d.mailbox.MessagePath()
	errorPath := d.mailbox.MessageErrorPath()

	// A stale error artifact from a previous exchange must not be
	// mistaken for this one's outcome.
	if err := os.Remove(errorPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale error file: %w", err)
	}

	request := OutboundMessage{PhoneNumber: normalized, Message: message}
	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	if err := os.WriteFile(messagePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write message file: %w", err)
	}

	deadline := time.NewTimer(d.deadline)
	defer deadline.Stop()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			os.Remove(messagePath)
			return ctx.Err()

		case <-deadline.C:
			if _, err := os.Stat(messagePath); os.IsNotExist(err) {
				// Consumed right at the wire.
				return nil
			}
			os.Remove(messagePath)
			logger.WarnCF("whatsapp", "Message send timed out", map[string]interface{}{
				"to": sanitize.MaskPhoneNumber(normalized),
			})
			return ErrSendTimeout

		case <-ticker.C:
			if content, err := os.ReadFile(errorPath); err == nil {
				os.Remove(errorPath)
				os.Remove(messagePath)
				serviceMsg := strings.TrimSpace(string(content))
				logger.WarnCF("whatsapp", "Service rejected message", map[string]interface{}{
					"error": serviceMsg,
				})
				return serviceError(serviceMsg)
			}

			if _, err := os.Stat(messagePath); os.IsNotExist(err) {
				logger.DebugC("whatsapp", "Message consumed by service")
				return nil
			}
		}
	}
}

// normalizePhoneNumber strips every non-digit character.
func normalizePhoneNumber(input string) string {
	var sb strings.Builder
	for _, ch := range input {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}
