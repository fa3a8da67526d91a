package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/logger"
)

const (
	monitorInterval = 500 * time.Millisecond
	qrSVGSize       = 256
)

// Monitor is the single long-lived poller that watches status.txt and
// qr.txt, keeps the status cache current and emits deduplicated events.
// Parse failures and missing files are treated as "no change": the loop
// skips the cycle and retries on the next tick.
type Monitor struct {
	mailbox  *Mailbox
	cache    *StatusCache
	events   *bus.EventBus
	interval time.Duration
}

// NewMonitor creates a monitor over the given mailbox.
func NewMonitor(mailbox *Mailbox, cache *StatusCache, events *bus.EventBus) *Monitor {
	return &Monitor{
		mailbox:  mailbox,
		cache:    cache,
		events:   events,
		interval: monitorInterval,
	}
}

// Init seeds the mailbox with an initializing status file and emits a
// synthetic status event so the UI gets first feedback without waiting a
// full poll interval.
func (m *Monitor) Init() error {
	status := InitializingStatus()

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize initial status: %w", err)
	}
	if err := os.WriteFile(m.mailbox.StatusPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write initial status file: %w", err)
	}

	m.cache.Set(status)
	m.events.PublishStatus(status)
	return nil
}

// Start runs the polling loop until ctx is cancelled. It emits a
// status-changed event only when the status value differs from the last
// emitted one, and a qr-updated event only when the trimmed QR content
// changes; identical rewrites produce no events.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	logger.InfoCF("whatsapp", "Status monitor started", map[string]interface{}{
		"mailbox": m.mailbox.Dir(),
	})

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var lastStatus, lastQR string

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("whatsapp", "Status monitor stopped")
			return
		case <-ticker.C:
			lastStatus = m.pollStatus(lastStatus)
			lastQR = m.pollQR(lastQR)
		}
	}
}

func (m *Monitor) pollStatus(lastStatus string) string {
	content, err := os.ReadFile(m.mailbox.StatusPath())
	if err != nil {
		return lastStatus
	}

	var status bus.SessionStatus
	if err := json.Unmarshal(content, &status); err != nil {
		return lastStatus
	}

	if status.Status == lastStatus {
		return lastStatus
	}

	m.cache.Set(status)
	m.events.PublishStatus(status)
	logger.DebugCF("whatsapp", "Status changed", map[string]interface{}{
		"status": status.Status,
	})
	return status.Status
}

func (m *Monitor) pollQR(lastQR string) string {
	content, err := os.ReadFile(m.mailbox.QRPath())
	if err != nil {
		return lastQR
	}

	code := strings.TrimSpace(string(content))
	if code == lastQR {
		return lastQR
	}

	update := bus.QRUpdate{Code: code}
	if svg, err := renderQRSVG(code, qrSVGSize); err == nil {
		update.SVG = svg
	}
	m.events.PublishQR(update)
	logger.DebugC("whatsapp", "QR code updated")
	return code
}

// ReadQR reads the current QR code synchronously. A missing file returns
// an empty update, meaning no pairing is pending.
func (m *Monitor) ReadQR() (bus.QRUpdate, error) {
	content, err := os.ReadFile(m.mailbox.QRPath())
	if err != nil {
		if os.IsNotExist(err) {
			return bus.QRUpdate{}, nil
		}
		return bus.QRUpdate{}, fmt.Errorf("failed to read QR file: %w", err)
	}

	update := bus.QRUpdate{Code: strings.TrimSpace(string(content))}
	if update.Code == "" {
		return bus.QRUpdate{}, nil
	}
	if svg, err := renderQRSVG(update.Code, qrSVGSize); err == nil {
		update.SVG = svg
	}
	return update, nil
}

// ReadStatus reads the status file synchronously, refreshes the cache and
// returns the parsed value. A missing file reports disconnected without
// touching the cache file state.
func (m *Monitor) ReadStatus() (bus.SessionStatus, error) {
	content, err := os.ReadFile(m.mailbox.StatusPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DisconnectedStatus(), nil
		}
		return bus.SessionStatus{}, fmt.Errorf("failed to read status file: %w", err)
	}

	var status bus.SessionStatus
	if err := json.Unmarshal(content, &status); err != nil {
		return bus.SessionStatus{}, fmt.Errorf("failed to parse status JSON: %w", err)
	}

	m.cache.Set(status)
	return status, nil
}
