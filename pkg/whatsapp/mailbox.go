// Package whatsapp implements the file-mailbox bridge to the external
// WhatsApp automation service. The two processes share no socket or memory:
// the application writes intent files into a single directory, the service
// writes status and result files back, and background pollers translate
// file changes into in-process events. Presence of a whole file is the
// synchronization signal; no file locks are used.
package whatsapp

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	statusFile         = "status.txt"
	qrFile             = "qr.txt"
	messageFile        = "message.json"
	messageErrorFile   = "message_error.txt"
	listenersFile      = "listeners.json"
	removeListenerFile = "remove_listener.txt"
)

// Mailbox is the shared on-disk namespace used as the sole transport
// between this application and the automation service.
type Mailbox struct {
	dir string
}

// NewMailbox returns a mailbox rooted at dir, creating it if needed.
func NewMailbox(dir string) (*Mailbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("mailbox directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mailbox directory: %w", err)
	}
	return &Mailbox{dir: dir}, nil
}

// DefaultMailboxDir resolves the conventional mailbox location under the
// user's application data directory.
func DefaultMailboxDir(appName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve app data directory: %w", err)
	}
	return filepath.Join(base, appName, "whatsapp"), nil
}

func (m *Mailbox) Dir() string { return m.dir }

func (m *Mailbox) StatusPath() string  { return filepath.Join(m.dir, statusFile) }
func (m *Mailbox) QRPath() string      { return filepath.Join(m.dir, qrFile) }
func (m *Mailbox) MessagePath() string { return filepath.Join(m.dir, messageFile) }

func (m *Mailbox) MessageErrorPath() string { return filepath.Join(m.dir, messageErrorFile) }
func (m *Mailbox) ListenersPath() string    { return filepath.Join(m.dir, listenersFile) }

func (m *Mailbox) RemoveListenerPath() string { return filepath.Join(m.dir, removeListenerFile) }

// ReceivedPath returns the inbound-message path owned by the listener with
// the given subscription id. Ids are isolated by filename, so concurrent
// listeners never contend on the same file.
func (m *Mailbox) ReceivedPath(id string) string {
	return filepath.Join(m.dir, fmt.Sprintf("received_%s.json", id))
}
