package whatsapp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a send is attempted before the
	// session reports authenticated and client-ready.
	ErrNotConnected = errors.New("whatsapp is not connected")

	// ErrSendTimeout is returned when the service does not consume the
	// outbound request file before the dispatch deadline.
	ErrSendTimeout = errors.New("timeout while sending message")

	// ErrServiceReported wraps an error message written by the automation
	// service into the mailbox error artifact.
	ErrServiceReported = errors.New("whatsapp service reported an error")
)

// serviceError attaches the raw artifact content to ErrServiceReported so
// callers can both match with errors.Is and show the service's message.
func serviceError(content string) error {
	return fmt.Errorf("%w: %s", ErrServiceReported, content)
}
