package bus

// SessionStatus is the last reported connection state of the WhatsApp
// automation service. Field names are camelCase on the wire to match the
// service's status file format.
type SessionStatus struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsClientReady   bool   `json:"isClientReady"`
	IsInitializing  bool   `json:"isInitializing"`
}

// Connected reports whether the session can accept outbound sends.
func (s SessionStatus) Connected() bool {
	return s.IsAuthenticated && s.IsClientReady
}

// ReceivedMessage is one inbound WhatsApp message delivered by the
// automation service.
type ReceivedMessage struct {
	From      string `json:"from"`
	To        string `json:"to"`
	FromMe    bool   `json:"fromMe"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// QRUpdate carries a new pairing code observed in the mailbox.
type QRUpdate struct {
	Code string `json:"code"`
	SVG  string `json:"svg,omitempty"` // server-rendered SVG of the QR code
}
