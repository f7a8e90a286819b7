package domain

// JobEventType distinguishes worker outcomes.
type JobEventType string

const (
	JobCompleted JobEventType = "completed"
	JobFailed    JobEventType = "failed"
)

// JobEvent is emitted by the queue worker once per consumed job, in the
// order jobs finish. With a single consumer that equals enqueue order.
type JobEvent struct {
	Type     JobEventType
	Job      Job
	Items    []DownloadItem // set on completed
	RecordID string         // set on completed
	Err      error          // set on failed
}

// StatusEventType tags status-broadcast payloads.
type StatusEventType string

const (
	StatusAuth   StatusEventType = "auth"
	StatusQR     StatusEventType = "qr"
	StatusUnread StatusEventType = "unread"
)

// StatusEvent is fanned out to observers on every connection-state change.
// There is no replay; late subscribers only see future events.
type StatusEvent struct {
	Type  StatusEventType
	Stats ClientStats
	QR    []byte // PNG bytes on qr events
}

// ClientEventType enumerates chat-client lifecycle and message events.
type ClientEventType string

const (
	ClientQR            ClientEventType = "qr"
	ClientAuthenticated ClientEventType = "authenticated"
	ClientAuthFailure   ClientEventType = "auth_failure"
	ClientDisconnected  ClientEventType = "disconnected"
	ClientReady         ClientEventType = "ready"
	ClientMessage       ClientEventType = "message"
)

// ClientEvent is one event from the underlying chat-client transport.
type ClientEvent struct {
	Type   ClientEventType
	QRCode string // qr: the raw code to render
	Reason string // disconnected: transport-supplied reason

	// message fields
	ChatID    string
	UserID    string
	Body      string
	Timestamp int64
}
