package domain

import "time"

// Platform identifies the social-media source of a URL.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformUnknown   Platform = "unknown"
)

// JobStatus tracks a download job through its lifecycle.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether a job in this status will never change again.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of queued download work. It is immutable after creation
// and owned by the queue until the worker consumes it.
type Job struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UserID     string    `json:"user_id"`
	Timestamp  int64     `json:"timestamp"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DownloadItem is one piece of downloaded media on local disk. Ownership of
// the file passes to whoever consumes the item; the consumer removes it
// after delivery.
type DownloadItem struct {
	Platform  Platform `json:"platform"`
	Path      string   `json:"path"`
	MediaType string   `json:"media_type"`
}

// DownloadRecord is the durable, append-only record of a completed job.
// Exactly one exists per successful job; failed jobs leave none.
type DownloadRecord struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Platform  Platform  `json:"platform"`
	UserID    string    `json:"user_id"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientStats is the queryable snapshot of the chat-client connection.
type ClientStats struct {
	IsAuthenticated bool `json:"is_authenticated"`
	UnreadChats     int  `json:"unread_chats"`
}

// ChatSummary is what the unread poller needs from each open chat.
type ChatSummary struct {
	ID          string
	UnreadCount int
	IsGroup     bool
	IsReadOnly  bool
}
