package ports

import (
	"context"

	"whatswizard/internal/core/domain"
)

// JobQueue is a FIFO work queue with a single active consumer.
// Implementations decide durability; the contract is ordering.
type JobQueue interface {
	// Enqueue appends a job to the tail. It never blocks on the consumer;
	// a failure wraps domain.ErrQueueUnavailable.
	Enqueue(ctx context.Context, job domain.Job) error

	// Dequeue blocks until a job is available or ctx is done. The returned
	// job is considered running until Done is called for it.
	Dequeue(ctx context.Context) (domain.Job, error)

	// Done records the terminal status of a previously dequeued job.
	Done(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error

	// Count returns the number of pending plus running jobs.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Downloader fetches all media behind a URL. It may take seconds and is
// never invoked concurrently with itself from this system's side. Either
// the full item set is returned or the job fails; no partial salvage.
type Downloader interface {
	Download(ctx context.Context, url string) ([]domain.DownloadItem, error)
}

// RecordStore persists the append-only download history.
type RecordStore interface {
	// CreateDownloadRecord inserts one record for a completed job and
	// returns it with its generated ID.
	CreateDownloadRecord(ctx context.Context, url string, platform domain.Platform, userID string, timestamp int64) (domain.DownloadRecord, error)

	// RecentRecords returns up to limit records, newest first.
	RecentRecords(ctx context.Context, limit int) ([]domain.DownloadRecord, error)

	Close() error
}

// Messenger delivers replies back to a chat. Implemented by the chat-client
// transport, which is outside this system.
type Messenger interface {
	SendMedia(ctx context.Context, chatID, path string) error
	SendText(ctx context.Context, chatID, message string) error
}

// ChatClient is the event side of the chat-client transport.
type ChatClient interface {
	// Events yields lifecycle and message events until the client closes
	// the channel.
	Events() <-chan domain.ClientEvent

	// Chats enumerates open chats for unread counting.
	Chats(ctx context.Context) ([]domain.ChatSummary, error)
}
