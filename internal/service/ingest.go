package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"whatswizard/internal/classify"
	"whatswizard/internal/core/domain"
	"whatswizard/internal/core/ports"
)

// Ingest turns inbound chat messages into download jobs. Only the first
// URL of a message is considered; a classification miss produces no reply
// and no job. Group and read-only chats never reach this layer.
type Ingest struct {
	queue  ports.JobQueue
	logger *log.Logger
}

// NewIngest wires the producer side of the queue.
func NewIngest(queue ports.JobQueue, logger *log.Logger) *Ingest {
	return &Ingest{queue: queue, logger: logger}
}

// Handle inspects one message event and enqueues at most one job.
// Enqueue failures are surfaced to the caller; everything else is a
// normal negative.
func (i *Ingest) Handle(ctx context.Context, ev domain.ClientEvent) error {
	rawURL := classify.FirstURL(ev.Body)
	if rawURL == "" {
		return nil
	}

	match, ok := classify.Classify(rawURL)
	if !ok {
		return nil
	}

	userID := ev.ChatID
	if userID == "" {
		userID = ev.UserID
	}

	job := domain.Job{
		ID:         uuid.NewString(),
		URL:        match.URL,
		UserID:     userID,
		Timestamp:  ev.Timestamp,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := i.queue.Enqueue(ctx, job); err != nil {
		i.logger.Printf("[INGEST] enqueue %s for %s: %v", match.URL, userID, err)
		return err
	}
	i.logger.Printf("[INGEST] job %s queued: %s %s", job.ID, match.Platform, match.URL)
	return nil
}
