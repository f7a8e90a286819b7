package queue

import (
	"context"
	"log"
	"time"

	"whatswizard/internal/core/domain"
	"whatswizard/internal/core/ports"
)

// Worker is the queue's single consumer. Concurrency is 1 by design: the
// shared chat-client session and the external fetchers must never see two
// downloads at once, and one-at-a-time keeps completion order equal to
// enqueue order.
type Worker struct {
	queue      ports.JobQueue
	downloader ports.Downloader
	store      ports.RecordStore
	logger     *log.Logger
	timeout    time.Duration

	events chan domain.JobEvent
}

// NewWorker wires the consumer. timeout bounds a single download; zero
// disables the bound.
func NewWorker(q ports.JobQueue, d ports.Downloader, s ports.RecordStore, logger *log.Logger, timeout time.Duration) *Worker {
	return &Worker{
		queue:      q,
		downloader: d,
		store:      s,
		logger:     logger,
		timeout:    timeout,
		events:     make(chan domain.JobEvent, 16),
	}
}

// Events yields exactly one completed or failed event per consumed job, in
// finish order. The channel is closed when Run returns.
func (w *Worker) Events() <-chan domain.JobEvent {
	return w.events
}

// Run consumes jobs until ctx is done. Job failures never stop the loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.events)

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Printf("[QUEUE] dequeue error: %v", err)
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job domain.Job) {
	w.logger.Printf("[JOB %s] downloading %s", job.ID, job.URL)

	dctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	items, err := w.downloader.Download(dctx, job.URL)
	if err == nil && len(items) == 0 {
		err = domain.ErrNoMedia
	}
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	rec, err := w.store.CreateDownloadRecord(ctx, job.URL, items[0].Platform, job.UserID, job.Timestamp)
	if err != nil {
		// No durable record means the job did not complete; the files are
		// orphaned here and cleaned up by the failure path consumer.
		w.fail(ctx, job, err)
		return
	}

	if err := w.queue.Done(ctx, job.ID, domain.StatusCompleted, ""); err != nil {
		w.logger.Printf("[JOB %s] mark completed: %v", job.ID, err)
	}
	w.logger.Printf("[JOB %s] completed, %d item(s), record %s", job.ID, len(items), rec.ID)
	w.emit(ctx, domain.JobEvent{Type: domain.JobCompleted, Job: job, Items: items, RecordID: rec.ID})
}

func (w *Worker) fail(ctx context.Context, job domain.Job, cause error) {
	if err := w.queue.Done(ctx, job.ID, domain.StatusFailed, cause.Error()); err != nil {
		w.logger.Printf("[JOB %s] mark failed: %v", job.ID, err)
	}
	w.logger.Printf("[JOB %s] failed: %v", job.ID, cause)
	w.emit(ctx, domain.JobEvent{Type: domain.JobFailed, Job: job, Err: cause})
}

// emit must not drop events: the correlator owes the user exactly one
// reply per job. Blocks until consumed or shutdown.
func (w *Worker) emit(ctx context.Context, ev domain.JobEvent) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
