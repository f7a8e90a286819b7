package service

import (
	"context"
	"log"
	"os"

	"whatswizard/internal/core/domain"
	"whatswizard/internal/core/ports"
)

const failureReply = "Download failed. Please try again."

// Correlator maps finished jobs back to the chat that requested them:
// one media send per result item, in result order, exactly once; one text
// notice per failed job. It owns the downloaded files and removes them
// after delivery.
type Correlator struct {
	messenger ports.Messenger
	logger    *log.Logger
}

// NewCorrelator wires the delivery side.
func NewCorrelator(messenger ports.Messenger, logger *log.Logger) *Correlator {
	return &Correlator{messenger: messenger, logger: logger}
}

// Run consumes job events until the channel closes or ctx is done.
func (c *Correlator) Run(ctx context.Context, events <-chan domain.JobEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.deliver(ctx, ev)
		}
	}
}

func (c *Correlator) deliver(ctx context.Context, ev domain.JobEvent) {
	switch ev.Type {
	case domain.JobCompleted:
		for _, item := range ev.Items {
			// Delivery failures are logged, not retried: the download
			// itself succeeded and the job stays completed.
			if err := c.messenger.SendMedia(ctx, ev.Job.UserID, item.Path); err != nil {
				c.logger.Printf("[JOB %s] deliver %s to %s: %v", ev.Job.ID, item.Path, ev.Job.UserID, err)
			}
			if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
				c.logger.Printf("[JOB %s] cleanup %s: %v", ev.Job.ID, item.Path, err)
			}
		}

	case domain.JobFailed:
		if err := c.messenger.SendText(ctx, ev.Job.UserID, failureReply); err != nil {
			c.logger.Printf("[JOB %s] failure notice to %s: %v", ev.Job.ID, ev.Job.UserID, err)
		}
	}
}
