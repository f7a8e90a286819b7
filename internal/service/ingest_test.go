package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"whatswizard/internal/core/domain"
)

type recordingQueue struct {
	jobs []domain.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job domain.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	<-ctx.Done()
	return domain.Job{}, ctx.Err()
}

func (q *recordingQueue) Done(context.Context, string, domain.JobStatus, string) error { return nil }

func (q *recordingQueue) Count(context.Context) (int, error) { return len(q.jobs), nil }

func (q *recordingQueue) Close() error { return nil }

func TestIngestEnqueuesClassifiedURL(t *testing.T) {
	q := &recordingQueue{}
	ing := NewIngest(q, testLogger())

	ev := domain.ClientEvent{
		Type:      domain.ClientMessage,
		ChatID:    "chat-9",
		UserID:    "user-9",
		Body:      "look! https://instagram.com/reel/Cabc123 so cool",
		Timestamp: 1700000000,
	}
	if err := ing.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(q.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(q.jobs))
	}
	job := q.jobs[0]
	if job.URL != "https://www.instagram.com/reel/Cabc123" {
		t.Errorf("job URL = %q, want canonicalized form", job.URL)
	}
	if job.UserID != "chat-9" {
		t.Errorf("job user = %q, want originating chat", job.UserID)
	}
	if job.Timestamp != 1700000000 {
		t.Errorf("job timestamp = %d", job.Timestamp)
	}
	if job.ID == "" || job.EnqueuedAt.IsZero() {
		t.Error("job missing generated ID or enqueue time")
	}
}

func TestIngestIgnoresMissesSilently(t *testing.T) {
	q := &recordingQueue{}
	ing := NewIngest(q, testLogger())

	cases := []string{
		"plain text, no links",
		"https://example.com/watch?v=123",
		"https://www.youtube.com/watch?v=abc",
		"",
	}
	for _, body := range cases {
		ev := domain.ClientEvent{Type: domain.ClientMessage, ChatID: "c", Body: body}
		if err := ing.Handle(context.Background(), ev); err != nil {
			t.Errorf("Handle(%q) = %v, miss must not error", body, err)
		}
	}
	if len(q.jobs) != 0 {
		t.Fatalf("misses enqueued %d jobs", len(q.jobs))
	}
}

func TestIngestOnlyFirstURLConsidered(t *testing.T) {
	q := &recordingQueue{}
	ing := NewIngest(q, testLogger())

	body := fmt.Sprintf("%s and %s",
		"https://www.tiktok.com/@a/video/111",
		"https://www.instagram.com/p/zzz")
	ev := domain.ClientEvent{Type: domain.ClientMessage, ChatID: "c", Body: body}
	if err := ing.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(q.jobs))
	}
	if q.jobs[0].URL != "https://www.tiktok.com/@a/video/111" {
		t.Errorf("job URL = %q, want the first URL", q.jobs[0].URL)
	}
}

func TestIngestSurfacesQueueUnavailable(t *testing.T) {
	q := &recordingQueue{err: fmt.Errorf("redis gone: %w", domain.ErrQueueUnavailable)}
	ing := NewIngest(q, testLogger())

	ev := domain.ClientEvent{Type: domain.ClientMessage, ChatID: "c", Body: "https://www.tiktok.com/@a/video/111"}
	err := ing.Handle(context.Background(), ev)
	if !errors.Is(err, domain.ErrQueueUnavailable) {
		t.Fatalf("Handle = %v, want ErrQueueUnavailable", err)
	}
}
