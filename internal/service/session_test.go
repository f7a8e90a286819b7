package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"whatswizard/internal/broadcast"
	"whatswizard/internal/core/domain"
	"whatswizard/internal/qr"
)

type fakeClient struct {
	events   chan domain.ClientEvent
	chats    []domain.ChatSummary
	chatsErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(chan domain.ClientEvent, 16)}
}

func (c *fakeClient) Events() <-chan domain.ClientEvent { return c.events }

func (c *fakeClient) Chats(context.Context) ([]domain.ChatSummary, error) {
	return c.chats, c.chatsErr
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestSession(t *testing.T, client *fakeClient) (*Session, *broadcast.Bus[domain.StatusEvent], string) {
	t.Helper()
	bus := broadcast.New[domain.StatusEvent]()
	qrPath := filepath.Join(t.TempDir(), "qrcode.png")
	s := NewSession(client, bus, qr.NewWriter(qrPath), nil, testLogger(), time.Hour)
	return s, bus, qrPath
}

func drain(ch <-chan domain.StatusEvent) []domain.StatusEvent {
	var out []domain.StatusEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDisconnectedAlwaysClearsAuth(t *testing.T) {
	client := newFakeClient()
	s, bus, _ := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	client.events <- domain.ClientEvent{Type: domain.ClientAuthenticated}
	client.events <- domain.ClientEvent{Type: domain.ClientDisconnected, Reason: "browser closed"}
	close(client.events)
	<-done

	if s.Stats().IsAuthenticated {
		t.Error("disconnected must clear the authenticated flag")
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", s.State())
	}

	events := drain(sub)
	if len(events) != 2 {
		t.Fatalf("got %d status events, want 2", len(events))
	}
	if !events[0].Stats.IsAuthenticated || events[1].Stats.IsAuthenticated {
		t.Errorf("auth transitions wrong: %+v", events)
	}
}

func TestQRWritesArtifactWhileUnauthenticated(t *testing.T) {
	client := newFakeClient()
	s, bus, qrPath := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	client.events <- domain.ClientEvent{Type: domain.ClientQR, QRCode: "pair-me"}
	close(client.events)
	<-done

	if _, err := os.Stat(qrPath); err != nil {
		t.Fatalf("qr artifact not written: %v", err)
	}
	events := drain(sub)
	if len(events) != 1 || events[0].Type != domain.StatusQR {
		t.Fatalf("got %+v, want one qr event", events)
	}
	if len(events[0].QR) == 0 {
		t.Error("qr event carries no PNG payload")
	}
}

func TestQRIgnoredWhileAuthenticated(t *testing.T) {
	client := newFakeClient()
	s, bus, qrPath := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	client.events <- domain.ClientEvent{Type: domain.ClientAuthenticated}
	client.events <- domain.ClientEvent{Type: domain.ClientQR, QRCode: "stale"}
	close(client.events)
	<-done

	if _, err := os.Stat(qrPath); err == nil {
		t.Error("qr artifact written despite authenticated session")
	}
	for _, ev := range drain(sub) {
		if ev.Type == domain.StatusQR {
			t.Error("qr event published despite authenticated session")
		}
	}
}

func TestReadyFiresOncePerSession(t *testing.T) {
	client := newFakeClient()
	s, bus, _ := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	client.events <- domain.ClientEvent{Type: domain.ClientQR, QRCode: "pair-me"}
	client.events <- domain.ClientEvent{Type: domain.ClientReady}
	client.events <- domain.ClientEvent{Type: domain.ClientReady}
	close(client.events)
	<-done

	qrEvents := 0
	for _, ev := range drain(sub) {
		if ev.Type == domain.StatusQR {
			qrEvents++
		}
	}
	// one from the pairing qr event, exactly one more from the ready refresh
	if qrEvents != 2 {
		t.Errorf("qr events = %d, want 2 (ready refreshes exactly once)", qrEvents)
	}
	if !s.Stats().IsAuthenticated {
		t.Error("ready should mark the session authenticated")
	}
}

// flakyQueue rejects the first enqueue and accepts the rest.
type flakyQueue struct {
	recordingQueue
	calls int
}

func (q *flakyQueue) Enqueue(ctx context.Context, job domain.Job) error {
	q.calls++
	if q.calls == 1 {
		return fmt.Errorf("queue full: %w", domain.ErrQueueUnavailable)
	}
	return q.recordingQueue.Enqueue(ctx, job)
}

func TestMessageIngestFailureIsLoggedAndNonFatal(t *testing.T) {
	client := newFakeClient()
	bus := broadcast.New[domain.StatusEvent]()
	q := &flakyQueue{}
	var logBuf bytes.Buffer
	logger := log.New(&logBuf, "", 0)
	qrPath := filepath.Join(t.TempDir(), "qrcode.png")
	s := NewSession(client, bus, qr.NewWriter(qrPath), NewIngest(q, logger), logger, time.Hour)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	msg := domain.ClientEvent{
		Type:      domain.ClientMessage,
		ChatID:    "chat-1",
		UserID:    "user-1",
		Body:      "https://www.tiktok.com/@a/video/111",
		Timestamp: 1700000000,
	}
	client.events <- domain.ClientEvent{Type: domain.ClientReady}
	client.events <- msg
	client.events <- msg
	close(client.events)
	<-done

	if len(q.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1 (first attempt fails, session keeps handling)", len(q.jobs))
	}
	if !strings.Contains(logBuf.String(), "handle message from chat-1") {
		t.Errorf("enqueue failure not logged, log output: %q", logBuf.String())
	}
}

func TestUnreadPollBroadcastsOnlyOnChange(t *testing.T) {
	client := newFakeClient()
	client.chats = []domain.ChatSummary{
		{ID: "a", UnreadCount: 2},
		{ID: "b", UnreadCount: 0},
		{ID: "c", UnreadCount: 3},
	}
	s, bus, _ := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	s.stats.IsAuthenticated = true
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // identical totals: no second broadcast

	events := drain(sub)
	if len(events) != 1 {
		t.Fatalf("got %d unread events, want 1", len(events))
	}
	if events[0].Stats.UnreadChats != 5 {
		t.Errorf("unread total = %d, want 5", events[0].Stats.UnreadChats)
	}

	client.chats[1].UnreadCount = 4
	s.pollOnce(ctx)
	events = drain(sub)
	if len(events) != 1 || events[0].Stats.UnreadChats != 9 {
		t.Fatalf("changed total should broadcast once, got %+v", events)
	}
}

func TestUnreadPollSkipsWhenUnauthenticated(t *testing.T) {
	client := newFakeClient()
	client.chats = []domain.ChatSummary{{ID: "a", UnreadCount: 7}}
	s, bus, _ := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	s.pollOnce(context.Background())
	if events := drain(sub); len(events) != 0 {
		t.Fatalf("unauthenticated poll produced %+v", events)
	}
}

func TestUnreadPollErrorIsSwallowed(t *testing.T) {
	client := newFakeClient()
	client.chatsErr = errors.New("session flapping")
	s, bus, _ := newTestSession(t, client)
	sub, cancel := bus.Subscribe()
	defer cancel()

	s.stats.IsAuthenticated = true
	s.pollOnce(context.Background())

	if events := drain(sub); len(events) != 0 {
		t.Fatalf("poll error must not broadcast, got %+v", events)
	}

	// next poll proceeds independently
	client.chatsErr = nil
	client.chats = []domain.ChatSummary{{ID: "a", UnreadCount: 1}}
	s.pollOnce(context.Background())
	if events := drain(sub); len(events) != 1 {
		t.Fatalf("poll after transient error should broadcast, got %+v", events)
	}
}
