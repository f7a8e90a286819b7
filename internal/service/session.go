// Package service ties the chat client, the job queue and the status
// broadcaster together: message ingest, connection lifecycle and result
// delivery.
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"whatswizard/internal/broadcast"
	"whatswizard/internal/core/domain"
	"whatswizard/internal/core/ports"
	"whatswizard/internal/qr"
)

// SessionState is the connection lifecycle position.
type SessionState string

const (
	StateUninitialized   SessionState = "uninitialized"
	StateInitializing    SessionState = "initializing"
	StateAuthenticated   SessionState = "authenticated"
	StateUnauthenticated SessionState = "unauthenticated"
	StateDisconnected    SessionState = "disconnected"
)

// Session drives the chat-client connection lifecycle: QR pairing, auth
// state, unread polling and the status broadcast. All state mutation
// happens on the single Run goroutine; readers go through the mutex.
type Session struct {
	client       ports.ChatClient
	bus          *broadcast.Bus[domain.StatusEvent]
	qrWriter     *qr.Writer
	ingest       *Ingest
	logger       *log.Logger
	pollInterval time.Duration

	mu             sync.Mutex
	state          SessionState
	stats          domain.ClientStats
	lastQRCode     string
	readyFired     bool
	messagesActive bool
}

// NewSession wires the lifecycle manager. ingest may be nil when message
// handling is disabled.
func NewSession(client ports.ChatClient, bus *broadcast.Bus[domain.StatusEvent], qrWriter *qr.Writer, ingest *Ingest, logger *log.Logger, pollInterval time.Duration) *Session {
	return &Session{
		client:       client,
		bus:          bus,
		qrWriter:     qrWriter,
		ingest:       ingest,
		logger:       logger,
		pollInterval: pollInterval,
		state:        StateUninitialized,
	}
}

// Stats answers current-state queries without waiting for the next event.
func (s *Session) Stats() domain.ClientStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run consumes client events until ctx is done or the client closes its
// event stream. It owns all state transitions.
func (s *Session) Run(ctx context.Context) {
	s.setState(StateInitializing)

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go s.pollLoop(pollCtx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.client.Events():
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev domain.ClientEvent) {
	switch ev.Type {
	case domain.ClientQR:
		s.handleQR(ev.QRCode)

	case domain.ClientAuthenticated:
		s.setAuth(StateAuthenticated, true)

	case domain.ClientAuthFailure:
		s.setAuth(StateUnauthenticated, false)

	case domain.ClientDisconnected:
		s.logger.Printf("[SESSION] client disconnected: %s", ev.Reason)
		s.mu.Lock()
		s.state = StateDisconnected
		s.stats.IsAuthenticated = false
		s.readyFired = false // a new QR cycle starts a new session
		s.messagesActive = false
		stats := s.stats
		s.mu.Unlock()
		s.bus.Publish(domain.StatusEvent{Type: domain.StatusAuth, Stats: stats})

	case domain.ClientReady:
		s.handleReady()

	case domain.ClientMessage:
		s.mu.Lock()
		active := s.messagesActive
		s.mu.Unlock()
		if active && s.ingest != nil {
			if err := s.ingest.Handle(ctx, ev); err != nil {
				s.logger.Printf("[SESSION] handle message from %s: %v", ev.ChatID, err)
			}
		}
	}
}

// handleQR regenerates the scannable artifact, overwriting any previous
// one. Only relevant while unauthenticated.
func (s *Session) handleQR(code string) {
	s.mu.Lock()
	if s.stats.IsAuthenticated {
		s.mu.Unlock()
		return
	}
	s.lastQRCode = code
	s.mu.Unlock()

	s.writeQR(code)
}

func (s *Session) writeQR(code string) {
	png, err := s.qrWriter.Write(code)
	if err != nil {
		s.logger.Printf("[SESSION] write qr artifact: %v", err)
		return
	}
	s.logger.Printf("[SESSION] qr code saved to %s", s.qrWriter.Path())
	s.bus.Publish(domain.StatusEvent{Type: domain.StatusQR, QR: png, Stats: s.Stats()})
}

// handleReady fires at most once per authenticated session: one QR refresh
// cycle plus activation of message handling. The unread poller ticks for
// the whole process lifetime but only does work while authenticated.
func (s *Session) handleReady() {
	s.mu.Lock()
	s.state = StateAuthenticated
	s.stats.IsAuthenticated = true
	first := !s.readyFired
	s.readyFired = true
	s.messagesActive = true
	lastQR := s.lastQRCode
	stats := s.stats
	s.mu.Unlock()

	s.bus.Publish(domain.StatusEvent{Type: domain.StatusAuth, Stats: stats})
	if first && lastQR != "" {
		s.writeQR(lastQR)
	}
}

func (s *Session) setAuth(state SessionState, authenticated bool) {
	s.mu.Lock()
	s.state = state
	s.stats.IsAuthenticated = authenticated
	stats := s.stats
	s.mu.Unlock()
	s.bus.Publish(domain.StatusEvent{Type: domain.StatusAuth, Stats: stats})
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce sums unread counts across chats and broadcasts only when the
// total changed. Errors are logged and swallowed: a transient enumeration
// failure must not stop future polls.
func (s *Session) pollOnce(ctx context.Context) {
	s.mu.Lock()
	authenticated := s.stats.IsAuthenticated
	s.mu.Unlock()
	if !authenticated {
		return
	}

	chats, err := s.client.Chats(ctx)
	if err != nil {
		s.logger.Printf("[SESSION] unread poll: %v", err)
		return
	}

	total := 0
	for _, chat := range chats {
		if chat.UnreadCount > 0 {
			total += chat.UnreadCount
		}
	}

	s.mu.Lock()
	changed := total != s.stats.UnreadChats
	if changed {
		s.stats.UnreadChats = total
	}
	stats := s.stats
	s.mu.Unlock()

	if changed {
		s.bus.Publish(domain.StatusEvent{Type: domain.StatusUnread, Stats: stats})
	}
}
