// Package console is a local chat-client adapter: stdin lines become
// inbound messages, deliveries print to stdout. The real chat transport
// lives outside this system; this adapter keeps the full pipeline
// runnable without it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"whatswizard/internal/core/domain"
)

const chatID = "console"

// Client implements ports.ChatClient and ports.Messenger over terminal IO.
type Client struct {
	in     io.Reader
	out    io.Writer
	logger *log.Logger
	events chan domain.ClientEvent
}

// New creates a console client.
func New(in io.Reader, out io.Writer, logger *log.Logger) *Client {
	return &Client{
		in:     in,
		out:    out,
		logger: logger,
		events: make(chan domain.ClientEvent, 16),
	}
}

// Events yields the lifecycle preamble followed by one message event per
// input line. Closed on EOF or ctx cancellation.
func (c *Client) Events() <-chan domain.ClientEvent { return c.events }

// Chats reports the single console chat. Nothing is ever unread here.
func (c *Client) Chats(context.Context) ([]domain.ChatSummary, error) {
	return []domain.ChatSummary{{ID: chatID}}, nil
}

// Run emits a qr/authenticated/ready preamble, then forwards stdin lines
// as messages until EOF or ctx is done.
func (c *Client) Run(ctx context.Context) {
	defer close(c.events)

	preamble := []domain.ClientEvent{
		{Type: domain.ClientQR, QRCode: uuid.NewString()},
		{Type: domain.ClientAuthenticated},
		{Type: domain.ClientReady},
	}
	for _, ev := range preamble {
		if !c.emit(ctx, ev) {
			return
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			// the receiver stops on ctx cancellation, so the send must too
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.Printf("[CONSOLE] read input: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			ev := domain.ClientEvent{
				Type:      domain.ClientMessage,
				ChatID:    chatID,
				UserID:    chatID,
				Body:      line,
				Timestamp: time.Now().Unix(),
			}
			if !c.emit(ctx, ev) {
				return
			}
		}
	}
}

func (c *Client) emit(ctx context.Context, ev domain.ClientEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// SendMedia prints a delivery line in place of a real media send.
func (c *Client) SendMedia(_ context.Context, chat, path string) error {
	_, err := fmt.Fprintf(c.out, "[%s] media: %s\n", chat, path)
	return err
}

// SendText prints a reply line in place of a real text send.
func (c *Client) SendText(_ context.Context, chat, message string) error {
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", chat, message)
	return err
}
