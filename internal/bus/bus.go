// Package bus carries normalized messages between the event connection and
// the dispatcher. Publishing never blocks the caller: the event transport's
// read loop must stay responsive to control traffic regardless of how slow
// reply generation is.
package bus

import (
	"context"
	"log/slog"
)

// InboundMessage is a normalized inbound chat event.
type InboundMessage struct {
	MessageID string   `json:"message_id"`
	ChatID    string   `json:"chat_id"`
	ChatType  string   `json:"chat_type"` // "p2p", "private", or "group"
	SenderID  string   `json:"sender_id"`
	Text      string   `json:"text"`
	Mentions  []string `json:"mentions,omitempty"` // mentioned open_ids
}

// OutboundMessage is a reply to be delivered to a chat.
type OutboundMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// MessageBus is a bounded in-process queue of inbound messages.
type MessageBus struct {
	inbound chan InboundMessage
}

// New creates a bus with the given inbound queue capacity.
func New(queueSize int) *MessageBus {
	if queueSize < 1 {
		queueSize = 1
	}
	return &MessageBus{inbound: make(chan InboundMessage, queueSize)}
}

// PublishInbound enqueues a message without blocking. When the queue is full
// the message is dropped with a warning; at-least-once transports will
// redeliver, and dedup handles the replay.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound queue full, dropping message",
			"message_id", msg.MessageID, "chat_id", msg.ChatID)
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
// The second return is false when ctx is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}
