// Package dispatch orchestrates one conversation turn per accepted event.
//
// The event connection's read loop publishes normalized messages to the bus
// and returns immediately; a fixed pool of workers consumes them here.
// Ordering across different conversations is unspecified. Within one
// conversation, ordering relies on human typing cadence: a rapid
// double-send to the same key can interleave history reads and writes.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/larkbot/internal/bus"
	"github.com/nextlevelbuilder/larkbot/internal/cache"
	"github.com/nextlevelbuilder/larkbot/internal/policy"
	"github.com/nextlevelbuilder/larkbot/internal/providers"
	"github.com/nextlevelbuilder/larkbot/internal/sessions"
)

// Sender delivers a reply to a chat. Errors are logged, never retried.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Dispatcher consumes inbound messages and runs the turn pipeline:
// dedup → filter → history → record user turn → generate → record reply → send.
type Dispatcher struct {
	bus          *bus.MessageBus
	window       *cache.Window
	filter       *policy.Filter
	store        *sessions.Store
	provider     providers.Provider
	sender       Sender
	systemPrompt string
	workers      int
}

// New wires a dispatcher. The dedup window and session store are owned by
// the caller and passed in; the dispatcher holds no other state.
func New(b *bus.MessageBus, w *cache.Window, f *policy.Filter, s *sessions.Store, p providers.Provider, sender Sender, systemPrompt string, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		bus:          b,
		window:       w,
		filter:       f,
		store:        s,
		provider:     p,
		sender:       sender,
		systemPrompt: systemPrompt,
		workers:      workers,
	}
}

// Run consumes the bus until ctx is cancelled. Blocks until all workers exit.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, ok := d.bus.ConsumeInbound(ctx)
				if !ok {
					return
				}
				d.Handle(ctx, msg)
			}
		}()
	}
	wg.Wait()
}

// Handle processes a single inbound message through the full turn pipeline.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) {
	// Dedup first, before any side effects. Remember-on-check means a
	// concurrent redelivery of the same ID is dropped even while this
	// attempt is still generating.
	if d.window.CheckAndRemember(msg.MessageID) {
		slog.Debug("duplicate message dropped", "message_id", msg.MessageID)
		return
	}

	if v := d.filter.Check(msg.ChatID, msg.ChatType, msg.SenderID, msg.Mentions); v != policy.Accepted {
		slog.Debug("message rejected by policy",
			"message_id", msg.MessageID,
			"chat_id", msg.ChatID,
			"sender_id", msg.SenderID,
			"verdict", string(v))
		return
	}

	turnID := uuid.NewString()
	key := sessions.Key(msg.ChatID, msg.SenderID)
	history := d.store.History(key)

	// The user's turn is recorded before the reply attempt: whatever happens
	// downstream, the next turn carries what the user actually said.
	d.store.Append(key, providers.Message{Role: "user", Content: msg.Text})

	start := time.Now()
	reply, err := d.provider.Chat(ctx, d.systemPrompt, history, msg.Text)
	if err != nil {
		slog.Error("reply generation failed",
			"turn_id", turnID,
			"provider", d.provider.Name(),
			"chat_id", msg.ChatID,
			"error", err)
		reply = "handler error: " + err.Error()
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = "(empty reply)"
	}

	d.store.Append(key, providers.Message{Role: "assistant", Content: reply})

	slog.Debug("turn completed",
		"turn_id", turnID,
		"chat_id", msg.ChatID,
		"sender_id", msg.SenderID,
		"duration_ms", time.Since(start).Milliseconds())

	if err := d.sender.SendText(ctx, msg.ChatID, reply); err != nil {
		// The reply stays recorded: the next turn carries correct context
		// whether or not this delivery made it out.
		slog.Error("reply delivery failed",
			"turn_id", turnID,
			"chat_id", msg.ChatID,
			"error", err)
	}
}
