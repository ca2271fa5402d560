package feishu

import (
	"context"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/nextlevelbuilder/larkbot/internal/bus"
	"github.com/nextlevelbuilder/larkbot/internal/event"
)

// Channel connects the Feishu long connection to the message bus. The read
// loop extracts and validates synchronously, publishes, and returns; all
// slow work happens on the dispatcher side of the bus.
type Channel struct {
	client   *Client
	wsClient *WSClient
	bus      *bus.MessageBus
}

// NewChannel creates a Feishu channel over an existing API client.
func NewChannel(client *Client, appID, appSecret, baseURL string, msgBus *bus.MessageBus) *Channel {
	c := &Channel{
		client: client,
		bus:    msgBus,
	}
	c.wsClient = NewWSClient(appID, appSecret, baseURL, c)
	return c
}

// Start begins receiving events. Non-blocking after setup.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting feishu long-connection bot")
	go func() {
		if err := c.wsClient.Start(ctx); err != nil {
			slog.Error("feishu websocket error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the channel down.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping feishu bot")
	c.wsClient.Stop()
	return nil
}

// SendText delivers an outbound reply to a chat.
func (c *Channel) SendText(ctx context.Context, chatID, text string) error {
	return c.client.SendText(ctx, chatID, text)
}

// HandleEvent processes one pushed event payload. Non-message events and
// non-normalizable payloads are dropped without error.
func (c *Channel) HandleEvent(_ context.Context, payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	eventType := gjson.GetBytes(payload, "header.event_type").String()
	if eventType != event.ReceiveMessageType {
		slog.Debug("feishu event ignored", "event_type", eventType)
		return nil
	}

	ev, ok := event.Normalize(payload)
	if !ok {
		slog.Debug("feishu event not normalizable")
		return nil
	}

	c.bus.PublishInbound(bus.InboundMessage{
		MessageID: ev.MessageID,
		ChatID:    ev.ChatID,
		ChatType:  ev.ChatType,
		SenderID:  ev.SenderID,
		Text:      ev.Text,
		Mentions:  ev.Mentions,
	})
	return nil
}
