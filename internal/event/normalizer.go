// Package event normalizes raw Feishu message payloads.
//
// The transport's payload shape is not contractually fixed: fields arrive
// nested under an "event" key or flat, in snake_case or camelCase. Each
// logical field therefore has an ordered list of candidate gjson paths, tried
// in priority order; the first present candidate wins. Extraction never
// errors: a payload that fails strict validation is simply not a message.
package event

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Event is the canonical record extracted from a raw payload.
type Event struct {
	MessageID string
	ChatID    string
	ChatType  string
	SenderID  string
	Text      string
	Mentions  []string // mentioned open_ids, in payload order
}

// ReceiveMessageType is the Feishu event type for inbound chat messages.
const ReceiveMessageType = "im.message.receive_v1"

var (
	senderTypePaths = []string{"sender.sender_type", "sender.senderType", "event.sender.sender_type", "data.sender.sender_type"}
	senderIDPaths   = []string{"sender.sender_id.open_id", "sender.senderId.openId", "sender.sender_id.openId", "event.sender.sender_id.open_id", "data.sender.sender_id.open_id"}
	messageIDPaths  = []string{"message.message_id", "message.messageId", "event.message.message_id", "data.message.message_id"}
	chatIDPaths     = []string{"message.chat_id", "message.chatId", "event.message.chat_id", "data.message.chat_id"}
	chatTypePaths   = []string{"message.chat_type", "message.chatType", "event.message.chat_type", "data.message.chat_type"}
	contentPaths    = []string{"message.content", "event.message.content", "data.message.content"}
	mentionsPaths   = []string{"message.mentions", "event.message.mentions", "data.message.mentions"}
)

// Normalize extracts a canonical event from a raw payload. The second return
// is false when the payload is not a processable user message: wrong sender
// type, missing required fields, unparseable content, or blank text. None of
// these are errors; they are silently dropped upstream of any side effects.
func Normalize(raw []byte) (Event, bool) {
	if !gjson.ValidBytes(raw) {
		return Event{}, false
	}
	doc := gjson.ParseBytes(raw)

	// Payloads wrap the event body under "event"; some transports hand us
	// the body directly.
	body := doc.Get("event")
	if !body.Exists() {
		body = doc
	}

	if st := first(body, senderTypePaths); st.Exists() && st.String() != "user" {
		return Event{}, false
	}

	senderID := first(body, senderIDPaths).String()
	if senderID == "" {
		return Event{}, false
	}

	messageID := first(body, messageIDPaths).String()
	chatID := first(body, chatIDPaths).String()
	chatType := first(body, chatTypePaths).String()
	if messageID == "" || chatID == "" || chatType == "" {
		return Event{}, false
	}

	// message.content is itself a JSON document serialized into a string:
	// {"text": "..."} for plain text messages.
	contentRaw := first(body, contentPaths)
	if contentRaw.Type != gjson.String {
		return Event{}, false
	}
	if !gjson.Valid(contentRaw.String()) {
		return Event{}, false
	}
	text := strings.TrimSpace(gjson.Get(contentRaw.String(), "text").String())
	if text == "" {
		return Event{}, false
	}

	var mentions []string
	first(body, mentionsPaths).ForEach(func(_, m gjson.Result) bool {
		if id := m.Get("id.open_id").String(); id != "" {
			mentions = append(mentions, id)
		} else if id := m.Get("id.openId").String(); id != "" {
			mentions = append(mentions, id)
		}
		return true
	})

	return Event{
		MessageID: messageID,
		ChatID:    chatID,
		ChatType:  chatType,
		SenderID:  senderID,
		Text:      text,
		Mentions:  mentions,
	}, true
}

// first returns the first existing candidate path under doc.
func first(doc gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// IsDirectChat reports whether chatType names a one-to-one conversation.
// Feishu sends "p2p"; some payload variants use "private".
func IsDirectChat(chatType string) bool {
	return chatType == "p2p" || chatType == "private"
}
