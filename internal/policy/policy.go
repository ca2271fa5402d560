// Package policy decides whether an inbound event is eligible for a reply.
// Every rejection is a silent drop: the sender gets nothing, operators get a
// debug log at the call site.
package policy

import (
	"github.com/nextlevelbuilder/larkbot/internal/config"
	"github.com/nextlevelbuilder/larkbot/internal/event"
)

// Verdict explains why an event was rejected. Used in debug logs only.
type Verdict string

const (
	Accepted        Verdict = "accepted"
	ChatNotAllowed  Verdict = "chat_not_allowed"
	UserNotAllowed  Verdict = "user_not_allowed"
	NotDirectChat   Verdict = "not_direct_chat"
	BotNotMentioned Verdict = "bot_not_mentioned"
)

// Filter applies allow-lists and the reply policy. Empty allow-lists mean
// unrestricted. Immutable after construction.
type Filter struct {
	allowChats  map[string]struct{}
	allowUsers  map[string]struct{}
	replyPolicy config.ReplyPolicy
	botOpenID   string
}

// New builds a filter from configuration.
func New(cfg *config.Config) *Filter {
	return &Filter{
		allowChats:  toSet(cfg.AllowChatIDs),
		allowUsers:  toSet(cfg.AllowUserOpenIDs),
		replyPolicy: cfg.ReplyPolicy,
		botOpenID:   cfg.BotOpenID,
	}
}

// SetBotOpenID installs a bot identity resolved after construction
// (startup probe). Must be called before any Check.
func (f *Filter) SetBotOpenID(id string) {
	if id != "" {
		f.botOpenID = id
	}
}

// Check evaluates the allow-lists, then the reply policy, in that order.
func (f *Filter) Check(chatID, chatType, senderID string, mentions []string) Verdict {
	if len(f.allowChats) > 0 {
		if _, ok := f.allowChats[chatID]; !ok {
			return ChatNotAllowed
		}
	}
	if len(f.allowUsers) > 0 {
		if _, ok := f.allowUsers[senderID]; !ok {
			return UserNotAllowed
		}
	}

	direct := event.IsDirectChat(chatType)
	switch f.replyPolicy {
	case config.ReplyMentionOrDM:
		if direct {
			return Accepted
		}
		// No configured bot identity means group mentions can never match.
		if f.botOpenID == "" {
			return BotNotMentioned
		}
		for _, m := range mentions {
			if m == f.botOpenID {
				return Accepted
			}
		}
		return BotNotMentioned
	default: // dm_only
		if direct {
			return Accepted
		}
		return NotDirectChat
	}
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			s[it] = struct{}{}
		}
	}
	return s
}
