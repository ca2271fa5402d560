// Package sessions keeps short-lived, turn-bounded conversation history.
//
// A conversation is one (chat, sender) pair. Session keys follow the
// canonical format:
//
//	{chatId}:{senderOpenId}
//
// The derivation is order-sensitive: swapping the arguments yields a
// different key, so distinct (chat, user) pairs never alias.
package sessions

import "fmt"

// Key builds the canonical conversation key for a chat and sender.
func Key(chatID, senderID string) string {
	return fmt.Sprintf("%s:%s", chatID, senderID)
}
