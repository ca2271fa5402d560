package policy

import (
	"testing"

	"github.com/nextlevelbuilder/larkbot/internal/config"
)

func newFilter(allowChats, allowUsers []string, rp config.ReplyPolicy, botOpenID string) *Filter {
	cfg := config.Default()
	cfg.AllowChatIDs = allowChats
	cfg.AllowUserOpenIDs = allowUsers
	cfg.ReplyPolicy = rp
	cfg.BotOpenID = botOpenID
	return New(cfg)
}

func TestFilter_Check(t *testing.T) {
	tests := []struct {
		name       string
		filter     *Filter
		chatID     string
		chatType   string
		senderID   string
		mentions   []string
		want       Verdict
	}{
		{
			name:     "dm accepted under dm_only",
			filter:   newFilter(nil, nil, config.ReplyDMOnly, ""),
			chatID:   "c1", chatType: "p2p", senderID: "u1",
			want: Accepted,
		},
		{
			name:     "private synonym accepted",
			filter:   newFilter(nil, nil, config.ReplyDMOnly, ""),
			chatID:   "c1", chatType: "private", senderID: "u1",
			want: Accepted,
		},
		{
			name:     "group rejected under dm_only even with matching mention",
			filter:   newFilter(nil, nil, config.ReplyDMOnly, "ou_bot"),
			chatID:   "c1", chatType: "group", senderID: "u1",
			mentions: []string{"ou_bot"},
			want:     NotDirectChat,
		},
		{
			name:     "group with mention accepted under mention_or_dm",
			filter:   newFilter(nil, nil, config.ReplyMentionOrDM, "ou_bot"),
			chatID:   "c1", chatType: "group", senderID: "u1",
			mentions: []string{"ou_other", "ou_bot"},
			want:     Accepted,
		},
		{
			name:     "group without mention rejected under mention_or_dm",
			filter:   newFilter(nil, nil, config.ReplyMentionOrDM, "ou_bot"),
			chatID:   "c1", chatType: "group", senderID: "u1",
			mentions: []string{"ou_other"},
			want:     BotNotMentioned,
		},
		{
			name:     "group never accepted when bot id unset",
			filter:   newFilter(nil, nil, config.ReplyMentionOrDM, ""),
			chatID:   "c1", chatType: "group", senderID: "u1",
			mentions: []string{"ou_bot"},
			want:     BotNotMentioned,
		},
		{
			name:     "dm accepted unconditionally under mention_or_dm",
			filter:   newFilter(nil, nil, config.ReplyMentionOrDM, ""),
			chatID:   "c1", chatType: "p2p", senderID: "u1",
			want: Accepted,
		},
		{
			name:     "chat allow-list rejects unlisted chat",
			filter:   newFilter([]string{"c1"}, nil, config.ReplyDMOnly, ""),
			chatID:   "c2", chatType: "p2p", senderID: "u1",
			want: ChatNotAllowed,
		},
		{
			name:     "chat allow-list accepts listed chat",
			filter:   newFilter([]string{"c1"}, nil, config.ReplyDMOnly, ""),
			chatID:   "c1", chatType: "p2p", senderID: "u1",
			want: Accepted,
		},
		{
			name:     "sender allow-list rejects unlisted sender",
			filter:   newFilter(nil, []string{"u1"}, config.ReplyDMOnly, ""),
			chatID:   "c1", chatType: "p2p", senderID: "u2",
			want: UserNotAllowed,
		},
		{
			name:     "chat list is checked before sender list",
			filter:   newFilter([]string{"c1"}, []string{"u1"}, config.ReplyDMOnly, ""),
			chatID:   "c2", chatType: "p2p", senderID: "u2",
			want: ChatNotAllowed,
		},
		{
			name:     "empty allow-lists mean unrestricted",
			filter:   newFilter(nil, nil, config.ReplyDMOnly, ""),
			chatID:   "anything", chatType: "p2p", senderID: "anyone",
			want: Accepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Check(tt.chatID, tt.chatType, tt.senderID, tt.mentions)
			if got != tt.want {
				t.Errorf("Check() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_SetBotOpenID(t *testing.T) {
	f := newFilter(nil, nil, config.ReplyMentionOrDM, "")
	f.SetBotOpenID("ou_bot")

	got := f.Check("c1", "group", "u1", []string{"ou_bot"})
	if got != Accepted {
		t.Errorf("Check() after SetBotOpenID = %q, want %q", got, Accepted)
	}

	// Empty resolution must not clobber a configured identity.
	f.SetBotOpenID("")
	if got := f.Check("c1", "group", "u1", []string{"ou_bot"}); got != Accepted {
		t.Errorf("Check() after empty SetBotOpenID = %q, want %q", got, Accepted)
	}
}
