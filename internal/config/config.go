// Package config defines the bot configuration and its load/validate cycle.
// Values come from an optional json5 config file overlaid with environment
// variables; env vars always win.
package config

import (
	"fmt"
	"strings"
)

// ReplyPolicy controls which chats the bot answers in.
type ReplyPolicy string

const (
	// ReplyDMOnly answers direct (one-to-one) chats only.
	ReplyDMOnly ReplyPolicy = "dm_only"
	// ReplyMentionOrDM answers direct chats, and group chats where the bot
	// is explicitly mentioned.
	ReplyMentionOrDM ReplyPolicy = "mention_or_dm"
)

// FeishuConfig holds Feishu/Lark app credentials and connection settings.
type FeishuConfig struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
	// Domain selects the API host: "feishu", "lark" (default), or a full URL.
	Domain string `json:"domain,omitempty"`
}

// LLMConfig holds the OpenAI-compatible reply backend settings.
// When BaseURL, APIKey, or Model is empty the bot falls back to echo replies.
type LLMConfig struct {
	BaseURL     string  `json:"base_url,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TimeoutSec  int     `json:"timeout_sec,omitempty"`
}

// ConversationConfig bounds per-conversation memory.
type ConversationConfig struct {
	TTLSeconds int `json:"ttl_seconds,omitempty"`
	MaxTurns   int `json:"max_turns,omitempty"`
}

// DispatchConfig tunes the inbound processing pool.
type DispatchConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Feishu           FeishuConfig       `json:"feishu"`
	ReplyPolicy      ReplyPolicy        `json:"reply_policy,omitempty"`
	BotOpenID        string             `json:"bot_open_id,omitempty"`
	AllowUserOpenIDs []string           `json:"allow_user_open_ids,omitempty"`
	AllowChatIDs     []string           `json:"allow_chat_ids,omitempty"`
	SystemPrompt     string             `json:"system_prompt,omitempty"`
	Conversation     ConversationConfig `json:"conversation"`
	LLM              LLMConfig          `json:"llm"`
	Dispatch         DispatchConfig     `json:"dispatch"`
}

const defaultSystemPrompt = "You are a helpful engineering assistant chatting inside Feishu. Keep replies concise and actionable."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ReplyPolicy:  ReplyDMOnly,
		SystemPrompt: defaultSystemPrompt,
		Conversation: ConversationConfig{
			TTLSeconds: 3600,
			MaxTurns:   20,
		},
		LLM: LLMConfig{
			Temperature: 0.2,
			TimeoutSec:  60,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 64,
		},
	}
}

// Validate reports fatal configuration errors. Missing credentials and an
// unknown reply policy must stop the process before any connection is made.
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return fmt.Errorf("FEISHU_APP_ID / FEISHU_APP_SECRET are required")
	}
	switch c.ReplyPolicy {
	case ReplyDMOnly, ReplyMentionOrDM:
	default:
		return fmt.Errorf("reply policy must be %q or %q (got: %q)", ReplyDMOnly, ReplyMentionOrDM, c.ReplyPolicy)
	}
	if c.Conversation.TTLSeconds < 1 {
		c.Conversation.TTLSeconds = 1
	}
	if c.Conversation.MaxTurns < 1 {
		c.Conversation.MaxTurns = 1
	}
	if c.LLM.TimeoutSec < 1 {
		c.LLM.TimeoutSec = 60
	}
	if c.Dispatch.Workers < 1 {
		c.Dispatch.Workers = 1
	}
	if c.Dispatch.QueueSize < 1 {
		c.Dispatch.QueueSize = 1
	}
	return nil
}

// LLMConfigured reports whether the reply backend is fully configured.
// Decided once at startup; an incomplete triple means echo fallback.
func (c *Config) LLMConfigured() bool {
	return c.LLM.BaseURL != "" && c.LLM.APIKey != "" && c.LLM.Model != ""
}

// APIBaseURL resolves the Feishu domain shorthand to a full base URL.
func (c *Config) APIBaseURL() string {
	switch c.Feishu.Domain {
	case "feishu":
		return "https://open.feishu.cn"
	case "", "lark":
		return "https://open.larksuite.com"
	default:
		if !strings.HasPrefix(c.Feishu.Domain, "http") {
			return "https://" + c.Feishu.Domain
		}
		return c.Feishu.Domain
	}
}
