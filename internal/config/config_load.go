package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Load reads config from a json5 file, then overlays env vars.
// A missing file is not an error: env-only setups are the common case.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	envStr("FEISHU_APP_ID", &c.Feishu.AppID)
	envStr("FEISHU_APP_SECRET", &c.Feishu.AppSecret)
	envStr("FEISHU_DOMAIN", &c.Feishu.Domain)
	envStr("FEISHU_BOT_OPEN_ID", &c.BotOpenID)
	envStr("BOT_SYSTEM_PROMPT", &c.SystemPrompt)

	if v := strings.TrimSpace(os.Getenv("FEISHU_REPLY_POLICY")); v != "" {
		c.ReplyPolicy = ReplyPolicy(v)
	}

	if v, ok := os.LookupEnv("FEISHU_ALLOW_USER_OPEN_IDS"); ok {
		c.AllowUserOpenIDs = parseCSV(v)
	}
	if v, ok := os.LookupEnv("FEISHU_ALLOW_CHAT_IDS"); ok {
		c.AllowChatIDs = parseCSV(v)
	}

	envInt("CONV_TTL_SECONDS", &c.Conversation.TTLSeconds)
	envInt("CONV_MAX_TURNS", &c.Conversation.MaxTurns)

	envStr("LLM_BASE_URL", &c.LLM.BaseURL)
	envStr("LLM_API_KEY", &c.LLM.APIKey)
	envStr("LLM_MODEL", &c.LLM.Model)
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = f
		}
	}
	envInt("LLM_TIMEOUT_SECONDS", &c.LLM.TimeoutSec)

	envInt("DISPATCH_WORKERS", &c.Dispatch.Workers)
	envInt("DISPATCH_QUEUE_SIZE", &c.Dispatch.QueueSize)
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// parseCSV splits a comma-separated list, trimming blanks.
func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
