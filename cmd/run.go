package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/larkbot/internal/bus"
	"github.com/nextlevelbuilder/larkbot/internal/cache"
	"github.com/nextlevelbuilder/larkbot/internal/config"
	"github.com/nextlevelbuilder/larkbot/internal/dispatch"
	"github.com/nextlevelbuilder/larkbot/internal/feishu"
	"github.com/nextlevelbuilder/larkbot/internal/policy"
	"github.com/nextlevelbuilder/larkbot/internal/providers"
	"github.com/nextlevelbuilder/larkbot/internal/sessions"
)

func runBot() {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "larkbot: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "larkbot: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, cfg.APIBaseURL())

	// Backend selection happens exactly once, here.
	var provider providers.Provider
	if cfg.LLMConfigured() {
		provider = providers.NewOpenAICompatible(
			cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
			cfg.LLM.Temperature, time.Duration(cfg.LLM.TimeoutSec)*time.Second)
	} else {
		provider = providers.NewEcho()
	}
	slog.Info("reply backend selected", "provider", provider.Name())

	filter := policy.New(cfg)
	if cfg.ReplyPolicy == config.ReplyMentionOrDM && cfg.BotOpenID == "" {
		// Without a bot identity, group mentions can never match. Try to
		// resolve it from the platform before falling back to DM-only
		// behavior in groups.
		if openID, err := client.GetBotInfo(ctx); err == nil && openID != "" {
			filter.SetBotOpenID(openID)
			slog.Info("bot open_id resolved", "bot_open_id", openID)
		} else {
			slog.Warn("reply policy is mention_or_dm but no bot open_id is configured or resolvable; group replies will be skipped", "error", err)
		}
	}

	msgBus := bus.New(cfg.Dispatch.QueueSize)
	window := cache.NewWindow(cache.DefaultWindowTTL)
	store := sessions.NewStore(time.Duration(cfg.Conversation.TTLSeconds)*time.Second, cfg.Conversation.MaxTurns)

	channel := feishu.NewChannel(client, cfg.Feishu.AppID, cfg.Feishu.AppSecret, cfg.APIBaseURL(), msgBus)
	dispatcher := dispatch.New(msgBus, window, filter, store, provider, channel, cfg.SystemPrompt, cfg.Dispatch.Workers)

	if err := channel.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "larkbot: start channel: %v\n", err)
		os.Exit(1)
	}
	slog.Info("larkbot started; send the bot a DM in Feishu to test",
		"reply_policy", string(cfg.ReplyPolicy))

	dispatcher.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := channel.Stop(shutdownCtx); err != nil {
		slog.Warn("channel stop failed", "error", err)
	}
	slog.Info("larkbot stopped")
}
