package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/larkbot/internal/config"
	"github.com/nextlevelbuilder/larkbot/internal/feishu"
)

// doctorCmd verifies Feishu credentials: token issuance and bot identity.
// Useful before first run to distinguish credential problems from connection
// problems.
func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify Feishu credentials and bot identity",
		Run: func(cmd *cobra.Command, args []string) {
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

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, cfg.APIBaseURL())

			if _, err := client.GetTenantAccessToken(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "tenant_access_token: FAIL (%v)\n", err)
				os.Exit(1)
			}
			cmd.Println("tenant_access_token: OK")

			openID, err := client.GetBotInfo(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bot info: FAIL (%v)\n", err)
				os.Exit(1)
			}
			cmd.Printf("bot info: OK (open_id=%s)\n", openID)

			if cfg.LLMConfigured() {
				cmd.Printf("reply backend: %s (%s)\n", cfg.LLM.Model, cfg.LLM.BaseURL)
			} else {
				cmd.Println("reply backend: not configured, echo fallback")
			}
		},
	}
}
