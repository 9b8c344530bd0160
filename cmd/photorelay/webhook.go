package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/memohai/photorelay/internal/boot"
	"github.com/memohai/photorelay/internal/config"
	"github.com/memohai/photorelay/internal/telegram"
)

var webhookURL string

var setWebhookCmd = &cobra.Command{
	Use:   "set-webhook",
	Short: "Register the webhook URL with Telegram",
	Long: `Register the public URL Telegram should POST updates to.
Falls back to telegram.webhook_url from the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg    config.Config
			client *telegram.Client
		)
		app := fx.New(
			boot.Module,
			fx.Supply(boot.ConfigPath(configPath)),
			fx.Populate(&cfg, &client),
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return err
		}
		url := strings.TrimSpace(webhookURL)
		if url == "" {
			url = cfg.Telegram.WebhookURL
		}
		if url == "" {
			return errors.New("webhook url is required (--url or telegram.webhook_url)")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := client.SetWebhook(ctx, url); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", url)
		return nil
	},
}

func init() {
	setWebhookCmd.Flags().StringVar(&webhookURL, "url", "", "Public HTTPS URL of the webhook endpoint")
}
