package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "photorelay",
	Short: "Telegram photo to email relay",
	Long: `photorelay is a Telegram bot that replies to photos with their download link
and can forward them to an email inbox as attachments.

Examples:
  photorelay serve
  photorelay serve --config /etc/photorelay/config.toml
  photorelay set-webhook --url https://relay.example.com/api/bot
  photorelay providers`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the TOML config file (defaults to CONFIG_PATH or config.toml)")
	rootCmd.AddCommand(serveCmd, setWebhookCmd, providersCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
