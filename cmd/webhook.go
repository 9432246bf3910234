package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filerelay/pkg/channel/telegram"

	"github.com/spf13/cobra"
)

const webhookCallTimeout = 30 * time.Second

var webhookURL string

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Register the webhook URL with Telegram",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		return withClient(cmd.Context(), func(ctx context.Context, client *telegram.Client, fallbackURL string) error {
			url := webhookURL
			if url == "" {
				url = fallbackURL
			}
			if url == "" {
				return errors.New("webhook url is required (--url or WEBHOOK_URL)")
			}
			if err := client.SetWebhook(ctx, url); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", url)
			return nil
		})
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook so long polling can be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		return withClient(cmd.Context(), func(ctx context.Context, client *telegram.Client, _ string) error {
			if err := client.DeleteWebhook(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		})
	},
}

func init() {
	webhookSetCmd.Flags().StringVar(&webhookURL, "url", "", "public HTTPS URL Telegram should post updates to")
	webhookCmd.AddCommand(webhookSetCmd, webhookDeleteCmd)
	rootCmd.AddCommand(webhookCmd)
}

func withClient(parent context.Context, fn func(ctx context.Context, client *telegram.Client, publicURL string) error) error {
	cfg, log, err := loadConfig("cmd.webhook")
	if err != nil {
		return err
	}

	client, err := telegram.NewClient(cfg.Telegram, log)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, webhookCallTimeout)
	defer cancel()

	return fn(ctx, client, cfg.Gateway.PublicURL)
}
