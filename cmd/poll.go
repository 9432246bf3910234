package cmd

import (
	"context"
	"fmt"

	"filerelay/pkg/channel"
	"filerelay/pkg/channel/telegram"

	"github.com/spf13/cobra"
)

var keepWebhook bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run long-polling mode",
	Long:  "Receives updates with long polling instead of a webhook. Useful for local development.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		runGateway("cmd.poll", func(ctx context.Context, rt *runtime) ([]channel.Adapter, error) {
			if !keepWebhook {
				// Telegram rejects getUpdates while a webhook is set.
				if err := rt.client.DeleteWebhook(ctx); err != nil {
					return nil, fmt.Errorf("drop webhook before polling: %w", err)
				}
			}

			adapter, err := telegram.NewAdapter(rt.client, rt.buffer, rt.log)
			if err != nil {
				return nil, fmt.Errorf("configure %s channel: %w", "telegram", err)
			}

			return []channel.Adapter{adapter}, nil
		})
	},
}

func init() {
	pollCmd.Flags().BoolVar(&keepWebhook, "keep-webhook", false, "do not delete a registered webhook before polling")
	rootCmd.AddCommand(pollCmd)
}
