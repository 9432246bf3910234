package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"filerelay/pkg/channel"
	"filerelay/pkg/channel/telegram"
	"filerelay/pkg/gateway"

	"github.com/spf13/cobra"
)

var registerWebhook bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run webhook mode",
	Long:  "Runs the bot behind an HTTP server that receives Telegram webhook updates, with health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		runGateway("cmd.serve", func(ctx context.Context, rt *runtime) ([]channel.Adapter, error) {
			if registerWebhook && rt.cfg.Gateway.PublicURL != "" {
				if err := rt.client.SetWebhook(ctx, rt.cfg.Gateway.PublicURL); err != nil {
					return nil, err
				}
			}

			return []channel.Adapter{telegram.NewWebhook(rt.cfg.Gateway.WebhookPath, rt.buffer, rt.log)}, nil
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&registerWebhook, "register", true, "register WEBHOOK_URL with Telegram before serving")
	rootCmd.AddCommand(serveCmd)
}

type adapterFactory func(ctx context.Context, rt *runtime) ([]channel.Adapter, error)

// runGateway loads config, builds the command runtime and serves until SIGINT or SIGTERM.
func runGateway(component string, build adapterFactory) {
	cfg, log, err := loadConfig(component)
	if err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Error("Configuration invalid", "error", err)
		return
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(runCtx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize bot", "error", err)
		return
	}
	defer rt.Close()

	adapters, err := build(runCtx, rt)
	if err == nil {
		err = requireAdapters(adapters)
	}
	if err != nil {
		log.Error("Gateway configuration invalid", "error", err)
		return
	}

	svc, err := gateway.NewService(cfg, gateway.Deps{
		Dispatcher: rt.dispatcher,
		Messenger:  rt.client,
		Health:     rt.client,
	}, adapters, log)
	if err != nil {
		log.Error("Failed to initialize gateway service", "error", err)
		return
	}

	log.Info("Gateway started", "channels", enabledChannelNames(adapters), "history", cfg.History.Source, "sessions", cfg.Session.Backend, "storage", cfg.Storage.Default)
	if err := svc.Run(runCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("Gateway runtime failed", "error", err)
	}
}
