package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/memohai/photorelay/internal/boot"
	"github.com/memohai/photorelay/internal/config"
	"github.com/memohai/photorelay/internal/relay"
	"github.com/memohai/photorelay/internal/server"
	"github.com/memohai/photorelay/internal/telegram"
	"github.com/memohai/photorelay/internal/upload"
	"github.com/memohai/photorelay/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long:  "Serve the webhook endpoint, or long-poll Telegram when telegram.mode is \"polling\".",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func runServe() {
	fx.New(
		boot.Module,
		fx.Supply(boot.ConfigPath(configPath)),
		fx.Invoke(
			startSweeper,
			startServer,
			startPolling,
		),
	).Run()
}

// startSweeper forces construction of the sweeper so its lifecycle hooks are registered.
func startSweeper(*upload.Sweeper) {}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting photorelay %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server listening", slog.String("addr", srv.Addr()))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func startPolling(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, client *telegram.Client, dispatcher *relay.Dispatcher, shutdowner fx.Shutdowner) {
	if cfg.Telegram.Mode != config.TelegramModePolling {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := client.Poll(ctx, dispatcher.HandleAsync); err != nil {
					logger.Error("polling failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
