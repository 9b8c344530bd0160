package boot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/photorelay/internal/config"
	"github.com/memohai/photorelay/internal/email"
	emailgeneric "github.com/memohai/photorelay/internal/email/adapters/generic"
	emailmailgun "github.com/memohai/photorelay/internal/email/adapters/mailgun"
	"github.com/memohai/photorelay/internal/handlers"
	"github.com/memohai/photorelay/internal/logger"
	"github.com/memohai/photorelay/internal/media"
	"github.com/memohai/photorelay/internal/relay"
	"github.com/memohai/photorelay/internal/server"
	"github.com/memohai/photorelay/internal/telegram"
	"github.com/memohai/photorelay/internal/upload"
)

// ConfigPath is the TOML file the application loads. Empty means CONFIG_PATH or the default.
type ConfigPath string

// Module provides every component of the relay. Callers add their own invokes.
var Module = fx.Options(
	fx.Provide(
		ProvideConfig,
		ProvideLogger,
		ProvideTelegramClient,
		ProvideEmailRegistry,
		email.NewService,
		ProvideFetcher,
		ProvidePhotoMailer,
		ProvideStore,
		ProvideHistory,
		ProvideCoordinator,
		ProvideDispatcher,
		ProvideSweeper,
		ProvideServerHandler(handlers.NewPingHandler),
		ProvideServerHandler(ProvideWebhookHandler),
		ProvideServer,
	),
	fx.Provide(
		func(cfg config.Config) config.EmailConfig { return cfg.Email },
	),
	fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
	}),
)

func ProvideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func ProvideConfig(path ConfigPath) (config.Config, error) {
	cfgPath := strings.TrimSpace(string(path))
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func ProvideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func ProvideTelegramClient(log *slog.Logger, cfg config.Config) *telegram.Client {
	return telegram.NewClient(log, cfg.Telegram.BotToken)
}

func ProvideEmailRegistry(log *slog.Logger) *email.Registry {
	reg := email.NewRegistry()
	reg.Register(emailgeneric.New(log))
	reg.Register(emailmailgun.New(log))
	return reg
}

func ProvideFetcher(log *slog.Logger, cfg config.Config) *media.Fetcher {
	return media.NewFetcher(log, cfg.Download.TimeoutDuration(), cfg.Download.MaxBytes)
}

func ProvidePhotoMailer(log *slog.Logger, fetcher *media.Fetcher, service *email.Service) *email.PhotoMailer {
	return email.NewPhotoMailer(log, fetcher, service)
}

func ProvideStore(cfg config.Config) (*upload.MemoryStore, error) {
	gen, err := upload.NewIDGenerator(cfg.Sessions.IDFormat)
	if err != nil {
		return nil, err
	}
	return upload.NewMemoryStore(upload.WithIDGenerator(gen)), nil
}

func ProvideHistory(cfg config.Config) *upload.History {
	return upload.NewHistory(cfg.Sessions.HistoryLimit)
}

func ProvideCoordinator(log *slog.Logger, store *upload.MemoryStore, history *upload.History, mailer *email.PhotoMailer) *upload.Coordinator {
	return upload.NewCoordinator(log, store, history, mailer)
}

func ProvideDispatcher(log *slog.Logger, client *telegram.Client, coordinator *upload.Coordinator) *relay.Dispatcher {
	return relay.NewDispatcher(log, client, client, coordinator)
}

// ProvideSweeper ties the optional TTL sweep to the application lifecycle.
func ProvideSweeper(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, store *upload.MemoryStore) (*upload.Sweeper, error) {
	sweeper, err := upload.NewSweeper(log, store, cfg.Sessions.TTLDuration(), cfg.Sessions.SweepSchedule)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { sweeper.Start(); return nil },
		OnStop:  sweeper.Stop,
	})
	return sweeper, nil
}

func ProvideWebhookHandler(log *slog.Logger, cfg config.Config, dispatcher *relay.Dispatcher, coordinator *upload.Coordinator, service *email.Service) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, cfg, dispatcher, coordinator, service.Provider())
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func ProvideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server, params.ServerHandlers...)
}
