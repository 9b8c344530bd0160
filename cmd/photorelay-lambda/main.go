// Command photorelay-lambda serves the webhook endpoint from AWS Lambda behind an
// API Gateway HTTP API or a function URL.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/fx"

	"github.com/memohai/photorelay/internal/boot"
	"github.com/memohai/photorelay/internal/server"
	"github.com/memohai/photorelay/internal/upload"
)

type proxyFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

func main() {
	var (
		srv     *server.Server
		sweeper *upload.Sweeper
	)
	app := fx.New(
		boot.Module,
		fx.Supply(boot.ConfigPath("")),
		fx.Populate(&srv, &sweeper),
	)
	if err := app.Start(context.Background()); err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}

	adapter := httpadapter.NewV2(srv.Handler())
	lambda.Start(sweepBefore(sweeper, adapter.ProxyWithContext))
}

// sweepBefore evicts expired sessions on every invocation. The cron job only runs while
// the execution environment is thawed, so it cannot be relied on here.
func sweepBefore(sweeper *upload.Sweeper, next proxyFunc) proxyFunc {
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		sweeper.SweepOnce()
		return next(ctx, req)
	}
}
