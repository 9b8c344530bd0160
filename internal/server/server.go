package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/photorelay/internal/config"
)

// Handler registers its routes on the echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

const defaultBodyLimit = "1M"

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(log *slog.Logger, cfg config.ServerConfig, handlers ...Handler) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = config.DefaultHTTPAddr
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", redactBotToken(v.URI)),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodPatch, http.MethodDelete, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{
			"X-CSRF-Token", "X-Requested-With", echo.HeaderAccept, "Accept-Version", echo.HeaderContentLength,
			"Content-MD5", echo.HeaderContentType, "Date", "X-Api-Version",
		},
	}))
	e.Use(middleware.BodyLimit(defaultBodyLimit))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}
	return &Server{echo: e, addr: addr}
}

func (s *Server) Addr() string { return s.addr }

// Handler exposes the router for adapters such as the Lambda entrypoint.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start() error { return s.echo.Start(s.addr) }

func (s *Server) Stop(ctx context.Context) error { return s.echo.Shutdown(ctx) }
