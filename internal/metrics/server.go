package metrics

import (
	"context"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultPort = "8081"

// Server exposes the Prometheus instruments over HTTP. Any path serves
// the text exposition format; /healthz answers a liveness probe.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
}

// NewServer builds the statistics endpoint. The listen port comes from
// the PORT environment variable, default 8081.
func NewServer(logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.Any("/*", echo.WrapHandler(promhttp.Handler()))

	return &Server{echo: e, logger: logger}
}

// Port returns the configured listen port.
func Port() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return defaultPort
}

// Start serves until Shutdown is called. It blocks.
func (s *Server) Start() error {
	addr := ":" + Port()
	s.logger.Info("statistics server listening", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
