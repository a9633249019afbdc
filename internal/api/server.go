// Package api serves the catalog over HTTP with echo.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"storefront/internal/catalog"
	"storefront/pkg/netutil"
)

// Options configures the HTTP surface.
type Options struct {
	StaticDir string
	BodyLimit string
}

type Server struct {
	echo *echo.Echo
}

// New builds the echo instance with middleware, error handling and routes.
func New(svc *catalog.Service, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	v := NewValidator(svc)
	e.Validator = v
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAccept, echo.HeaderContentType, echo.HeaderOrigin, echo.HeaderXRequestedWith},
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("Request handled")
			return nil
		},
	}))
	if opts.StaticDir != "" {
		e.Use(middleware.Static(opts.StaticDir))
	}

	registerRoutes(e, svc, v)
	return &Server{echo: e}
}

// ServeHTTP lets the server be used as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the first free port from basePort upwards. It blocks
// until the server stops.
func (s *Server) Start(basePort int) error {
	port := netutil.FindAvailablePort(basePort, "Catalog HTTP")
	logrus.WithField("port", port).Info("Starting Catalog HTTP server")
	if err := s.echo.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
