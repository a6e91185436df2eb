package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Start blocks serving requests. It returns nil after Shutdown.
// The listener is echo's own server so that Shutdown reaches it.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := s.Addr()

	var err error
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.applyTimeouts(s.echo.TLSServer)
		s.logger.Infof("Starting HTTPS server on %s", addr)
		err = s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		s.applyTimeouts(s.echo.Server)
		s.echo.Server.Addr = addr
		s.logger.Infof("Starting HTTP server on %s", addr)
		err = s.echo.StartServer(s.echo.Server)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) applyTimeouts(server *http.Server) {
	server.ReadTimeout = s.config.ReadTimeout
	server.WriteTimeout = s.config.WriteTimeout
	server.IdleTimeout = s.config.IdleTimeout
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)
}

// ListenAddr is the bound address once Start is listening, or empty before.
func (s *Server) ListenAddr() string {
	if addr := s.echo.ListenerAddr(); addr != nil {
		return addr.String()
	}
	if addr := s.echo.TLSListenerAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
