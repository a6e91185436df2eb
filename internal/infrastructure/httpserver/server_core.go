package httpserver

import (
	"time"

	"github.com/avatarctic/node-cache/internal/core/ports"
	customMiddleware "github.com/avatarctic/node-cache/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// BodyLimit caps request bodies, in echo's size notation (e.g. "10M").
	BodyLimit string
	// MaxBatchSize rejects larger batches; 0 means unlimited.
	MaxBatchSize int
	// BatchConcurrency bounds concurrent calls within one batch; 0 means unbounded.
	BatchConcurrency int
}

type ServerDeps struct {
	QueryService   ports.QueryService
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	queryService   ports.QueryService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		queryService:   deps.QueryService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
			GetRequestsInFlight(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
