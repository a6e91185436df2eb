package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    string                      `json:"timestamp"`
	Mode         string                      `json:"mode"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// healthCheck runs every checker under one deadline. Any failing dependency
// turns the service degraded and the reply into a 503 carrying the cause.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Mode:         "proxy",
		Dependencies: make(map[string]dependencyStatus, len(s.healthCheckers)),
	}
	if s.queryService == nil || s.queryService.ReplayOnly() {
		resp.Mode = "replay"
	}
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			resp.Dependencies[hc.Name()] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[hc.Name()] = dependencyStatus{Status: "healthy"}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
