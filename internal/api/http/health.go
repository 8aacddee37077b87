package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency. A nil Check reports the dependency as disabled.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	probes      []Probe
	timeout     time.Duration
}

func NewHealthHandler(serviceName, version string, probes ...Probe) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes:      probes,
		timeout:     1 * time.Second,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(h.probes))

	for _, p := range h.probes {
		if p.Check == nil {
			components[p.Name] = "disabled"
			continue
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := p.Check(pingCtx)
		cancel()

		if err != nil {
			components[p.Name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			components[p.Name] = "up"
		}
	}

	c.JSON(code, HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Service:    h.serviceName,
		Version:    h.version,
		Components: components,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
