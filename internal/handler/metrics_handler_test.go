package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/coursework-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	r := newTestRouter(nil)
	r.GET("/ready", h.Ready)
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Prometheus)

	rec := doRequest(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "dial tcp: refused")

	assert.Equal(t, http.StatusOK, doRequest(t, r, http.MethodGet, "/health", nil).Code)
	metrics := doRequest(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "goroutines_total")
}
