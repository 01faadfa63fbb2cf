package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boardkit-api/internal/config"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		value      string
		wantStatus int
		wantBody   string
	}{
		{"OpenAccessWhenNoTokenSet", "", "", "", http.StatusOK, "go_info"},
		{"UnauthorizedWhenTokenSetAndMissingHeader", "secret-token", "", "", http.StatusUnauthorized, "unauthorized"},
		{"UnauthorizedWhenTokenSetAndHeaderMismatch", "secret-token", telemetry.HeaderMetricsToken, "wrong-token", http.StatusUnauthorized, "unauthorized"},
		{"SuccessWhenTokenSetAndHeaderMatches", "secret-token", telemetry.HeaderMetricsToken, "secret-token", http.StatusOK, "go_gc_duration_seconds"},
		{"SuccessWhenTokenSetAndBearerHeaderMatches", "secret-token", "Authorization", "Bearer secret-token", http.StatusOK, "go_gc_duration_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildRouter(RouterDeps{
				Cfg: &config.Config{MetricsToken: tt.token},
				Log: logger.Nop(),
			})

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusOK {
				assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
			}
		})
	}
}

func TestMetricsEndpoint_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "boardkit_test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	r := buildRouter(RouterDeps{
		Cfg:        &config.Config{},
		Log:        logger.Nop(),
		Prometheus: reg,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "boardkit_test_total 1")
	assert.NotContains(t, w.Body.String(), "go_info")
}
