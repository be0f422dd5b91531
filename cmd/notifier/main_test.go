package main

import (
	"lending-engine/internal/config"
	"lending-engine/internal/infrastructure/logging"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMetricsServer(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})

	tests := []struct {
		name     string
		cfg      config.MetricsConfig
		wantAddr string
		path     string
	}{
		{"defaults", config.MetricsConfig{}, ":9090", "/metrics"},
		{"configured", config.MetricsConfig{Port: 9191, Path: "/prom"}, ":9191", "/prom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMetricsServer(tt.cfg, logger)

			assert.Equal(t, tt.wantAddr, srv.Addr)
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestSetupSignalHandling(t *testing.T) {
	ctx, cancel := setupSignalHandling()

	assert.NoError(t, ctx.Err())
	cancel()
	assert.Error(t, ctx.Err())
}
