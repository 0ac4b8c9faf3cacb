package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthController_Status(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		state  string
		check  string
	}{
		{"returns healthy when database is connected", stubPinger{}, http.StatusOK, "healthy", "ok"},
		{"reports missing database", nil, http.StatusOK, "healthy", "not configured"},
		{"returns unhealthy when ping fails", stubPinger{err: errors.New("closed")}, http.StatusServiceUnavailable, "unhealthy", "error: closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := NewHealthController(tt.db, "1.0.0")

			router := gin.New()
			router.GET("/health", controller.Status)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/health", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.state, response.Status)
			assert.Equal(t, "1.0.0", response.Version)
			assert.Equal(t, tt.check, response.Checks["database"])
			assert.NotEmpty(t, response.Time)
		})
	}
}

func TestHealthController_Ping(t *testing.T) {
	router := gin.New()
	router.GET("/ping", NewHealthController(nil, "").Ping)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decodeMessage(t, w))
}
