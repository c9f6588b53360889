package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"app error", apperrors.Conflict("this time slot is already booked", nil), http.StatusConflict,
			`{"status":"error","message":"this time slot is already booked"}`},
		{"internal detail hidden", apperrors.Internal(errors.New("pq: connection refused")), http.StatusInternalServerError,
			`{"status":"error","message":"internal server error"}`},
		{"plain error", errors.New("boom"), http.StatusInternalServerError,
			`{"status":"error","message":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { RespondError(c, tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	var dbErr error
	h := NewHealth(prometheus.NewRegistry(), map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error { return dbErr }),
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, get("/api/health/live").Code)
	assert.Equal(t, http.StatusOK, get("/api/health/ready").Code)
	assert.Equal(t, http.StatusOK, get("/api/health/metrics").Code)

	dbErr = errors.New("down")
	w := get("/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database unavailable")
}
