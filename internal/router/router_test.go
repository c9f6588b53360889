package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type tokenAuth map[string]*model.Principal

func (a tokenAuth) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, apperrors.Unauthorized("not authorized, token invalid")
}

type protectedStub struct{}

func (protectedStub) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": middleware.PrincipalFrom(c).Role})
	})
}

type mixedStub struct {
	path string
}

func (s mixedStub) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	r.GET(s.path, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET(s.path+"/private", authenticate, func(c *gin.Context) { c.Status(http.StatusOK) })
}

func newTestRouter(t *testing.T, reg *prometheus.Registry, config RouterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := middleware.NewAuthMiddleware(tokenAuth{
		"patient-token": {ID: uuid.New(), Role: model.RolePatient},
	})
	config.Registerer = reg
	r, err := NewRouter(auth, Handlers{
		Auth:        mixedStub{path: "/users"},
		Doctor:      mixedStub{path: "/doctors"},
		Appointment: protectedStub{},
	}, config)
	require.NoError(t, err)
	return r.Engine()
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Guards(t *testing.T) {
	r := newTestRouter(t, prometheus.NewRegistry(), RouterConfig{})

	assert.Equal(t, http.StatusOK, get(r, "/api/doctors", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/doctors/private", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/doctors/private", "patient-token").Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/appointments", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/appointments", "forged").Code)

	w := get(r, "/api/appointments", "patient-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "patient")
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestRouter(t, reg, RouterConfig{MetricsPrefix: "test_http"})

	get(r, "/api/doctors", "")
	get(r, "/api/appointments", "")

	families, err := reg.Gather()
	require.NoError(t, err)

	totals := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				totals[f.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), totals["test_http_requests_total"])
	assert.Equal(t, float64(1), totals["test_http_errors_total"])
}

func TestRouter_RateLimit(t *testing.T) {
	r := newTestRouter(t, prometheus.NewRegistry(), RouterConfig{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusOK, get(r, "/api/doctors", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/doctors", "").Code)
}
