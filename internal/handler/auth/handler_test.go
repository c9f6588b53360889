package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error) {
	args := m.Called(ctx, req)
	if r, ok := args.Get(0).(*model.AuthResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Login(ctx context.Context, role model.Role, req *model.LoginRequest) (*model.AuthResult, error) {
	args := m.Called(ctx, role, req)
	if r, ok := args.Get(0).(*model.AuthResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockService) Profile(ctx context.Context, p *model.Principal) (*model.Principal, error) {
	args := m.Called(ctx, p)
	if r, ok := args.Get(0).(*model.Principal); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ForgotPassword(ctx context.Context, addr string) error {
	return m.Called(ctx, addr).Error(0)
}

func (m *MockService) ResetPassword(ctx context.Context, role model.Role, token, newPassword string) error {
	return m.Called(ctx, role, token, newPassword).Error(0)
}

func init() {
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func setupRouter(svc Service, cookie CookieConfig, p *model.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authenticate := func(c *gin.Context) {
		if p == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(middleware.ContextPrincipal, p)
		c.Next()
	}
	NewHandler(svc, cookie).RegisterRoutes(r.Group("/api"), authenticate)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func authCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", middleware.AuthCookie)
	return nil
}

func TestLogin_SetsCookie(t *testing.T) {
	result := &model.AuthResult{
		User:      &model.Principal{ID: uuid.New(), Role: model.RoleDoctor},
		Token:     "signed.jwt.token",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	t.Run("development", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, model.RoleDoctor, &model.LoginRequest{Email: "grey@example.com", Password: "pw"}).Return(result, nil)

		w := post(setupRouter(svc, CookieConfig{}, nil), "/api/doctors/login", `{"email":"grey@example.com","password":"pw"}`)
		require.Equal(t, http.StatusOK, w.Code)

		cookie := authCookie(t, w)
		assert.Equal(t, "signed.jwt.token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.False(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	})

	t.Run("production", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, model.RolePatient, mock.Anything).Return(result, nil)

		w := post(setupRouter(svc, CookieConfig{Secure: true}, nil), "/api/users/login", `{"email":"jane@example.com","password":"pw"}`)
		require.Equal(t, http.StatusOK, w.Code)

		cookie := authCookie(t, w)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	})

	t.Run("admin route logs in as admin", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, model.RoleAdmin, mock.Anything).Return(nil, apperrors.Unauthorized("not authorized as admin"))

		w := post(setupRouter(svc, CookieConfig{}, nil), "/api/admin/login", `{"email":"jane@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})
}

func TestRegister(t *testing.T) {
	svc := new(MockService)
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, apperrors.Conflict("user already exists", nil))

	w := post(setupRouter(svc, CookieConfig{}, nil), "/api/users", `{"name":"Jane","email":"jane@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"user already exists"}`, w.Body.String())

	w = post(setupRouter(svc, CookieConfig{}, nil), "/api/users", `{"name":"Jane","email":"not-an-email","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"email must be a valid email"}`, w.Body.String())
}

func TestLogout_ClearsCookie(t *testing.T) {
	svc := new(MockService)
	svc.On("Logout", mock.Anything, "tok").Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "tok"})
	setupRouter(svc, CookieConfig{}, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := authCookie(t, w)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
	svc.AssertExpectations(t)
}

func TestResetPassword_RoutesByRole(t *testing.T) {
	svc := new(MockService)
	svc.On("ResetPassword", mock.Anything, model.RoleDoctor, "abc", "N3w!pass").Return(nil)
	svc.On("ResetPassword", mock.Anything, model.RolePatient, "abc", "newpass").Return(apperrors.BadRequest("invalid or expired reset token", nil))

	r := setupRouter(svc, CookieConfig{}, nil)

	w := post(r, "/api/doctors/resetPassword/abc", `{"newPassword":"N3w!pass"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/api/users/resetPassword/abc", `{"newPassword":"newpass"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired reset token")
}

func TestProfile(t *testing.T) {
	patient := &model.Principal{ID: uuid.New(), Role: model.RolePatient, Name: "Jane", Email: "jane@example.com"}
	svc := new(MockService)
	svc.On("Profile", mock.Anything, patient).Return(patient, nil)

	r := setupRouter(svc, CookieConfig{}, patient)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/profile", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"jane@example.com"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestForgotPassword(t *testing.T) {
	svc := new(MockService)
	svc.On("ForgotPassword", mock.Anything, "ghost@example.com").Return(nil)

	w := post(setupRouter(svc, CookieConfig{}, nil), "/api/users/forgotPassword", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
