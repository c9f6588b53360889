package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context) ([]*model.Doctor, error) {
	args := m.Called(ctx)
	if d, ok := args.Get(0).([]*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id string) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	args := m.Called(ctx, req)
	if d, ok := args.Get(0).(*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	args := m.Called(ctx, id, req)
	if d, ok := args.Get(0).(*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func init() {
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func setupRouter(svc Service, p *model.Principal) *gin.Engine {
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
	NewHandler(svc).RegisterRoutes(r.Group("/api"), authenticate)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPublicReads(t *testing.T) {
	id := uuid.New()
	doctor := &model.Doctor{Base: model.Base{ID: id}, Name: "Meredith Grey", Specialty: "Surgery", PasswordHash: "secret-hash", Role: model.RoleDoctor}

	svc := new(MockService)
	svc.On("List", mock.Anything).Return([]*model.Doctor{doctor}, nil)
	svc.On("Get", mock.Anything, id.String()).Return(doctor, nil)
	svc.On("Get", mock.Anything, "missing").Return(nil, apperrors.NotFound("doctor", nil))

	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/doctors", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Meredith Grey")
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w = do(r, http.MethodGet, "/api/doctors/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/doctors/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"doctor not found"}`, w.Body.String())
}

func TestCreateDoctor(t *testing.T) {
	admin := &model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	body := `{"name":"Meredith Grey","specialty":"Surgery","email":"grey@example.com","password":"Passw0rd!"}`

	t.Run("admin", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.AnythingOfType("*model.CreateDoctorRequest")).
			Return(&model.Doctor{Base: model.Base{ID: uuid.New()}, Name: "Meredith Grey"}, nil)

		w := do(setupRouter(svc, admin), http.MethodPost, "/api/doctors", body)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("weak password rejected at binding", func(t *testing.T) {
		svc := new(MockService)
		w := do(setupRouter(svc, admin), http.MethodPost, "/api/doctors",
			`{"name":"Meredith Grey","specialty":"Surgery","email":"grey@example.com","password":"password"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("patient forbidden", func(t *testing.T) {
		svc := new(MockService)
		w := do(setupRouter(svc, &model.Principal{ID: uuid.New(), Role: model.RolePatient}), http.MethodPost, "/api/doctors", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		svc := new(MockService)
		w := do(setupRouter(svc, nil), http.MethodPost, "/api/doctors", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	admin := &model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	id := uuid.New().String()

	svc := new(MockService)
	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req *model.UpdateDoctorRequest) bool {
		return req.Specialty != nil && *req.Specialty == "Cardiology" && req.Name == nil
	})).Return(&model.Doctor{Specialty: "Cardiology"}, nil)
	svc.On("Delete", mock.Anything, id).Return(nil)

	r := setupRouter(svc, admin)

	w := do(r, http.MethodPatch, "/api/doctors/"+id, `{"specialty":"Cardiology"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/api/doctors/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
