package doctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	args := m.Called(ctx, doctor)
	if args.Error(0) == nil {
		doctor.ID = uuid.New()
		doctor.Role = model.RoleDoctor
	}
	return args.Error(0)
}

func (m *MockDoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDoctorRepository) GetByEmail(ctx context.Context, addr string) (*model.Doctor, error) {
	args := m.Called(ctx, addr)
	if d, ok := args.Get(0).(*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDoctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockDoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	args := m.Called(ctx)
	if d, ok := args.Get(0).([]*model.Doctor); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) IssueResetToken(ctx context.Context, id uuid.UUID, role model.Role, ttl time.Duration) (string, error) {
	args := m.Called(ctx, id, role, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockCredentials) Forget(role model.Role, id uuid.UUID) {
	m.Called(role, id)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendDoctorCredentials(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

func (m *MockMailer) SendAppointmentNotice(ctx context.Context, to string, notice email.AppointmentNotice) error {
	return m.Called(ctx, to, notice).Error(0)
}

type mocks struct {
	repo   *MockDoctorRepository
	creds  *MockCredentials
	mailer *MockMailer
	hasher security.PasswordHasher
}

func setup() (*Service, *mocks) {
	m := &mocks{
		repo:   new(MockDoctorRepository),
		creds:  new(MockCredentials),
		mailer: new(MockMailer),
		hasher: security.NewBcryptHasher(bcrypt.MinCost),
	}
	return NewService(m.repo, m.hasher, m.creds, m.mailer, time.Hour, zerolog.Nop()), m
}

func validRequest() *model.CreateDoctorRequest {
	return &model.CreateDoctorRequest{
		Name:      "Meredith Grey",
		Specialty: "Surgery",
		Email:     "Grey@Example.com",
		Password:  "Passw0rd!",
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("success sends credentials", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Create", ctx, mock.AnythingOfType("*model.Doctor")).Return(nil)
		m.creds.On("IssueResetToken", ctx, mock.Anything, model.RoleDoctor, time.Hour).Return("tok", nil)
		m.mailer.On("SendDoctorCredentials", ctx, "grey@example.com", "Meredith Grey", "tok").Return(nil)

		doctor, err := svc.Create(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, "grey@example.com", doctor.Email)
		assert.NoError(t, m.hasher.Compare(doctor.PasswordHash, "Passw0rd!"))
		m.mailer.AssertExpectations(t)
	})

	t.Run("mail failure is not fatal", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Create", ctx, mock.Anything).Return(nil)
		m.creds.On("IssueResetToken", ctx, mock.Anything, model.RoleDoctor, time.Hour).Return("tok", nil)
		m.mailer.On("SendDoctorCredentials", ctx, mock.Anything, mock.Anything, "tok").Return(errors.New("smtp down"))

		_, err := svc.Create(ctx, validRequest())
		assert.NoError(t, err)
	})

	t.Run("weak password", func(t *testing.T) {
		svc, m := setup()
		req := validRequest()
		req.Password = "password"

		_, err := svc.Create(ctx, req)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
		m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

		_, err := svc.Create(ctx, validRequest())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
		m.mailer.AssertNotCalled(t, "SendDoctorCredentials", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, m := setup()
	id := uuid.New()
	m.repo.On("Get", ctx, id).Return(nil, repository.ErrNotFound)

	_, err := svc.Get(ctx, id.String())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestList_EmptyIsNotNil(t *testing.T) {
	ctx := context.Background()
	svc, m := setup()
	m.repo.On("List", ctx).Return(nil, nil)

	doctors, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doctors)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	existing := func() *model.Doctor {
		return &model.Doctor{Base: model.Base{ID: id}, Name: "Old", Specialty: "ENT", Email: "old@example.com", PasswordHash: "h"}
	}

	t.Run("partial", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Get", ctx, id).Return(existing(), nil)
		m.repo.On("Update", ctx, mock.AnythingOfType("*model.Doctor")).Return(nil)
		m.creds.On("Forget", model.RoleDoctor, id).Return()

		specialty := "Cardiology"
		doctor, err := svc.Update(ctx, id.String(), &model.UpdateDoctorRequest{Specialty: &specialty})
		require.NoError(t, err)
		assert.Equal(t, "Old", doctor.Name)
		assert.Equal(t, "Cardiology", doctor.Specialty)
		assert.Equal(t, "h", doctor.PasswordHash)
		m.creds.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Get", ctx, id).Return(existing(), nil)
		m.repo.On("Update", ctx, mock.Anything).Return(repository.ErrDuplicate)

		addr := "taken@example.com"
		_, err := svc.Update(ctx, id.String(), &model.UpdateDoctorRequest{Email: &addr})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
	})

	t.Run("weak password", func(t *testing.T) {
		svc, m := setup()
		m.repo.On("Get", ctx, id).Return(existing(), nil)

		pw := "abcdef"
		_, err := svc.Update(ctx, id.String(), &model.UpdateDoctorRequest{Password: &pw})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
		m.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	svc, m := setup()
	m.repo.On("Delete", ctx, id).Return(nil).Once()
	m.creds.On("Forget", model.RoleDoctor, id).Return()
	require.NoError(t, svc.Delete(ctx, id.String()))

	m.repo.On("Delete", ctx, id).Return(repository.ErrNotFound).Once()
	err := svc.Delete(ctx, id.String())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}
