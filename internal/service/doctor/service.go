package doctor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	msgWeakPassword = "password must be at least 6 characters and include an uppercase letter, a number and a special character"
	msgEmailTaken   = "doctor with this email already exists"
)

// Credentials issues set-password tokens and drops cached sessions. It is
// satisfied by the auth service.
type Credentials interface {
	IssueResetToken(ctx context.Context, id uuid.UUID, role model.Role, ttl time.Duration) (string, error)
	Forget(role model.Role, id uuid.UUID)
}

type Service struct {
	repo           repository.DoctorRepository
	hasher         security.PasswordHasher
	credentials    Credentials
	mailer         email.Service
	setPasswordTTL time.Duration
	log            zerolog.Logger
}

func NewService(
	repo repository.DoctorRepository,
	hasher security.PasswordHasher,
	credentials Credentials,
	mailer email.Service,
	setPasswordTTL time.Duration,
	log zerolog.Logger,
) *Service {
	if setPasswordTTL <= 0 {
		setPasswordTTL = 24 * time.Hour
	}
	return &Service{
		repo:           repo,
		hasher:         hasher,
		credentials:    credentials,
		mailer:         mailer,
		setPasswordTTL: setPasswordTTL,
		log:            log.With().Str("service", "doctor").Logger(),
	}
}

func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}
	return doctors, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Doctor, error) {
	doctorID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NotFound("doctor", err)
	}
	return s.load(ctx, doctorID)
}

// Create adds a doctor account and mails them a link to choose their own
// password. A mail failure does not undo the account.
func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	name := strings.TrimSpace(req.Name)
	specialty := strings.TrimSpace(req.Specialty)
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || specialty == "" || addr == "" || req.Password == "" {
		return nil, apperrors.BadRequest("please provide name, specialty, email, and password", nil)
	}
	if !security.IsStrongPassword(req.Password) {
		return nil, apperrors.BadRequest(msgWeakPassword, nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	doctor := &model.Doctor{
		Name:         name,
		Specialty:    specialty,
		Email:        addr,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(msgEmailTaken, err)
		}
		return nil, apperrors.Internal(err)
	}

	s.sendCredentials(ctx, doctor)
	return doctor, nil
}

// Update applies the fields present in req.
func (s *Service) Update(ctx context.Context, id string, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			doctor.Name = name
		}
	}
	if req.Specialty != nil {
		if specialty := strings.TrimSpace(*req.Specialty); specialty != "" {
			doctor.Specialty = specialty
		}
	}
	if req.Email != nil {
		if addr := strings.ToLower(strings.TrimSpace(*req.Email)); addr != "" {
			doctor.Email = addr
		}
	}
	if req.Password != nil && *req.Password != "" {
		if !security.IsStrongPassword(*req.Password) {
			return nil, apperrors.BadRequest(msgWeakPassword, nil)
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		doctor.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.Conflict(msgEmailTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.credentials.Forget(model.RoleDoctor, doctor.ID)
	return doctor, nil
}

// Delete removes the doctor; their appointments go with them.
func (s *Service) Delete(ctx context.Context, id string) error {
	doctorID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.NotFound("doctor", err)
	}
	if err := s.repo.Delete(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("doctor", err)
		}
		return apperrors.Internal(err)
	}
	s.credentials.Forget(model.RoleDoctor, doctorID)
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func (s *Service) sendCredentials(ctx context.Context, doctor *model.Doctor) {
	token, err := s.credentials.IssueResetToken(ctx, doctor.ID, model.RoleDoctor, s.setPasswordTTL)
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctor.ID.String()).Msg("Failed to issue set-password token")
		return
	}
	if err := s.mailer.SendDoctorCredentials(ctx, doctor.Email, doctor.Name, token); err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctor.ID.String()).Msg("Failed to send doctor credentials email")
	}
}
