package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const msgInvalidCredentials = "invalid credentials"

var errInvalidResetToken = apperrors.BadRequest("invalid or expired reset token", nil)

type Options struct {
	// ProfileCacheTTL bounds how long a resolved principal is reused.
	ProfileCacheTTL time.Duration
	ResetTokenTTL   time.Duration
}

type Service struct {
	users   repository.UserRepository
	doctors repository.DoctorRepository
	tokens  repository.TokenStore
	jwtSvc  jwtauth.JWTService
	hasher  security.PasswordHasher
	mailer  email.Service
	cache   *cache.Cache
	opts    Options
}

func NewService(
	users repository.UserRepository,
	doctors repository.DoctorRepository,
	tokens repository.TokenStore,
	jwtSvc jwtauth.JWTService,
	hasher security.PasswordHasher,
	mailer email.Service,
	opts Options,
) *Service {
	if opts.ProfileCacheTTL <= 0 {
		opts.ProfileCacheTTL = 30 * time.Second
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &Service{
		users:   users,
		doctors: doctors,
		tokens:  tokens,
		jwtSvc:  jwtSvc,
		hasher:  hasher,
		mailer:  mailer,
		cache:   cache.New(opts.ProfileCacheTTL, 2*opts.ProfileCacheTTL),
		opts:    opts,
	}
}

// Register creates a patient account and signs them in.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	addr := normalizeEmail(req.Email)
	if name == "" || addr == "" || req.Password == "" {
		return nil, apperrors.BadRequest("please provide name, email, and password", nil)
	}

	if _, err := s.users.GetByEmail(ctx, addr); err == nil {
		return nil, apperrors.Conflict("user already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
		}
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Name:         name,
		Email:        addr,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("user already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	return s.issue(userPrincipal(user))
}

// Login checks credentials against the store that holds accounts of role.
// Patients sign in through the users table, which also holds admins; the
// token carries whatever role the account really has.
func (s *Service) Login(ctx context.Context, role model.Role, req *model.LoginRequest) (*model.AuthResult, error) {
	addr := normalizeEmail(req.Email)
	if addr == "" || req.Password == "" {
		return nil, apperrors.BadRequest("please provide email and password", nil)
	}

	var (
		principal *model.Principal
		hash      string
	)
	switch role {
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByEmail(ctx, addr)
		if err != nil {
			return nil, s.lookupErr(err)
		}
		principal, hash = doctorPrincipal(doctor), doctor.PasswordHash
	case model.RolePatient, model.RoleAdmin:
		user, err := s.users.GetByEmail(ctx, addr)
		if err != nil {
			return nil, s.lookupErr(err)
		}
		principal, hash = userPrincipal(user), user.PasswordHash
	default:
		return nil, apperrors.BadRequest("unknown role", nil)
	}

	if err := s.hasher.Compare(hash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	if role == model.RoleAdmin && principal.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("not authorized as admin")
	}

	return s.issue(principal)
}

// Logout revokes token until it would have expired. Tokens that no longer
// verify are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.Internal(err)
	}
	s.Forget(claims.Role, claims.UserID)
	return nil
}

// Authenticate verifies token and resolves the account it was issued for.
// Doctors are looked up in the doctors table, patients and admins in users.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("not authorized, token invalid")
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("not authorized, token revoked")
	}

	return s.resolve(ctx, claims.Role, claims.UserID)
}

// Profile returns the current account details of p.
func (s *Service) Profile(ctx context.Context, p *model.Principal) (*model.Principal, error) {
	s.Forget(p.Role, p.ID)
	principal, err := s.resolve(ctx, p.Role, p.ID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrUnauthorized) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, err
	}
	return principal, nil
}

// ForgotPassword mails a patient a single-use reset link. Unknown addresses
// succeed silently so the endpoint cannot be used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, addr string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(addr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}

	token, err := s.IssueResetToken(ctx, user.ID, user.Role, s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// IssueResetToken stores a fresh random token for the account and returns it.
func (s *Service) IssueResetToken(ctx context.Context, id uuid.UUID, role model.Role, ttl time.Duration) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if err := s.tokens.StoreResetToken(ctx, token, repository.ResetSubject{ID: id, Role: role}, ttl); err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

// ResetPassword sets a new password for the account token was issued to.
// role selects the account family: doctors reset through their own route.
func (s *Service) ResetPassword(ctx context.Context, role model.Role, token, newPassword string) error {
	if role == model.RoleDoctor {
		if !security.IsStrongPassword(newPassword) {
			return apperrors.BadRequest("password must be at least 6 characters and include an uppercase letter, a number and a special character", nil)
		}
	} else if len(newPassword) < security.MinPasswordLen {
		return apperrors.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), nil)
	}

	subject, err := s.tokens.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidResetToken
		}
		return apperrors.Internal(err)
	}
	if (role == model.RoleDoctor) != (subject.Role == model.RoleDoctor) {
		return errInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Internal(err)
	}

	if subject.Role == model.RoleDoctor {
		doctor, err := s.doctors.Get(ctx, subject.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errInvalidResetToken
			}
			return apperrors.Internal(err)
		}
		doctor.PasswordHash = hash
		err = s.doctors.Update(ctx, doctor)
		if err != nil {
			return apperrors.Internal(err)
		}
	} else if err := s.users.UpdatePassword(ctx, subject.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidResetToken
		}
		return apperrors.Internal(err)
	}

	s.Forget(subject.Role, subject.ID)
	return nil
}

// Forget drops a cached principal so the next request reloads it.
func (s *Service) Forget(role model.Role, id uuid.UUID) {
	s.cache.Delete(cacheKey(role, id))
}

func (s *Service) resolve(ctx context.Context, role model.Role, id uuid.UUID) (*model.Principal, error) {
	key := cacheKey(role, id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Principal), nil
	}

	var principal *model.Principal
	switch role {
	case model.RoleDoctor:
		doctor, err := s.doctors.Get(ctx, id)
		if err != nil {
			return nil, s.resolveErr(err)
		}
		principal = doctorPrincipal(doctor)
	case model.RolePatient, model.RoleAdmin:
		user, err := s.users.Get(ctx, id)
		if err != nil {
			return nil, s.resolveErr(err)
		}
		principal = userPrincipal(user)
	default:
		return nil, apperrors.Unauthorized("not authorized, invalid role")
	}

	s.cache.Set(key, principal, cache.DefaultExpiration)
	return principal, nil
}

func (s *Service) issue(p *model.Principal) (*model.AuthResult, error) {
	token, claims, err := s.jwtSvc.GenerateToken(p.ID, p.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.AuthResult{
		User:      p,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) lookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Unauthorized(msgInvalidCredentials)
	}
	return apperrors.Internal(err)
}

func (s *Service) resolveErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Unauthorized("not authorized, user not found")
	}
	return apperrors.Internal(err)
}

func userPrincipal(u *model.User) *model.Principal {
	return &model.Principal{ID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}

func doctorPrincipal(d *model.Doctor) *model.Principal {
	return &model.Principal{ID: d.ID, Role: model.RoleDoctor, Name: d.Name, Email: d.Email}
}

func cacheKey(role model.Role, id uuid.UUID) string {
	return string(role) + ":" + id.String()
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
