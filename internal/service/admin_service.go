package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

type AdminService struct {
	admins     repository.AdminRepository
	jwt        *JWTService
	sessions   *SessionService
	bcryptCost int
	logger     *logrus.Logger
	nowF       func() time.Time
}

func NewAdminService(admins repository.AdminRepository, jwt *JWTService, sessions *SessionService, bcryptCost int, logger *logrus.Logger) *AdminService {
	return &AdminService{
		admins:     admins,
		jwt:        jwt,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		logger:     logger,
		nowF:       time.Now,
	}
}

type LoginResult struct {
	Token     string        `json:"-"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     *models.Admin `json:"admin"`
}

// Authenticate returns the admin whose credentials match.
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	email = models.NormalizeEmail(email)

	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// Login authenticates and issues a session token.
func (s *AdminService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	admin, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.WithField("email", models.NormalizeEmail(email)).Warn("Admin login failed")
		return nil, err
	}

	token, claims, err := s.jwt.Issue(admin)
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	if err := s.admins.UpdateLastLogin(ctx, admin.Email, now); err != nil {
		s.logger.WithError(err).WithField("admin_id", admin.ID).Warn("Failed to record admin login")
	} else {
		admin.LastLoginAt = &now
	}

	s.logger.WithField("admin_id", admin.ID).Info("Admin logged in")
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Admin:     admin,
	}, nil
}

// Authorize validates a session token and rejects revoked ones.
func (s *AdminService) Authorize(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.jwt.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *AdminService) Logout(ctx context.Context, claims *Claims) error {
	return s.sessions.Revoke(ctx, claims)
}

func (s *AdminService) Get(ctx context.Context, email string) (*models.Admin, error) {
	admin, err := s.admins.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return admin, err
}

type CreateAdminInput struct {
	Email    string           `yaml:"email"`
	Password string           `yaml:"password"`
	Name     string           `yaml:"name"`
	Role     models.AdminRole `yaml:"role"`
}

// CreateAdmin stores a new admin with a bcrypt-hashed password.
func (s *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*models.Admin, error) {
	email := models.NormalizeEmail(in.Email)
	if !validation.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         role,
		CreatedAt:    s.nowF(),
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"admin_id": admin.ID, "email": email}).Info("Admin created")
	return admin, nil
}
