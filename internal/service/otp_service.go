package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/qcom/intake/internal/config"
	"github.com/qcom/intake/internal/mailer"
	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type OTPService struct {
	otps    repository.OTPRepository
	users   repository.UserRepository
	limiter *RateLimiter
	mailer  mailer.Mailer
	cfg     *config.OTPConfig
	logger  *logrus.Logger
	nowF    func() time.Time
	genF    func(length int) (string, error)
}

func NewOTPService(otps repository.OTPRepository, users repository.UserRepository, limiter *RateLimiter, m mailer.Mailer, cfg *config.OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		otps:    otps,
		users:   users,
		limiter: limiter,
		mailer:  m,
		cfg:     cfg,
		logger:  logger,
		nowF:    time.Now,
		genF:    generateCode,
	}
}

type OTPRequestResult struct {
	ExpiresAt time.Time `json:"expires_at"`
	// Code is only set when codes are returned to the client in development.
	Code string `json:"code,omitempty"`
}

// RequestCode issues a fresh code for email, replacing any earlier one.
func (s *OTPService) RequestCode(ctx context.Context, email string) (*OTPRequestResult, error) {
	email = models.NormalizeEmail(email)
	if !validation.IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	allowed, err := s.limiter.Allow(ctx, "otp:"+email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.OTPRequests.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	code, err := s.genF(s.cfg.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash OTP: %w", err)
	}

	now := s.nowF()
	otp := models.OTPData{
		Email:     email,
		CodeHash:  string(hash),
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Expiry),
	}
	if err := s.otps.Store(ctx, otp); err != nil {
		return nil, err
	}

	if _, err := s.users.GetOrCreate(ctx, &models.User{Email: email, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, err
	}

	s.sendCode(ctx, email, code)
	metrics.OTPRequests.WithLabelValues("sent").Inc()

	result := &OTPRequestResult{ExpiresAt: otp.ExpiresAt}
	if s.cfg.ReturnToClient {
		result.Code = code
	}
	return result, nil
}

// sendCode emails the code. Delivery failures are logged; the stored code
// stays valid and the client may request another.
func (s *OTPService) sendCode(ctx context.Context, email, code string) {
	subject, html, err := mailer.OTPEmail(code, int(s.cfg.Expiry.Minutes()))
	if err == nil {
		err = s.mailer.Send(ctx, email, subject, html)
	}
	if err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("Failed to deliver OTP email")
	}
}

// VerifyCode checks code against the stored one for email and marks the
// user verified on success.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	otp, err := s.otps.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.verifyFailed(ErrOTPNotFound)
	}
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	if otp.Expired(now) {
		s.discard(ctx, email)
		return nil, s.verifyFailed(ErrOTPExpired)
	}
	if otp.Attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, email)
		return nil, s.verifyFailed(ErrTooManyAttempts)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)); err != nil {
		attempts, err := s.otps.IncrementAttempts(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.verifyFailed(ErrOTPNotFound)
		}
		if err != nil {
			return nil, err
		}
		if attempts >= s.cfg.MaxAttempts {
			s.discard(ctx, email)
			return nil, s.verifyFailed(ErrTooManyAttempts)
		}
		return nil, s.verifyFailed(&InvalidOTPError{Remaining: s.cfg.MaxAttempts - attempts})
	}

	if err := s.otps.Delete(ctx, email); err != nil {
		return nil, err
	}

	if _, err := s.users.GetOrCreate(ctx, &models.User{Email: email, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, err
	}
	if err := s.users.MarkVerified(ctx, email, now); err != nil {
		return nil, err
	}
	metrics.OTPVerifications.WithLabelValues("verified").Inc()

	return s.users.GetByEmail(ctx, email)
}

func (s *OTPService) discard(ctx context.Context, email string) {
	if err := s.otps.Delete(ctx, email); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("Failed to discard OTP")
	}
}

func (s *OTPService) verifyFailed(err error) error {
	result := "invalid"
	switch {
	case errors.Is(err, ErrOTPNotFound):
		result = "not_found"
	case errors.Is(err, ErrOTPExpired):
		result = "expired"
	case errors.Is(err, ErrTooManyAttempts):
		result = "locked"
	}
	metrics.OTPVerifications.WithLabelValues(result).Inc()
	return err
}

func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
