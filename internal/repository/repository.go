package repository

import (
	"context"
	"errors"
	"time"

	"github.com/qcom/intake/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetOrCreate inserts user when no record exists for its email and
	// returns the stored record either way. Existing records are not modified.
	GetOrCreate(ctx context.Context, user *models.User) (*models.User, error)
	MarkVerified(ctx context.Context, email string, at time.Time) error
	Count(ctx context.Context) (total int64, verified int64, err error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	// List returns one page of submissions, newest first, and the number of
	// submissions matching the filter.
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, at time.Time) (*models.Submission, error)
	Stats(ctx context.Context) (*models.SubmissionStats, error)
}

// OTPRepository holds at most one code per email.
type OTPRepository interface {
	// Store replaces any code already held for the email.
	Store(ctx context.Context, otp models.OTPData) error
	Get(ctx context.Context, email string) (*models.OTPData, error)
	IncrementAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdateLastLogin(ctx context.Context, email string, at time.Time) error
}

type AdvertisementRepository interface {
	// List returns advertisements newest first.
	List(ctx context.Context, filter models.AdvertisementFilter) ([]models.Advertisement, error)
	GetByID(ctx context.Context, id string) (*models.Advertisement, error)
	Create(ctx context.Context, ad *models.Advertisement) error
	Update(ctx context.Context, id string, patch models.AdvertisementPatch, updatedBy string, at time.Time) (*models.Advertisement, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Driver         string
	Users          UserRepository
	Submissions    SubmissionRepository
	OTPs           OTPRepository
	Admins         AdminRepository
	Advertisements AdvertisementRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func newStats() *models.SubmissionStats {
	stats := &models.SubmissionStats{
		ByStatus:  make(map[string]int64, len(models.SubmissionStatuses)),
		ByService: make(map[string]int64),
	}
	for _, s := range models.SubmissionStatuses {
		stats.ByStatus[string(s)] = 0
	}
	return stats
}
