package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1 << 20
)

// SubmissionNotifier receives every stored submission. Implementations
// must not block.
type SubmissionNotifier interface {
	Dispatch(s models.Submission)
}

type SubmissionService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	notifier    SubmissionNotifier
	logger      *logrus.Logger
	nowF        func() time.Time
}

func NewSubmissionService(users repository.UserRepository, submissions repository.SubmissionRepository, notifier SubmissionNotifier, logger *logrus.Logger) *SubmissionService {
	return &SubmissionService{
		users:       users,
		submissions: submissions,
		notifier:    notifier,
		logger:      logger,
		nowF:        time.Now,
	}
}

// SubmissionInput is a form submission that already passed request
// validation.
type SubmissionInput struct {
	Name        string
	Email       string
	Company     string
	Phone       string
	Service     string
	Budget      string
	Timeline    string
	Description string
	Attachments []models.Attachment
	Booking     *models.Booking
}

func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*models.Submission, error) {
	email := models.NormalizeEmail(in.Email)
	now := s.nowF()

	_, err := s.users.GetOrCreate(ctx, &models.User{
		Email:     email,
		Name:      in.Name,
		Company:   in.Company,
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	sub := &models.Submission{
		ID:          uuid.New().String(),
		UserEmail:   email,
		Name:        in.Name,
		Email:       email,
		Company:     in.Company,
		Phone:       in.Phone,
		Service:     in.Service,
		Budget:      in.Budget,
		Timeline:    in.Timeline,
		Description: in.Description,
		Attachments: in.Attachments,
		Booking:     in.Booking,
		Status:      models.StatusReceived,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	metrics.Submissions.Inc()
	s.logger.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"service":       sub.Service,
	}).Info("Submission received")

	if s.notifier != nil {
		s.notifier.Dispatch(*sub)
	}
	return sub, nil
}

type SubmissionPage struct {
	Items      []models.Submission `json:"items"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

// NormalizeFilter clamps page to [1, MaxPage] and limit to
// [1, MaxPageSize], defaulting an unset limit to DefaultPageSize.
func NormalizeFilter(filter models.SubmissionFilter) models.SubmissionFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Page > MaxPage {
		filter.Page = MaxPage
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	return filter
}

// List returns one page of submissions. Page and limit are clamped to
// sensible values.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) (*SubmissionPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	filter = NormalizeFilter(filter)

	items, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &SubmissionPage{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pages,
	}, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sub, err
}

// UpdateStatus moves a submission to any of the known statuses.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	sub, err := s.submissions.UpdateStatus(ctx, id, status, s.nowF())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id": id,
		"status":        status,
	}).Info("Submission status updated")
	return sub, nil
}
