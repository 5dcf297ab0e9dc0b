package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAdLimit = 10
	MaxAdLimit     = 50
)

type AdvertisementService struct {
	ads    repository.AdvertisementRepository
	logger *logrus.Logger
	nowF   func() time.Time
}

func NewAdvertisementService(ads repository.AdvertisementRepository, logger *logrus.Logger) *AdvertisementService {
	return &AdvertisementService{ads: ads, logger: logger, nowF: time.Now}
}

func parsePosition(position string) (models.AdPosition, error) {
	if position == "" {
		return "", nil
	}
	p := models.AdPosition(position)
	if !p.Valid() {
		return "", ErrInvalidPosition
	}
	return p, nil
}

// ListActive returns the newest active advertisements, optionally for one
// position.
func (s *AdvertisementService) ListActive(ctx context.Context, position string, limit int) ([]models.Advertisement, error) {
	p, err := parsePosition(position)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultAdLimit
	}
	if limit > MaxAdLimit {
		limit = MaxAdLimit
	}
	return s.ads.List(ctx, models.AdvertisementFilter{Position: p, ActiveOnly: true, Limit: limit})
}

// ListAll includes inactive advertisements.
func (s *AdvertisementService) ListAll(ctx context.Context, position string) ([]models.Advertisement, error) {
	p, err := parsePosition(position)
	if err != nil {
		return nil, err
	}
	return s.ads.List(ctx, models.AdvertisementFilter{Position: p})
}

type AdvertisementInput struct {
	Position string
	Title    string
	Content  string
	LinkURL  string
	IsActive *bool
}

func (s *AdvertisementService) Create(ctx context.Context, in AdvertisementInput, adminID string) (*models.Advertisement, error) {
	position := models.AdPosition(in.Position)
	if !position.Valid() {
		return nil, ErrInvalidPosition
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidInput)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := s.nowF()
	ad := &models.Advertisement{
		ID:        uuid.New().String(),
		Position:  position,
		Title:     in.Title,
		Content:   in.Content,
		LinkURL:   in.LinkURL,
		IsActive:  active,
		CreatedBy: adminID,
		UpdatedBy: adminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ads.Create(ctx, ad); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"advertisement_id": ad.ID, "admin_id": adminID}).Info("Advertisement created")
	return ad, nil
}

// Update merges the non-nil fields of patch into the advertisement.
func (s *AdvertisementService) Update(ctx context.Context, id string, patch models.AdvertisementPatch, adminID string) (*models.Advertisement, error) {
	if patch.Position != nil && !patch.Position.Valid() {
		return nil, ErrInvalidPosition
	}
	if (patch.Title != nil && strings.TrimSpace(*patch.Title) == "") ||
		(patch.Content != nil && strings.TrimSpace(*patch.Content) == "") {
		return nil, fmt.Errorf("%w: title and content cannot be empty", ErrInvalidInput)
	}

	ad, err := s.ads.Update(ctx, id, patch, adminID, s.nowF())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"advertisement_id": id, "admin_id": adminID}).Info("Advertisement updated")
	return ad, nil
}

func (s *AdvertisementService) Delete(ctx context.Context, id, adminID string) error {
	err := s.ads.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"advertisement_id": id, "admin_id": adminID}).Info("Advertisement deleted")
	return nil
}
