package service

import (
	"context"

	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
)

const recentSubmissions = 5

type Dashboard struct {
	Submissions          *models.SubmissionStats `json:"submissions"`
	Users                UserCounts              `json:"users"`
	ActiveAdvertisements int                     `json:"active_advertisements"`
	Recent               []models.Submission     `json:"recent"`
}

type UserCounts struct {
	Total    int64 `json:"total"`
	Verified int64 `json:"verified"`
}

type DashboardService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	ads         repository.AdvertisementRepository
}

func NewDashboardService(users repository.UserRepository, submissions repository.SubmissionRepository, ads repository.AdvertisementRepository) *DashboardService {
	return &DashboardService{users: users, submissions: submissions, ads: ads}
}

func (s *DashboardService) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, err := s.submissions.Stats(ctx)
	if err != nil {
		return nil, err
	}

	total, verified, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.ads.List(ctx, models.AdvertisementFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	recent, _, err := s.submissions.List(ctx, models.SubmissionFilter{Page: 1, Limit: recentSubmissions})
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Submissions:          stats,
		Users:                UserCounts{Total: total, Verified: verified},
		ActiveAdvertisements: len(active),
		Recent:               recent,
	}, nil
}
