package handlers

import (
	"time"

	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
)

// fallbackEpoch stamps the static advertisements so responses are stable.
var fallbackEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var fallbackAdvertisements = []models.Advertisement{
	{
		ID:        "fallback-header",
		Position:  models.PositionHeader,
		Title:     "Build your next product with us",
		Content:   "Web, mobile and design work from one team.",
		LinkURL:   "/#contact",
		IsActive:  true,
		CreatedAt: fallbackEpoch,
		UpdatedAt: fallbackEpoch,
	},
	{
		ID:        "fallback-sidebar",
		Position:  models.PositionSidebar,
		Title:     "Free project consultation",
		Content:   "Tell us about your idea and get an estimate within two days.",
		LinkURL:   "/#contact",
		IsActive:  true,
		CreatedAt: fallbackEpoch,
		UpdatedAt: fallbackEpoch,
	},
	{
		ID:        "fallback-inline",
		Position:  models.PositionInline,
		Title:     "Grow with digital marketing",
		Content:   "SEO, paid campaigns and content that converts.",
		LinkURL:   "/#services",
		IsActive:  true,
		CreatedAt: fallbackEpoch,
		UpdatedAt: fallbackEpoch,
	},
	{
		ID:        "fallback-footer",
		Position:  models.PositionFooter,
		Title:     "Stay in touch",
		Content:   "Follow our work and case studies.",
		LinkURL:   "/#about",
		IsActive:  true,
		CreatedAt: fallbackEpoch,
		UpdatedAt: fallbackEpoch,
	},
}

// fallbackAds returns the static advertisements for position, or all of
// them when position is empty.
func fallbackAds(position string, limit int) []models.Advertisement {
	metrics.FallbackResponses.WithLabelValues("advertisements").Inc()

	out := make([]models.Advertisement, 0, len(fallbackAdvertisements))
	for _, ad := range fallbackAdvertisements {
		if position != "" && string(ad.Position) != position {
			continue
		}
		out = append(out, ad)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func fallbackDashboard() *service.Dashboard {
	metrics.FallbackResponses.WithLabelValues("dashboard").Inc()

	stats := &models.SubmissionStats{
		ByStatus:  make(map[string]int64, len(models.SubmissionStatuses)),
		ByService: map[string]int64{},
	}
	for _, s := range models.SubmissionStatuses {
		stats.ByStatus[string(s)] = 0
	}
	return &service.Dashboard{
		Submissions: stats,
		Recent:      []models.Submission{},
	}
}

// fallbackSubmissions is an empty page shaped like the requested one.
func fallbackSubmissions(filter models.SubmissionFilter) *service.SubmissionPage {
	metrics.FallbackResponses.WithLabelValues("submissions").Inc()

	filter = service.NormalizeFilter(filter)
	return &service.SubmissionPage{
		Items: []models.Submission{},
		Page:  filter.Page,
		Limit: filter.Limit,
	}
}
