package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/middleware"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

type AdminHandlers struct {
	admins       *service.AdminService
	submissions  *service.SubmissionService
	dashboard    *service.DashboardService
	validator    *validation.Validator
	cookieName   string
	secureCookie bool
	logger       *logrus.Logger
}

func NewAdminHandlers(
	admins *service.AdminService,
	submissions *service.SubmissionService,
	dashboard *service.DashboardService,
	v *validation.Validator,
	cookieName string,
	secureCookie bool,
	logger *logrus.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		admins:       admins,
		submissions:  submissions,
		dashboard:    dashboard,
		validator:    v,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	*service.LoginResult
}

type DashboardResponse struct {
	*service.Dashboard
	Fallback bool `json:"fallback,omitempty"`
}

type SubmissionListResponse struct {
	*service.SubmissionPage
	Fallback bool `json:"fallback,omitempty"`
}

type UpdateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status" validate:"required,status"`
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	res, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Token:       res.Token,
		LoginResult: res,
	})
}

// Logout handles POST /api/v1/admin/logout. It always clears the cookie and
// revokes the presented token when it is still valid.
func (h *AdminHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.TokenFromRequest(r, h.cookieName); ok {
		claims, err := h.admins.Authorize(r.Context(), token)
		if err == nil {
			if err := h.admins.Logout(r.Context(), claims); err != nil {
				h.logger.WithError(err).WithField("admin_id", claims.AdminID).Error("Failed to revoke session")
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me handles GET /api/v1/admin/me
func (h *AdminHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	admin, err := h.admins.Get(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Admin no longer exists")
			return
		}
		respondWithServiceError(w, h.logger, err, "load admin")
		return
	}
	respondWithJSON(w, http.StatusOK, admin)
}

// Dashboard handles GET /api/v1/admin/dashboard. A store failure is answered
// with zeroed statistics flagged as fallback.
func (h *AdminHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Dashboard(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Dashboard store unavailable, serving fallback")
		respondWithJSON(w, http.StatusOK, DashboardResponse{Dashboard: fallbackDashboard(), Fallback: true})
		return
	}
	respondWithJSON(w, http.StatusOK, DashboardResponse{Dashboard: d})
}

// ListSubmissions handles GET /api/v1/admin/submissions
func (h *AdminHandlers) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.SubmissionFilter{
		Status:  models.SubmissionStatus(strings.TrimSpace(q.Get("status"))),
		Service: strings.TrimSpace(q.Get("service")),
		Page:    queryInt(q.Get("page")),
		Limit:   queryInt(q.Get("limit")),
	}

	page, err := h.submissions.List(r.Context(), filter)
	if errors.Is(err, service.ErrInvalidStatus) {
		respondWithServiceError(w, h.logger, err, "list submissions")
		return
	}
	if err != nil {
		h.logger.WithError(err).Warn("Submission store unavailable, serving fallback")
		respondWithJSON(w, http.StatusOK, SubmissionListResponse{SubmissionPage: fallbackSubmissions(filter), Fallback: true})
		return
	}
	respondWithJSON(w, http.StatusOK, SubmissionListResponse{SubmissionPage: page})
}

// GetSubmission handles GET /api/v1/admin/submissions/{id}. When the store
// is down the lookup runs against the empty fallback set and answers 404.
func (h *AdminHandlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		h.logger.WithError(err).Warn("Submission store unavailable, serving fallback")
		metrics.FallbackResponses.WithLabelValues("submission").Inc()
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Submission not found")
		return
	}
	if err != nil {
		respondWithServiceError(w, h.logger, err, "load submission")
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// UpdateSubmission handles PUT /api/v1/admin/submissions[/{id}]. The id may
// come from the path or the body.
func (h *AdminHandlers) UpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		id = strings.TrimSpace(req.ID)
	}
	if id == "" {
		respondWithValidation(w, validation.Errors{{Field: "id", Tag: "required", Message: "id is required"}})
		return
	}

	sub, err := h.submissions.UpdateStatus(r.Context(), id, models.SubmissionStatus(req.Status))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update submission")
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// queryInt parses a positive integer query value; anything else is 0.
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
