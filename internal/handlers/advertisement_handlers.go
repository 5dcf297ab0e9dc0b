package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/qcom/intake/internal/middleware"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

type AdvertisementHandlers struct {
	ads       *service.AdvertisementService
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewAdvertisementHandlers(ads *service.AdvertisementService, v *validation.Validator, logger *logrus.Logger) *AdvertisementHandlers {
	return &AdvertisementHandlers{
		ads:       ads,
		validator: v,
		logger:    logger,
	}
}

type CreateAdvertisementRequest struct {
	Position string `json:"position" validate:"required,adposition"`
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=2000"`
	LinkURL  string `json:"link_url" validate:"omitempty,max=2048"`
	IsActive *bool  `json:"is_active"`
}

type UpdateAdvertisementRequest struct {
	Position *string `json:"position" validate:"omitempty,adposition"`
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Content  *string `json:"content" validate:"omitempty,max=2000"`
	LinkURL  *string `json:"link_url" validate:"omitempty,max=2048"`
	IsActive *bool   `json:"is_active"`
}

type AdvertisementListResponse struct {
	Advertisements []models.Advertisement `json:"advertisements"`
	Fallback       bool                   `json:"fallback,omitempty"`
}

func (r *UpdateAdvertisementRequest) patch() models.AdvertisementPatch {
	p := models.AdvertisementPatch{
		Title:    r.Title,
		Content:  r.Content,
		LinkURL:  r.LinkURL,
		IsActive: r.IsActive,
	}
	if r.Position != nil {
		pos := models.AdPosition(*r.Position)
		p.Position = &pos
	}
	return p
}

// ListActive handles GET /api/v1/advertisements. When the store is
// unreachable the static advertisements are served instead.
func (h *AdvertisementHandlers) ListActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	position := strings.TrimSpace(q.Get("position"))
	limit := queryInt(q.Get("limit"))

	ads, err := h.ads.ListActive(r.Context(), position, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPosition) {
			respondWithServiceError(w, h.logger, err, "list advertisements")
			return
		}
		h.logger.WithError(err).Warn("Advertisement store unavailable, serving fallback")
		if limit < 1 || limit > service.MaxAdLimit {
			limit = service.DefaultAdLimit
		}
		respondWithJSON(w, http.StatusOK, AdvertisementListResponse{
			Advertisements: fallbackAds(position, limit),
			Fallback:       true,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, AdvertisementListResponse{Advertisements: nonNil(ads)})
}

// ListAll handles GET /api/v1/admin/advertisements
func (h *AdvertisementHandlers) ListAll(w http.ResponseWriter, r *http.Request) {
	ads, err := h.ads.ListAll(r.Context(), strings.TrimSpace(r.URL.Query().Get("position")))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list advertisements")
		return
	}
	respondWithJSON(w, http.StatusOK, AdvertisementListResponse{Advertisements: nonNil(ads)})
}

// Create handles POST /api/v1/advertisements
func (h *AdvertisementHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAdvertisementRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	ad, err := h.ads.Create(r.Context(), service.AdvertisementInput{
		Position: req.Position,
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		LinkURL:  strings.TrimSpace(req.LinkURL),
		IsActive: req.IsActive,
	}, adminID(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create advertisement")
		return
	}
	respondWithJSON(w, http.StatusCreated, ad)
}

// Update handles PUT /api/v1/advertisements/{id}
func (h *AdvertisementHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateAdvertisementRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	ad, err := h.ads.Update(r.Context(), mux.Vars(r)["id"], req.patch(), adminID(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update advertisement")
		return
	}
	respondWithJSON(w, http.StatusOK, ad)
}

// Delete handles DELETE /api/v1/advertisements/{id}
func (h *AdvertisementHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ads.Delete(r.Context(), mux.Vars(r)["id"], adminID(r)); err != nil {
		respondWithServiceError(w, h.logger, err, "delete advertisement")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Advertisement deleted"})
}

func adminID(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.AdminID
	}
	return ""
}

func nonNil(ads []models.Advertisement) []models.Advertisement {
	if ads == nil {
		return []models.Advertisement{}
	}
	return ads
}
