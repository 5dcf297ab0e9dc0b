package handlers

import (
	"net/http"
	"strings"

	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

type FormHandlers struct {
	submissions *service.SubmissionService
	validator   *validation.Validator
	logger      *logrus.Logger
}

func NewFormHandlers(submissions *service.SubmissionService, v *validation.Validator, logger *logrus.Logger) *FormHandlers {
	return &FormHandlers{
		submissions: submissions,
		validator:   v,
		logger:      logger,
	}
}

type SubmitFormRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Email       string              `json:"email" validate:"required,email,max=254"`
	Company     string              `json:"company" validate:"omitempty,max=200"`
	Phone       string              `json:"phone" validate:"omitempty,max=50"`
	Service     string              `json:"service" validate:"required,service"`
	Budget      string              `json:"budget" validate:"omitempty,budget"`
	Timeline    string              `json:"timeline" validate:"omitempty,timeline"`
	Description string              `json:"description" validate:"required,max=5000"`
	Attachments []AttachmentRequest `json:"attachments" validate:"omitempty,max=5,dive"`
	Booking     *BookingRequest     `json:"booking"`
}

type AttachmentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	URL         string `json:"url" validate:"required,max=2048"`
	Size        int64  `json:"size" validate:"min=0"`
	ContentType string `json:"content_type" validate:"omitempty,max=255"`
}

type BookingRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" validate:"required,datetime=15:04"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

type SubmitFormResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (r *SubmitFormRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = models.NormalizeEmail(r.Email)
	r.Company = strings.TrimSpace(r.Company)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Service = strings.TrimSpace(r.Service)
	r.Budget = strings.TrimSpace(r.Budget)
	r.Timeline = strings.TrimSpace(r.Timeline)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *SubmitFormRequest) input() service.SubmissionInput {
	in := service.SubmissionInput{
		Name:        r.Name,
		Email:       r.Email,
		Company:     r.Company,
		Phone:       r.Phone,
		Service:     r.Service,
		Budget:      r.Budget,
		Timeline:    r.Timeline,
		Description: r.Description,
	}
	for _, a := range r.Attachments {
		in.Attachments = append(in.Attachments, models.Attachment{
			Name:        a.Name,
			URL:         a.URL,
			Size:        a.Size,
			ContentType: a.ContentType,
		})
	}
	if r.Booking != nil {
		in.Booking = &models.Booking{
			Date:     r.Booking.Date,
			Time:     r.Booking.Time,
			Timezone: r.Booking.Timezone,
		}
	}
	return in
}

// Submit handles POST /api/v1/form
func (h *FormHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitFormRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	req.normalize()
	if err := h.validator.Struct(&req); err != nil {
		respondWithValidation(w, err)
		return
	}

	sub, err := h.submissions.Submit(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "submit form")
		return
	}

	respondWithJSON(w, http.StatusCreated, SubmitFormResponse{
		Success: true,
		ID:      sub.ID,
		Message: "Thank you! We will get back to you shortly.",
	})
}
