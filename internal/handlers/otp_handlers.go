package handlers

import (
	"net/http"
	"time"

	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

type OTPHandlers struct {
	otp       *service.OTPService
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewOTPHandlers(otp *service.OTPService, v *validation.Validator, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otp:       otp,
		validator: v,
		logger:    logger,
	}
}

type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RequestOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type VerifyOTPResponse struct {
	Verified bool         `json:"verified"`
	User     *models.User `json:"user"`
}

// RequestCode handles POST /api/v1/otp/request
func (h *OTPHandlers) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := h.validator.Struct(&req); err != nil {
		respondWithValidation(w, err)
		return
	}

	res, err := h.otp.RequestCode(r.Context(), req.Email)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "send verification code")
		return
	}

	respondWithJSON(w, http.StatusOK, RequestOTPResponse{
		Message:   "Verification code sent",
		ExpiresAt: res.ExpiresAt,
		Code:      res.Code,
	})
}

// VerifyCode handles POST /api/v1/otp/verify
func (h *OTPHandlers) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := h.validator.Struct(&req); err != nil {
		respondWithValidation(w, err)
		return
	}

	user, err := h.otp.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "verify code")
		return
	}

	respondWithJSON(w, http.StatusOK, VerifyOTPResponse{
		Verified: true,
		User:     user,
	})
}
