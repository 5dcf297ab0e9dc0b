package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

const maxJSONBody = 1 << 20

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	if err := v.Struct(dst); err != nil {
		respondWithValidation(w, err)
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("Request body is required")
		}
		return fmt.Errorf("Invalid request body: %v", err)
	}
	return nil
}

func respondWithValidation(w http.ResponseWriter, err error) {
	var verr validation.Errors
	if !errors.As(err, &verr) {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Fields:  verr,
		},
	})
}

// respondWithServiceError maps service errors to HTTP responses and logs
// anything unexpected.
func respondWithServiceError(w http.ResponseWriter, logger *logrus.Logger, err error, action string) {
	var invalidOTP *service.InvalidOTPError
	switch {
	case errors.As(err, &invalidOTP):
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": ErrorDetail{
				Code:    "INVALID_OTP",
				Message: invalidOTP.Error(),
			},
			"remaining_attempts": invalidOTP.Remaining,
		})
	case errors.Is(err, service.ErrOTPNotFound):
		respondWithError(w, http.StatusBadRequest, "OTP_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrOTPExpired):
		respondWithError(w, http.StatusBadRequest, "OTP_EXPIRED", err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		respondWithError(w, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", err.Error())
	case errors.Is(err, service.ErrRateLimited):
		w.Header().Set("Retry-After", "3600")
		respondWithError(w, http.StatusTooManyRequests, "RATE_LIMITED", err.Error())
	case errors.Is(err, service.ErrInvalidEmail):
		respondWithError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenRevoked):
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, service.ErrInvalidStatus):
		respondWithError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be one of: received, in_progress, completed, cancelled")
	case errors.Is(err, service.ErrInvalidPosition):
		respondWithError(w, http.StatusBadRequest, "INVALID_POSITION", "Position must be one of: header, sidebar, inline, footer")
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the maximum upload size")
	case errors.Is(err, service.ErrUnsupportedType):
		respondWithError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "File type not allowed")
	default:
		logger.WithError(err).Error("Failed to " + action)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}
