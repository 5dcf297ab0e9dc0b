package handlers

import (
	"errors"
	"net/http"

	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/service"
	"github.com/sirupsen/logrus"
)

// multipartOverhead covers the form boundaries and headers around the file part.
const multipartOverhead = 1 << 20

type UploadHandlers struct {
	uploads *service.UploadService
	logger  *logrus.Logger
}

func NewUploadHandlers(uploads *service.UploadService, logger *logrus.Logger) *UploadHandlers {
	return &UploadHandlers{
		uploads: uploads,
		logger:  logger,
	}
}

type UploadResponse struct {
	Success bool `json:"success"`
	models.Attachment
}

// Upload handles POST /api/v1/upload
func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxSize()+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondWithServiceError(w, h.logger, service.ErrFileTooLarge, "upload file")
		case errors.Is(err, http.ErrMissingFile):
			respondWithError(w, http.StatusBadRequest, "MISSING_FILE", "No file uploaded")
		default:
			respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected multipart form with a file field")
		}
		return
	}
	defer file.Close()

	attachment, err := h.uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "upload file")
		return
	}

	respondWithJSON(w, http.StatusCreated, UploadResponse{
		Success:    true,
		Attachment: *attachment,
	})
}
