package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/storage"
	"github.com/sirupsen/logrus"
)

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

type UploadService struct {
	store   storage.FileStore
	maxSize int64
	allowed map[string]bool
	logger  *logrus.Logger
}

func NewUploadService(store storage.FileStore, maxSize int64, allowedTypes []string, logger *logrus.Logger) *UploadService {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	return &UploadService{
		store:   store,
		maxSize: maxSize,
		allowed: allowed,
		logger:  logger,
	}
}

func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Upload stores one file under a generated name. The declared content type
// is trusted; file contents are not inspected.
func (s *UploadService) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*models.Attachment, error) {
	if size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !s.allowed[strings.ToLower(mediaType)] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	mediaType = strings.ToLower(mediaType)

	name := uuid.New().String() + extension(filename, mediaType)
	url, err := s.store.Save(ctx, name, mediaType, io.LimitReader(body, s.maxSize))
	if err != nil {
		s.logger.WithError(err).WithField("file", name).Error("Failed to store upload")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"file": name, "size": size, "content_type": mediaType}).Info("File uploaded")
	return &models.Attachment{
		Name:        displayName(filename, name),
		URL:         url,
		Size:        size,
		ContentType: mediaType,
	}, nil
}

// displayName strips any client path from filename, Windows separators
// included. Names with nothing left fall back to the stored name.
func displayName(filename, stored string) string {
	base := strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	switch base {
	case "", ".", "..", "/":
		return stored
	}
	return base
}

func extension(filename, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if safeExt.MatchString(ext) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
