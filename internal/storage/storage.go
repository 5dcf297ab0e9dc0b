package storage

import (
	"context"
	"io"
)

// FileStore persists uploaded files and returns the URL they are served from.
type FileStore interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}
