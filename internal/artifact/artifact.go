// Package artifact uploads finished documents to object storage.
package artifact

import (
	"context"
	"mime"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// Store puts one object and returns its location.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Key lays out objects as <prefix>/<run id>/<file name>.
func Key(prefix string, runID uuid.UUID, filePath string) string {
	return path.Join(prefix, runID.String(), filepath.Base(filePath))
}

// ContentType guesses a MIME type from the file extension.
func ContentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case "":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
