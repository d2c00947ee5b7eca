package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
)

var ErrNotFound = errors.New("not found")

// ObjectStore holds archive payloads.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Index holds archive metadata. Find returns ErrNotFound for unknown keys.
type Index interface {
	Find(ctx context.Context, key string) (*models.ExportArchive, error)
	Save(ctx context.Context, entry *models.ExportArchive) error
	Touch(ctx context.Context, key string, at time.Time) error
	Delete(ctx context.Context, key string) error
	Expired(ctx context.Context, now time.Time) ([]models.ExportArchive, error)
}
