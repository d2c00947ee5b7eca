package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/metrics"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

const csvContentType = "text/csv"

// Archive caches exported CSVs for ranges that lie entirely in the past,
// whose content can no longer change.
type Archive struct {
	objects ObjectStore
	index   Index
	ttl     time.Duration
	log     *logrus.Entry
	metrics *metrics.Manager
	now     func() time.Time
}

func NewArchive(logger *logrus.Logger, objects ObjectStore, index Index, ttl time.Duration, m *metrics.Manager) *Archive {
	return &Archive{
		objects: objects,
		index:   index,
		ttl:     ttl,
		log:     logger.WithField("component", "export_archive"),
		metrics: m,
		now:     time.Now,
	}
}

func ArchiveKey(endpointID string, r models.TimeRange) string {
	return fmt.Sprintf("exports/%s/%d-%d.csv", endpointID, r.Start.UTC().Unix(), r.End.UTC().Unix())
}

// Archivable reports whether the range is closed.
func (a *Archive) Archivable(r models.TimeRange) bool {
	return r.End.Before(a.now())
}

// Get returns ErrNotFound when nothing usable is archived.
func (a *Archive) Get(ctx context.Context, endpointID string, r models.TimeRange) ([]byte, error) {
	key := ArchiveKey(endpointID, r)
	log := a.log.WithField("key", key)

	entry, err := a.index.Find(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.metrics.RecordArchiveLookup(false)
		}
		return nil, err
	}

	if a.now().After(entry.ExpiresAt) {
		if err := a.Delete(ctx, key); err != nil {
			log.WithError(err).Warn("Failed to delete expired archive")
		}
		a.metrics.RecordArchiveLookup(false)
		return nil, ErrNotFound
	}

	content, err := a.objects.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if err := a.index.Delete(ctx, key); err != nil {
				log.WithError(err).Warn("Failed to drop dangling archive entry")
			}
			a.metrics.RecordArchiveLookup(false)
		}
		return nil, err
	}

	if err := a.index.Touch(ctx, key, a.now()); err != nil {
		log.WithError(err).Warn("Failed to update last access")
	}
	a.metrics.RecordArchiveLookup(true)
	return content, nil
}

func (a *Archive) Put(ctx context.Context, endpointID string, r models.TimeRange, content []byte) error {
	key := ArchiveKey(endpointID, r)
	if err := a.objects.Put(ctx, key, content, csvContentType); err != nil {
		return err
	}

	now := a.now()
	entry := &models.ExportArchive{
		Key:         key,
		EndpointID:  endpointID,
		RangeStart:  r.Start.UTC(),
		RangeEnd:    r.End.UTC(),
		ContentType: csvContentType,
		SizeBytes:   int64(len(content)),
		StoredAt:    now,
		ExpiresAt:   now.Add(a.ttl),
		LastAccess:  now,
	}
	if err := a.index.Save(ctx, entry); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"key": key, "size": len(content)}).Debug("Archived export")
	return nil
}

func (a *Archive) Delete(ctx context.Context, key string) error {
	objErr := a.objects.Delete(ctx, key)
	if err := a.index.Delete(ctx, key); err != nil {
		a.log.WithError(err).WithField("key", key).Error("Failed to delete archive entry")
	}
	return objErr
}

func (a *Archive) Expired(ctx context.Context) ([]models.ExportArchive, error) {
	return a.index.Expired(ctx, a.now())
}
