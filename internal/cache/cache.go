package cache

import (
	"context"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/metrics"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// Archive is the part of storage.Archive the purger needs.
type Archive interface {
	Expired(ctx context.Context) ([]models.ExportArchive, error)
	Delete(ctx context.Context, key string) error
}

// ArchivePurger periodically removes export archives past their TTL.
type ArchivePurger struct {
	log      *logrus.Entry
	archive  Archive
	interval time.Duration
	metrics  *metrics.Manager
}

func NewArchivePurger(logger *logrus.Logger, archive Archive, interval time.Duration, m *metrics.Manager) *ArchivePurger {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ArchivePurger{
		log:      logger.WithField("component", "archive_purger"),
		archive:  archive,
		interval: interval,
		metrics:  m,
	}
}

func (p *ArchivePurger) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("Starting archive purger")
	for {
		select {
		case <-ticker.C:
			p.Purge(ctx)
		case <-ctx.Done():
			p.log.Info("Stopping archive purger")
			return
		}
	}
}

// Purge runs one pass and returns how many archives were removed.
func (p *ArchivePurger) Purge(ctx context.Context) int {
	log := p.log.WithField("operation", "archive_purge")

	entries, err := p.archive.Expired(ctx)
	if err != nil {
		log.WithError(err).Error("Archive purge query failed")
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	log.WithField("count", len(entries)).Info("Processing expired archives")

	removed := 0
	for _, entry := range entries {
		if err := p.archive.Delete(ctx, entry.Key); err != nil {
			log.WithFields(logrus.Fields{"key": entry.Key, "error": err}).Error("Failed to delete archive")
			continue
		}
		removed++
	}
	p.metrics.RecordArchivesPurged(removed)
	return removed
}
