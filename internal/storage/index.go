package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	"gorm.io/gorm"
)

// GormIndex keeps archive metadata in the export_archives table.
type GormIndex struct {
	db *gorm.DB
}

func NewGormIndex(db *gorm.DB) *GormIndex {
	return &GormIndex{db: db}
}

func (g *GormIndex) Find(ctx context.Context, key string) (*models.ExportArchive, error) {
	var entry models.ExportArchive
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find archive %s: %w", key, err)
	}
	return &entry, nil
}

func (g *GormIndex) Save(ctx context.Context, entry *models.ExportArchive) error {
	if err := g.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("failed to save archive entry: %w", err)
	}
	return nil
}

func (g *GormIndex) Touch(ctx context.Context, key string, at time.Time) error {
	return g.db.WithContext(ctx).Model(&models.ExportArchive{}).
		Where("key = ?", key).
		Update("last_access", at).Error
}

func (g *GormIndex) Delete(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Where("key = ?", key).Delete(&models.ExportArchive{}).Error
}

func (g *GormIndex) Expired(ctx context.Context, now time.Time) ([]models.ExportArchive, error) {
	var entries []models.ExportArchive
	err := g.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&entries).Error
	return entries, err
}
