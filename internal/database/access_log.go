package database

import (
	"context"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	"gorm.io/gorm"
)

type AccessLogStore struct {
	db *gorm.DB
}

func NewAccessLogStore(db *gorm.DB) *AccessLogStore {
	return &AccessLogStore{db: db}
}

func (s *AccessLogStore) Record(ctx context.Context, entry *models.AccessLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
