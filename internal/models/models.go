package models

import (
	"time"
)

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RequestID string    `gorm:"type:varchar(36);index"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

// ExportArchive tracks a CSV export stored in the object store.
type ExportArchive struct {
	Key         string    `gorm:"primaryKey;type:varchar(512);not null"`
	EndpointID  string    `gorm:"type:varchar(128);not null;index"`
	RangeStart  time.Time `gorm:"not null"`
	RangeEnd    time.Time `gorm:"not null"`
	ContentType string    `gorm:"type:varchar(128);not null"`
	SizeBytes   int64     `gorm:"not null;default:-1"`
	StoredAt    time.Time `gorm:"index;not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	LastAccess  time.Time `gorm:"index;not null"`
}

// SessionRecord persists the operator session between server restarts.
type SessionRecord struct {
	Key          string    `gorm:"primaryKey;type:varchar(128);not null"`
	Username     string    `gorm:"type:varchar(255);not null"`
	IDToken      string    `gorm:"type:text;not null"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	ExpiresAt    time.Time `gorm:"not null"`
	Binding      string    `gorm:"type:varchar(64)"`
	UpdatedAt    time.Time
}

func (AccessLog) TableName() string {
	return "access_logs"
}

func (ExportArchive) TableName() string {
	return "export_archives"
}

func (SessionRecord) TableName() string {
	return "sessions"
}
