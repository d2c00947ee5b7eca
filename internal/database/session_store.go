package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"gorm.io/gorm"
)

// SessionStore keeps the server's operator session in the sessions table,
// one row per session key.
type SessionStore struct {
	db  *gorm.DB
	key string
}

func NewSessionStore(db *gorm.DB, key string) *SessionStore {
	return &SessionStore{db: db, key: key}
}

func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	var rec models.SessionRecord
	err := s.db.WithContext(ctx).Where("key = ?", s.key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", s.key, err)
	}
	return sessionFromRecord(&rec), nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	rec := recordFromSession(s.key, sess)
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("save session %s: %w", s.key, err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("key = ?", s.key).Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("clear session %s: %w", s.key, err)
	}
	return nil
}

func recordFromSession(key string, sess *session.Session) *models.SessionRecord {
	return &models.SessionRecord{
		Key:          key,
		Username:     sess.Username,
		IDToken:      sess.IDToken,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		Binding:      sess.Binding,
	}
}

func sessionFromRecord(rec *models.SessionRecord) *session.Session {
	return &session.Session{
		Username:     rec.Username,
		IDToken:      rec.IDToken,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		Binding:      rec.Binding,
	}
}
