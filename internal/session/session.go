// Package session holds the operator's authenticated identity for the
// lifetime of the process and hands fresh bearer tokens to the API client.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated is returned when no operator is signed in.
var ErrUnauthenticated = errors.New("no active session")

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "invalid"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Session struct {
	Username     string    `json:"username"`
	IDToken      string    `json:"id_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Binding is the hash of the browser token allowed to act as this
	// session on the dashboard server. Empty until Bind is called.
	Binding string `json:"binding,omitempty"`
}

func (s *Session) expiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(s.ExpiresAt)
}

// Store persists a session between process runs. Load returns (nil, nil)
// when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
