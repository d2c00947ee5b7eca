package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sirupsen/logrus"
)

const defaultRefreshSkew = time.Minute

// Status is what the view layer renders: who is signed in and whether an
// auth operation is in flight.
type Status struct {
	State   State             `json:"state"`
	Loading bool              `json:"loading"`
	User    *identity.Profile `json:"user,omitempty"`
}

// Profile carries the optional signup attributes.
type Profile struct {
	GivenName  string
	FamilyName string
}

type Option func(*Manager)

// WithListener registers a callback invoked on every state transition.
func WithListener(fn func(State)) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, fn)
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.skew = d
		}
	}
}

// Manager is the single source of truth for whether an operator is signed in.
// Operations are serialised by opMu; mu guards the fields read by Status.
type Manager struct {
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	session *Session
	user    *identity.Profile

	provider  identity.Provider
	store     Store
	log       *logrus.Entry
	listeners []func(State)
	now       func() time.Time
	skew      time.Duration
}

func NewManager(logger *logrus.Logger, provider identity.Provider, store Store, opts ...Option) *Manager {
	m := &Manager{
		state:    StateLoading,
		provider: provider,
		store:    store,
		log:      logger.WithField("component", "session"),
		now:      time.Now,
		skew:     defaultRefreshSkew,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{State: m.state, Loading: m.state == StateLoading}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	return st
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Manager) setSession(s *Session, user *identity.Profile) {
	m.mu.Lock()
	m.session = s
	m.user = user
	m.mu.Unlock()

	if s != nil {
		m.setState(StateAuthenticated)
	} else {
		m.setState(StateAnonymous)
	}
}

func (m *Manager) snapshot() (State, *Session, *identity.Profile) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.session, m.user
}

// transient runs fn inside the Loading sub-state, then settles on the state
// implied by the current session.
func (m *Manager) transient(fn func() error) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	_, s, user := m.snapshot()
	m.setState(StateLoading)
	defer m.setSession(s, user)
	return fn()
}

// Restore loads a persisted session at startup. It never fails: a missing,
// unreadable or unrefreshable session leaves the manager Anonymous.
func (m *Manager) Restore(ctx context.Context) Status {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setState(StateLoading)

	s, err := m.store.Load(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Failed to load stored session")
	}
	if s == nil {
		m.setSession(nil, nil)
		return m.Status()
	}

	if s.expiresWithin(m.now(), m.skew) {
		if s, err = m.refreshLocked(ctx, s); err != nil {
			m.log.WithError(err).Info("Stored session could not be refreshed")
			m.setSession(nil, nil)
			return m.Status()
		}
	}

	user, err := m.provider.Profile(ctx, s.AccessToken)
	if err != nil {
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			m.log.WithError(err).Info("Stored session was rejected")
			m.clearStore(ctx)
			m.setSession(nil, nil)
			return m.Status()
		}
		m.log.WithError(err).Warn("Profile lookup failed, keeping stored session")
		user = &identity.Profile{Username: s.Username}
	}

	m.setSession(s, user)
	m.log.WithField("username", s.Username).Info("Session restored")
	return m.Status()
}

// CurrentSession returns a copy of the active session.
func (m *Manager) CurrentSession(_ context.Context) (*Session, error) {
	_, s, _ := m.snapshot()
	if s == nil {
		return nil, ErrUnauthenticated
	}
	cp := *s
	return &cp, nil
}

func (m *Manager) Login(ctx context.Context, identifier, secret string) (*Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	_, prevSession, prevUser := m.snapshot()
	restore := func() { m.setSession(prevSession, prevUser) }

	m.setState(StateLoading)
	identifier = normalizeIdentifier(identifier)
	log := m.log.WithFields(logrus.Fields{"operation": "login", "identifier": identifier})

	tokens, err := m.provider.Authenticate(ctx, identifier, secret)
	if err != nil {
		log.WithError(err).Info("Login failed")
		restore()
		return nil, err
	}

	user, err := m.provider.Profile(ctx, tokens.AccessToken)
	if err != nil {
		log.WithError(err).Warn("Profile lookup after login failed")
		restore()
		return nil, err
	}

	s := &Session{
		Username:     user.Username,
		IDToken:      tokens.IDToken,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}
	if err := m.store.Save(ctx, s); err != nil {
		log.WithError(err).Warn("Failed to persist session")
	}

	m.setSession(s, user)
	log.WithField("username", user.Username).Info("Logged in")
	cp := *s
	return &cp, nil
}

func (m *Manager) Signup(ctx context.Context, identifier, secret string, profile Profile) (*identity.SignupResult, error) {
	var res *identity.SignupResult
	err := m.transient(func() error {
		reg := identity.Registration{
			Username:   newUsername(m.now()),
			Email:      normalizeIdentifier(identifier),
			Password:   secret,
			GivenName:  strings.TrimSpace(profile.GivenName),
			FamilyName: strings.TrimSpace(profile.FamilyName),
		}

		var err error
		res, err = m.provider.Register(ctx, reg)
		if err != nil {
			return err
		}
		m.log.WithFields(logrus.Fields{
			"operation": "signup",
			"username":  res.Username,
			"confirmed": res.Confirmed,
		}).Info("Account registered")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) ConfirmSignup(ctx context.Context, username, code string) error {
	return m.transient(func() error {
		return m.provider.ConfirmRegistration(ctx, strings.TrimSpace(username), strings.TrimSpace(code))
	})
}

func (m *Manager) ResendConfirmationCode(ctx context.Context, username string) (string, error) {
	var dest string
	err := m.transient(func() error {
		var err error
		dest, err = m.provider.ResendCode(ctx, strings.TrimSpace(username))
		return err
	})
	return dest, err
}

func (m *Manager) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	var dest string
	err := m.transient(func() error {
		var err error
		dest, err = m.provider.ForgotPassword(ctx, normalizeIdentifier(identifier))
		return err
	})
	return dest, err
}

func (m *Manager) ResetPassword(ctx context.Context, identifier, code, newSecret string) error {
	return m.transient(func() error {
		return m.provider.ConfirmForgotPassword(ctx, normalizeIdentifier(identifier), strings.TrimSpace(code), newSecret)
	})
}

// Logout always ends Anonymous. The remote sign-out is best effort.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	_, s, _ := m.snapshot()
	m.setState(StateLoading)

	if s != nil {
		if err := m.provider.SignOut(ctx, s.AccessToken); err != nil {
			m.log.WithError(err).Warn("Remote sign-out failed")
		}
	}
	m.clearStore(ctx)
	m.setSession(nil, nil)
	m.log.Info("Logged out")
}

// Bind ties the active session to token. Any earlier binding stops
// working.
func (m *Manager) Bind(ctx context.Context, token string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	_, s, user := m.snapshot()
	if s == nil {
		return ErrUnauthenticated
	}
	if token == "" {
		return errors.New("bind session: empty token")
	}

	bound := *s
	bound.Binding = hashBinding(token)
	if err := m.store.Save(ctx, &bound); err != nil {
		m.log.WithError(err).Warn("Failed to persist session binding")
	}

	m.mu.Lock()
	m.session = &bound
	m.user = user
	m.mu.Unlock()
	return nil
}

// Authorized reports whether token is the one the active session is bound to.
func (m *Manager) Authorized(token string) bool {
	state, s, _ := m.snapshot()
	return state == StateAuthenticated && bindingMatches(s, token)
}

// Expire drops the session after the API rejected a freshly refreshed token.
func (m *Manager) Expire(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.clearStore(ctx)
	m.setSession(nil, nil)
	m.log.Warn("Session expired")
}

// Token returns the id token to present to the API, refreshing it first
// when forced or when it is about to expire. When an unforced refresh fails
// without the provider rejecting it, the current token is returned for as
// long as it is still valid.
func (m *Manager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	_, s, _ := m.snapshot()
	if s == nil {
		return "", ErrUnauthenticated
	}
	if !forceRefresh && !s.expiresWithin(m.now(), m.skew) {
		return s.IDToken, nil
	}

	refreshed, err := m.refreshLocked(ctx, s)
	if err != nil {
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			m.clearStore(ctx)
			m.setSession(nil, nil)
			return "", err
		}
		if !forceRefresh && m.now().Before(s.ExpiresAt) {
			m.log.WithError(err).Warn("Token refresh failed, using the current token until it expires")
			return s.IDToken, nil
		}
		return "", err
	}

	_, _, user := m.snapshot()
	m.setSession(refreshed, user)
	return refreshed.IDToken, nil
}

func (m *Manager) refreshLocked(ctx context.Context, s *Session) (*Session, error) {
	if s.RefreshToken == "" {
		return nil, fmt.Errorf("refresh session: %w", ErrUnauthenticated)
	}
	tokens, err := m.provider.Refresh(ctx, s.Username, s.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	refreshed := &Session{
		Username:     s.Username,
		IDToken:      tokens.IDToken,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Binding:      s.Binding,
	}
	if err := m.store.Save(ctx, refreshed); err != nil {
		m.log.WithError(err).Warn("Failed to persist refreshed session")
	}
	m.log.WithField("expires_at", refreshed.ExpiresAt).Debug("Session refreshed")
	return refreshed, nil
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.WithError(err).Warn("Failed to clear stored session")
	}
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// newUsername builds the provider-side username. It is never the email so
// that re-registering an address cannot collide with a stale account.
func newUsername(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("user_%d_%s", now.UnixMilli(), suffix)
}
