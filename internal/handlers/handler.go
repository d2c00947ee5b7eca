package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sirupsen/logrus"
)

// Sessions is the subset of session.Manager the handlers drive.
type Sessions interface {
	Status() session.Status
	Login(ctx context.Context, identifier, secret string) (*session.Session, error)
	Signup(ctx context.Context, identifier, secret string, profile session.Profile) (*identity.SignupResult, error)
	ConfirmSignup(ctx context.Context, username, code string) error
	ResendConfirmationCode(ctx context.Context, username string) (string, error)
	Logout(ctx context.Context)
	ForgotPassword(ctx context.Context, identifier string) (string, error)
	ResetPassword(ctx context.Context, identifier, code, newSecret string) error
	Bind(ctx context.Context, token string) error
	Authorized(token string) bool
}

type EndpointAPI interface {
	List(ctx context.Context, params monitorapi.ListEndpointsParams) (*models.EndpointPage, error)
	Get(ctx context.Context, id string) (*models.Endpoint, error)
	Create(ctx context.Context, in models.EndpointInput) (*models.Endpoint, error)
	Update(ctx context.Context, id string, in models.EndpointInput) (*models.Endpoint, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Endpoint, error)
	Delete(ctx context.Context, id string) error
}

type LogAPI interface {
	List(ctx context.Context, endpointID string, params monitorapi.ListLogsParams) (*models.LogPage, error)
	ListRange(ctx context.Context, endpointID string, r models.TimeRange, params monitorapi.ListLogsParams) (*models.LogPage, error)
	Stats(ctx context.Context, params monitorapi.StatsParams) (*models.Statistics, error)
	Export(ctx context.Context, endpointID string, r models.TimeRange) ([]byte, error)
}

// ExportArchive is implemented by storage.Archive.
type ExportArchive interface {
	Archivable(r models.TimeRange) bool
	Get(ctx context.Context, endpointID string, r models.TimeRange) ([]byte, error)
	Put(ctx context.Context, endpointID string, r models.TimeRange, content []byte) error
}

type Option func(*DashboardHandler)

func WithArchive(a ExportArchive) Option {
	return func(h *DashboardHandler) {
		h.archive = a
	}
}

// WithProxyTrust sets which reverse proxies may report the client address.
func WithProxyTrust(p *ProxyTrust) Option {
	return func(h *DashboardHandler) {
		h.proxies = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *DashboardHandler) {
		h.now = now
	}
}

type DashboardHandler struct {
	sessions  Sessions
	endpoints EndpointAPI
	logs      LogAPI
	archive   ExportArchive
	proxies   *ProxyTrust
	log       *logrus.Entry
	now       func() time.Time
}

func NewDashboardHandler(logger *logrus.Logger, sessions Sessions, endpoints EndpointAPI, logs LogAPI, opts ...Option) *DashboardHandler {
	h := &DashboardHandler{
		sessions:  sessions,
		endpoints: endpoints,
		logs:      logs,
		log:       logger.WithField("component", "dashboard_handler"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardHandler) clientIP(r *http.Request) string {
	return h.proxies.ClientIP(r)
}
