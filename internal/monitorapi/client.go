// Package monitorapi is the client for the monitoring backend's REST API.
// Every call carries a bearer token fetched at dispatch time; a 401 triggers
// one forced token refresh and one replay, never more.
package monitorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/metrics"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "UptimeDashboard/1.0"
	maxErrorBody     = 64 << 10
)

// TokenSource hands out the bearer token for the next request. Implemented
// by session.Manager.
type TokenSource interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTransport replaces the RoundTripper underneath the logging transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport.next = rt
		}
	}
}

// WithOnExpired registers the redirect hook run when authorization cannot
// be recovered.
func WithOnExpired(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit caps outbound requests per second. Zero disables it.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	transport  *loggingTransport
	tokens     TokenSource
	onExpired  func(ctx context.Context)
	metrics    *metrics.Manager
	limiter    *rate.Limiter
	userAgent  string
	log        *logrus.Entry

	Endpoints *EndpointService
	Logs      *LogService
}

type loggingTransport struct {
	log  *logrus.Entry
	next http.RoundTripper
}

func NewClient(logger *logrus.Logger, baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("api base url must be absolute: %q", baseURL)
	}

	transport := &loggingTransport{
		log:  logger.WithField("component", "monitorapi_transport"),
		next: http.DefaultTransport,
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
		transport: transport,
		tokens:    tokens,
		userAgent: defaultUserAgent,
		log:       logger.WithField("component", "monitorapi_client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Endpoints = &EndpointService{client: c}
	c.Logs = &LogService{client: c}
	return c, nil
}

// call describes one logical API operation. It is rebuilt into a fresh
// *http.Request for every network attempt.
type call struct {
	method string
	route  string
	path   []string
	query  url.Values
	body   any
	accept string
}

func (c *call) displayPath() string {
	if c.route != "" {
		return c.route
	}
	return "/"
}

func (c *Client) newRequest(ctx context.Context, cl *call, token string) (*http.Request, error) {
	u := c.baseURL.JoinPath(cl.path...)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.displayPath(), err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.displayPath(), err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.accept != "" {
		req.Header.Set("Accept", cl.accept)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do runs the call. attempt is 0 for the first dispatch and 1 for the single
// replay after a 401.
func (c *Client) do(ctx context.Context, cl *call, attempt int) (*http.Response, error) {
	log := c.log.WithFields(logrus.Fields{
		"method":  cl.method,
		"route":   cl.displayPath(),
		"attempt": attempt,
	})

	token, err := c.bearer(ctx, attempt)
	switch {
	case err == nil:
	case !authRejected(err):
		log.WithError(err).Warn("Token unavailable, keeping the session")
		return nil, &TransportError{Method: cl.method, Path: cl.displayPath(), Err: err}
	case attempt > 0:
		log.WithError(err).Warn("Forced token refresh rejected")
		return nil, c.expire(ctx, cl, err)
	default:
		log.WithError(err).Debug("Dispatching without a bearer token")
		token = ""
	}

	req, err := c.newRequest(ctx, cl, token)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: cl.method, Path: cl.displayPath(), Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(cl.method, cl.displayPath(), 0, time.Since(start))
		log.WithError(err).Error("Request failed")
		return nil, &TransportError{Method: cl.method, Path: cl.displayPath(), Err: err}
	}
	c.metrics.RecordAPIRequest(cl.method, cl.displayPath(), resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if attempt == 0 {
		log.Info("Request unauthorized, refreshing token and replaying once")
		c.metrics.RecordAuthReplay()
		return c.do(ctx, cl, attempt+1)
	}
	log.Warn("Replayed request unauthorized")
	return nil, c.expire(ctx, cl, nil)
}

// authRejected reports whether a token error means the session is gone, as
// opposed to the identity provider being unreachable.
func authRejected(err error) bool {
	var authErr *identity.AuthError
	return errors.As(err, &authErr) || errors.Is(err, session.ErrUnauthenticated)
}

func (c *Client) bearer(ctx context.Context, attempt int) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.Token(ctx, attempt > 0)
}

func (c *Client) expire(ctx context.Context, cl *call, cause error) error {
	c.metrics.RecordAuthExpired()
	if c.onExpired != nil {
		c.onExpired(ctx)
	}
	return &AuthorizationExpiredError{Method: cl.method, Path: cl.displayPath(), Err: cause}
}

// send runs the call and turns non-2xx responses into *ServerError.
func (c *Client) send(ctx context.Context, cl *call) (*http.Response, error) {
	resp, err := c.do(ctx, cl, 0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{
			Method:     cl.method,
			Path:       cl.displayPath(),
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}
	return resp, nil
}

func (c *Client) sendJSON(ctx context.Context, cl *call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.displayPath(), err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := t.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	})

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("HTTP request completed")
	return resp, nil
}
