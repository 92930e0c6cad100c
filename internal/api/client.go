package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the v1 API root.
	DefaultBaseURL = "http://api.icontact.com/icp/core/api/v1.0/"
	// V2BaseURL is the v2.2 API root.
	V2BaseURL = "https://app.icontact.com/icp"
	// DefaultMaxRetries is the retry counter ceiling.
	DefaultMaxRetries = 5
	// DefaultBackoffUnit scales the backoff between retries.
	DefaultBackoffUnit = time.Second
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client runs calls through the request pipeline: credential injection,
// signing, dispatch, classification, backoff and re-authentication.
//
// A Client is meant for one logical caller. Execute is serialised by an
// internal lock; callers that need parallelism use several clients, which
// may share a CredentialStore.
type Client struct {
	mu sync.Mutex

	baseURL    string
	scheme     Scheme
	httpClient Doer
	retry      *RetryConfig
	auth       Authenticator
	store      CredentialStore
	limiter    *rate.Limiter
	metrics    *Metrics
	log        *zap.Logger

	session Session
	retries int
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for dispatch.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.httpClient.(*http.Client); ok {
			hc.Timeout = timeout
		}
	}
}

// WithRetryConfig replaces the retry configuration.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(c *Client) {
		if cfg != nil {
			c.retry = cfg
		}
	}
}

// WithLogin makes the client log in with the v1 login call when it needs a
// session. passwordMD5 is the hex MD5 of the application password.
func WithLogin(username, passwordMD5 string) Option {
	return func(c *Client) {
		c.auth = &loginAuthenticator{c: c, username: username, passwordMD5: passwordMD5}
	}
}

// WithAuthenticator sets a custom session source. It replaces WithLogin.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithCredentialStore shares sessions through s.
func WithCredentialStore(s CredentialStore) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithLimiter throttles dispatch through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates an API client for scheme. When a CredentialStore is
// configured, its session is loaded once here.
func New(scheme Scheme, opts ...Option) (*Client, error) {
	if scheme == nil {
		return nil, errors.New("api: scheme is required")
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		scheme:     scheme,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      DefaultRetryConfig(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()

		s, err := c.store.Credentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored credentials: %w", err)
		}
		c.session = s
	}

	return c, nil
}

// Execute runs req through the pipeline and returns the successful envelope.
//
// Rate-limited calls and calls rejected for a stale session are retried
// after a jittered backoff; any other failure is returned at once. Once the
// retry counter exceeds the configured maximum, Execute fails without
// issuing a request until ResetRetries is called.
func (c *Client) Execute(ctx context.Context, req *Request) (*Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run(ctx, req, false)
}

// run is the pipeline loop. nested marks calls issued by the default
// authenticator from inside another run; their success leaves the retry
// counter alone so a login cannot reset the budget of the call it serves.
func (c *Client) run(ctx context.Context, req *Request, nested bool) (*Envelope, error) {
	if req == nil {
		return nil, errors.New("api: nil request")
	}

	log := c.log.With(
		zap.String("call_id", uuid.NewString()),
		zap.String("path", req.Path),
	)

	for {
		if c.retries > c.retry.MaxRetries {
			log.Warn("retry budget exhausted", zap.Int("retries", c.retries))
			return nil, &RetryExhaustedError{Path: req.Path, MaxRetries: c.retry.MaxRetries}
		}

		if c.scheme.NeedsSession(req.Path) && !c.session.Valid() {
			c.retries++
			if err := c.authenticate(ctx, log); err != nil {
				return nil, err
			}
			continue
		}

		env, err := c.attempt(ctx, req, log)
		if err != nil {
			return nil, err
		}

		decision := c.scheme.Classify(env)
		if decision == DecisionStaleSession && !c.scheme.NeedsSession(req.Path) {
			decision = DecisionFail
		}

		switch decision {
		case DecisionSuccess:
			if !nested {
				c.retries = 0
			}
			return env, nil

		case DecisionRateLimited:
			c.retries++
			c.metrics.retry("rate_limited")
			log.Warn("rate limited, backing off",
				zap.String("code", env.Code),
				zap.Int("retries", c.retries))
			if err := c.retry.Wait(ctx, c.retries); err != nil {
				return nil, err
			}

		case DecisionStaleSession:
			c.metrics.retry("stale_session")
			log.Warn("session rejected, logging in again", zap.Int("retries", c.retries))
			if err := c.retry.Wait(ctx, c.retries); err != nil {
				return nil, err
			}
			c.retries++
			c.session = Session{}
			if c.retries > c.retry.MaxRetries {
				continue
			}
			if err := c.authenticate(ctx, log); err != nil {
				return nil, err
			}

		default:
			return nil, &APIError{
				Path:       req.Path,
				Code:       env.Code,
				Message:    env.Message,
				StatusCode: env.StatusCode,
			}
		}
	}
}

// attempt issues one HTTP request and parses the response. It never
// retries.
func (c *Client) attempt(ctx context.Context, req *Request, log *zap.Logger) (*Envelope, error) {
	params := make(map[string]string, len(req.Params)+4)
	for k, v := range req.Params {
		params[k] = v
	}
	header := make(http.Header)
	c.scheme.Prepare(req.Path, params, req.payload(), c.session, header)

	httpReq, err := newHTTPRequest(ctx, c.baseURL, req, params, header)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", req.Path, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	log.Debug("dispatching request",
		zap.String("method", httpReq.Method),
		zap.String("api_sig", params[SignatureParam]),
		zap.Int("retries", c.retries))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest("network_error", time.Since(start))
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactedURL(httpReq)
		}
		return nil, &NetworkError{Err: err, URL: redactedURL(httpReq)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observeRequest("network_error", time.Since(start))
		return nil, &NetworkError{Err: err, URL: redactedURL(httpReq)}
	}

	env, err := parseEnvelope(c.scheme.Format(), resp.StatusCode, body)
	if err != nil {
		c.metrics.observeRequest("parse_error", time.Since(start))
		return nil, &ParseError{Path: req.Path, StatusCode: resp.StatusCode, Err: err}
	}

	c.metrics.observeRequest(requestOutcome(c.scheme.Classify(env), env), time.Since(start))
	log.Debug("response received",
		zap.Int("status", resp.StatusCode),
		zap.Bool("ok", env.OK),
		zap.String("code", env.Code))

	return env, nil
}

// requestOutcome maps a response to one of a fixed set of metric labels.
func requestOutcome(d Decision, env *Envelope) string {
	switch d {
	case DecisionSuccess, DecisionRateLimited, DecisionStaleSession:
		return d.String()
	}
	if env.Code == CodeUnauthorized {
		return "unauthorized"
	}
	return "error"
}

// authenticate obtains a new session and forwards it to the store.
func (c *Client) authenticate(ctx context.Context, log *zap.Logger) error {
	if c.auth == nil {
		return ErrMissingCredentials
	}

	s, err := c.auth.Login(ctx)
	if err != nil {
		return err
	}
	if !s.Valid() {
		return &ParseError{Path: LoginPath, Err: errors.New("authenticator returned an empty token")}
	}

	c.session = s
	c.metrics.login()
	log.Info("logged in", zap.Int64("seq", s.Sequence))

	if c.store != nil {
		if err := c.store.SetCredentials(ctx, s); err != nil {
			log.Warn("store credentials", zap.Error(err))
		}
	}
	return nil
}

// Login obtains a new session through the authenticator, replacing the
// current one, and resets the retry counter.
func (c *Client) Login(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.With(zap.String("call_id", uuid.NewString()), zap.String("path", LoginPath))
	if err := c.authenticate(ctx, log); err != nil {
		return Session{}, err
	}
	c.retries = 0
	return c.session, nil
}

// Session returns the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession replaces the current session.
func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Retries returns the retry counter.
func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// ResetRetries sets the retry counter back to zero so an exhausted client
// can issue calls again.
func (c *Client) ResetRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries = 0
}

// redactedURL drops the query string, which carries credentials for the v1
// API.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "?")
}
