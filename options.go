package icontact

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/icontact-sdk/client-go/internal/api"
)

const (
	// DefaultBaseURL is the v1 API root.
	DefaultBaseURL = api.DefaultBaseURL
	// V2BaseURL is the v2.2 API root.
	V2BaseURL = api.V2BaseURL
	// DefaultMaxRetries is the default retry counter ceiling.
	DefaultMaxRetries = api.DefaultMaxRetries
	// DefaultBackoffUnit is the default backoff scale.
	DefaultBackoffUnit = api.DefaultBackoffUnit

	defaultTimeout = api.DefaultTimeout
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	maxRetries    int
	backoffUnit   time.Duration
	logger        *zap.Logger
	store         CredentialStore
	authenticator Authenticator
	rateLimit     rate.Limit
	rateBurst     int
	registerer    prometheus.Registerer
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of a single HTTP request. It has no effect
// when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the retry counter ceiling.
// Default: 5
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.maxRetries = count
	}
}

// WithBackoffUnit scales the jittered backoff between retries. The delay
// before a retry is a random fraction of retries * unit.
// Default: 1 second
func WithBackoffUnit(unit time.Duration) Option {
	return func(c *clientConfig) {
		c.backoffUnit = unit
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithCredentialStore shares login sessions through store. The store is
// read once when the client is created and written after every login.
func WithCredentialStore(store CredentialStore) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithAuthenticator replaces the built-in login call. The authenticator
// must not call back into the client that invokes it.
func WithAuthenticator(a Authenticator) Option {
	return func(c *clientConfig) {
		c.authenticator = a
	}
}

// WithRateLimit throttles requests on the client side to perSecond
// requests with the given burst. The v1 service allows one request per
// second per application.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *clientConfig) {
		c.rateLimit = rate.Limit(perSecond)
		c.rateBurst = burst
	}
}

// WithMetrics registers Prometheus collectors for requests, retries and
// logins with reg. Clients sharing a registerer share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

func newConfig(baseURL string, opts []Option) *clientConfig {
	cfg := &clientConfig{
		baseURL:     baseURL,
		timeout:     defaultTimeout,
		maxRetries:  DefaultMaxRetries,
		backoffUnit: DefaultBackoffUnit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(scheme api.Scheme, cfg *clientConfig, extra ...api.Option) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
		api.WithRetryConfig(&api.RetryConfig{
			MaxRetries:  cfg.maxRetries,
			BackoffUnit: cfg.backoffUnit,
		}),
		api.WithLogger(cfg.logger),
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	} else if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.rateLimit > 0 {
		burst := cfg.rateBurst
		if burst < 1 {
			burst = 1
		}
		apiOpts = append(apiOpts, api.WithLimiter(rate.NewLimiter(cfg.rateLimit, burst)))
	}
	if cfg.registerer != nil {
		m, err := api.NewMetrics(cfg.registerer)
		if err != nil {
			return nil, err
		}
		apiOpts = append(apiOpts, api.WithMetrics(m))
	}
	apiOpts = append(apiOpts, extra...)

	return api.New(scheme, apiOpts...)
}

const defaultWaitTimeout = 10 * time.Minute

// waitConfig holds options for WaitForDelivery.
type waitConfig struct {
	timeout      time.Duration
	pollInterval time.Duration
	minReleased  int64
}

// WaitOption configures WaitForDelivery.
type WaitOption func(*waitConfig)

// WithWaitTimeout bounds the whole wait.
// Default: 10 minutes
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// WithPollInterval sets the initial interval between checks. The interval
// grows while nothing changes.
// Default: 2 seconds
func WithPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.pollInterval = interval
	}
}

// WithMinReleased waits until at least n recipients have been released
// instead of the first one.
func WithMinReleased(n int64) WaitOption {
	return func(c *waitConfig) {
		c.minReleased = n
	}
}
