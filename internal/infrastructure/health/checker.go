package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/retry"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options controls the probe policy. The status-code policy is
// configurable because which paths a deployment exposes, and which
// statuses its gateway returns to anonymous probes, vary per install.
type Options struct {
	PrimaryPath     string
	FallbackPath    string
	HealthyStatuses []int
	Attempts        int
	AttemptTimeout  time.Duration
	RetryDelay      time.Duration
	ProbesPerMinute float64
}

// DefaultOptions matches the documented policy: three attempts, two
// seconds apart, ten seconds per attempt, 401/403 healthy.
func DefaultOptions() Options {
	return Options{
		PrimaryPath:     "/",
		FallbackPath:    "/openvidu/api/config",
		HealthyStatuses: []int{http.StatusUnauthorized, http.StatusForbidden},
		Attempts:        3,
		AttemptTimeout:  10 * time.Second,
		RetryDelay:      2 * time.Second,
		ProbesPerMinute: 30,
	}
}

// Checker probes a remote video platform and classifies ambiguous
// outcomes. A 401/403 means the platform is reachable and responding; it
// is merely rejecting unauthenticated probing, so it counts as healthy.
type Checker struct {
	baseURL string
	opts    Options
	healthy map[int]struct{}
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewChecker creates a checker for the platform at baseURL.
func NewChecker(baseURL string, opts Options, logger *zap.SugaredLogger) *Checker {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if opts.PrimaryPath == "" {
		opts.PrimaryPath = "/"
	}
	healthy := make(map[int]struct{}, len(opts.HealthyStatuses))
	for _, s := range opts.HealthyStatuses {
		healthy[s] = struct{}{}
	}
	limit := rate.Inf
	if opts.ProbesPerMinute > 0 {
		limit = rate.Limit(opts.ProbesPerMinute / 60)
	}
	return &Checker{
		baseURL: baseURL,
		opts:    opts,
		healthy: healthy,
		client: &http.Client{
			Timeout: opts.AttemptTimeout,
		},
		limiter: rate.NewLimiter(limit, opts.Attempts),
		logger:  logger,
	}
}

type probeError struct {
	kind   domain.ErrorKind
	status int
	msg    string
	cause  error
}

func (e *probeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *probeError) Unwrap() error { return e.cause }

// CheckHealth probes the platform with bounded retries and a fixed delay
// between attempts. Exponential backoff is deliberately not used here:
// the check runs synchronously in front of token issuance and must not
// block callers for long.
func (c *Checker) CheckHealth(ctx context.Context, provider string) domain.ProviderHealth {
	result := domain.ProviderHealth{
		Provider:      provider,
		LastCheckedAt: time.Now(),
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warnw("health probe rate limit wait aborted",
			"provider", provider,
			"error", err,
		)
		result.LastError = domain.ErrorKindConnection
		return result
	}

	policy := retry.Fixed(c.opts.Attempts, c.opts.RetryDelay)
	err := retry.Run(ctx, policy, func(ctx context.Context) error {
		return c.probe(ctx)
	})
	if err != nil {
		kind := classifyKind(err)
		c.logger.Warnw("provider health check failed",
			"provider", provider,
			"url", c.baseURL,
			"kind", kind,
			"error", err,
		)
		result.LastError = kind
		return result
	}

	result.IsUp = true
	c.logger.Debugw("provider health check passed",
		"provider", provider,
		"url", c.baseURL,
	)
	return result
}

// probe performs one attempt: primary endpoint first, then the documented
// public fallback when the primary answers with an unexpected 4xx.
func (c *Checker) probe(ctx context.Context) error {
	err := c.request(ctx, c.opts.PrimaryPath)
	if err == nil {
		return nil
	}
	if retry.IsPermanent(err) || c.opts.FallbackPath == "" {
		return err
	}
	var pe *probeError
	if errors.As(err, &pe) {
		if pe.kind == domain.ErrorKindConnection {
			// The host itself is unreachable; a second path will not help.
			return err
		}
		if pe.status >= 500 {
			// The platform answered and is failing. The fallback exists to
			// prove reachability, which is not in question here.
			return err
		}
	}

	fbErr := c.request(ctx, c.opts.FallbackPath)
	if fbErr == nil {
		return nil
	}
	if retry.IsPermanent(fbErr) {
		return fbErr
	}
	// Keep the primary endpoint's classification; the fallback only gets
	// a chance to prove the platform reachable.
	return err
}

// request probes one path and classifies the response.
func (c *Checker) request(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &probeError{kind: domain.ErrorKindServer, msg: "building probe request", cause: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Connection refused, DNS failure, timeout. Points at network or
		// deployment rather than the platform.
		return &probeError{kind: domain.ErrorKindConnection, msg: "probe transport failure", cause: err}
	}
	defer resp.Body.Close()

	return c.classifyStatus(resp.StatusCode)
}

func (c *Checker) classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 400:
		return nil
	case status == http.StatusServiceUnavailable:
		// The platform is self-reporting down; retrying is wasted work.
		return retry.Permanent(&probeError{
			kind:   domain.ErrorKindServer,
			status: status,
			msg:    "platform reports service unavailable (503)",
		})
	}
	if _, ok := c.healthy[status]; ok {
		return nil
	}
	if status >= 500 {
		return &probeError{
			kind:   domain.ErrorKindServer,
			status: status,
			msg:    fmt.Sprintf("platform returned %d", status),
		}
	}
	return &probeError{
		kind:   domain.ErrorKindServer,
		status: status,
		msg:    fmt.Sprintf("unexpected status %d", status),
	}
}

func classifyKind(err error) domain.ErrorKind {
	var pe *probeError
	if errors.As(err, &pe) {
		return pe.kind
	}
	return domain.ErrorKindServer
}
