// Package transport executes outbound carrier HTTP calls with auth
// attachment, timeouts, retry with backoff, and rate-limit pacing.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier"
	"github.com/RedwanAhmedTapu/multivendorbackend-sub002/pkg/courier/ratelimit"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Authenticator attaches carrier credentials to outbound requests.
// Attach may perform a credential exchange when no token is cached;
// Invalidate drops cached credentials after an upstream 401 so the next
// Attach re-authenticates.
type Authenticator interface {
	Attach(ctx context.Context, req *http.Request) error
	Invalidate(ctx context.Context)
}

// Policy holds the retry parameters for one carrier.
type Policy struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultPolicy mirrors the carrier-agnostic defaults: 30s timeout, three
// attempts, 1s base delay.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// Config configures an Executor.
type Config struct {
	Provider string
	BaseURL  string
	Policy   Policy
	Limiter  *ratelimit.Limiter
	Auth     Authenticator
	Logger   *otelzap.Logger

	// HTTPClient overrides the default client. Its timeout is left as-is
	// when set; otherwise a client with Policy.Timeout is used.
	HTTPClient *http.Client

	// SleepFunc overrides backoff sleeps. Test hook.
	SleepFunc func(ctx context.Context, d time.Duration) error
}

// Request is one outbound carrier call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is the raw upstream response. Only 2xx responses are returned;
// everything else surfaces as a courier error. Adapters still inspect the
// body for embedded error envelopes, which carriers routinely send inside
// an HTTP 200.
type Response struct {
	StatusCode int
	Body       []byte
}

// Executor wraps outbound calls for one carrier. All calls run inside the
// limiter slot, so one adapter's requests never overlap and the full retry
// sequence of request N completes before request N+1 starts.
type Executor struct {
	provider string
	baseURL  string
	policy   Policy
	limiter  *ratelimit.Limiter
	auth     Authenticator
	logger   *otelzap.Logger
	httpc    *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates an Executor. Zero policy fields fall back to defaults.
func New(cfg Config) *Executor {
	def := DefaultPolicy()
	if cfg.Policy.Timeout <= 0 {
		cfg.Policy.Timeout = def.Timeout
	}
	if cfg.Policy.RetryAttempts <= 0 {
		cfg.Policy.RetryAttempts = def.RetryAttempts
	}
	if cfg.Policy.RetryDelay <= 0 {
		cfg.Policy.RetryDelay = def.RetryDelay
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Policy.Timeout}
	}

	sleep := cfg.SleepFunc
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return &Executor{
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		policy:   cfg.Policy,
		limiter:  cfg.Limiter,
		auth:     cfg.Auth,
		logger:   cfg.Logger,
		httpc:    httpc,
		sleep:    sleep,
	}
}

// Do executes the request through the limiter with the full retry policy.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	run := func(ctx context.Context) error {
		var err error
		resp, err = e.doWithRetry(ctx, req)
		return err
	}

	if e.limiter == nil {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return resp, nil
	}
	if err := e.limiter.Do(ctx, run); err != nil {
		return nil, err
	}
	return resp, nil
}

func (e *Executor) doWithRetry(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= e.policy.RetryAttempts; attempt++ {
		resp, err := e.attempt(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network failure or timeout: linear backoff, then retry.
			lastErr = err
			lastStatus = 0
			e.warn("request failed, retrying",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if attempt < e.policy.RetryAttempts {
				if serr := e.sleep(ctx, e.policy.RetryDelay*time.Duration(attempt)); serr != nil {
					return nil, serr
				}
			}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized:
			// Token likely expired: drop it and retry immediately. The
			// next Attach re-authenticates. Bounded by the attempt budget.
			lastErr = courier.ErrAuthenticationFailed
			lastStatus = resp.StatusCode
			if e.auth != nil {
				e.auth.Invalidate(ctx)
			}
			e.warn("unauthorized, re-authenticating",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
			)

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = courier.ErrRateLimitExceeded
			lastStatus = resp.StatusCode
			backoff := e.policy.RetryDelay * time.Duration(1<<attempt)
			e.warn("rate limited, backing off",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			if attempt < e.policy.RetryAttempts {
				if serr := e.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
			}

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			lastStatus = resp.StatusCode
			e.warn("upstream error, retrying",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			if attempt < e.policy.RetryAttempts {
				if serr := e.sleep(ctx, e.policy.RetryDelay*time.Duration(attempt)); serr != nil {
					return nil, serr
				}
			}

		default:
			// Terminal 4xx: no retry, surface the upstream message.
			return nil, courier.NewError(e.provider, courier.CodeUpstreamClient,
				upstreamMessage(resp.Body, resp.StatusCode)).
				WithStatusCode(resp.StatusCode)
		}
	}

	code := courier.CodeUpstreamTransient
	switch lastStatus {
	case http.StatusUnauthorized:
		code = courier.CodeAuthentication
	case http.StatusTooManyRequests:
		code = courier.CodeRateLimit
	}
	return nil, courier.NewError(e.provider, code,
		fmt.Sprintf("%s %s failed after %d attempts", req.Method, req.Path, e.policy.RetryAttempts)).
		WithStatusCode(lastStatus).
		WithCause(lastErr)
}

// attempt performs one HTTP round trip. Status codes are inspected by the
// caller, never converted to transport errors, so 4xx bodies stay readable.
func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	u := e.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}
	if e.auth != nil {
		if err := e.auth.Attach(ctx, httpReq); err != nil {
			return nil, err
		}
	}

	httpResp, err := e.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: raw}, nil
}

func (e *Executor) warn(msg string, fields ...zap.Field) {
	if e.logger != nil {
		e.logger.Warn(msg, append(fields, zap.String("provider", e.provider))...)
	}
}

// upstreamMessage pulls a human-readable message out of an error body.
// Carriers disagree on the envelope, so a few common shapes are tried.
func upstreamMessage(body []byte, status int) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if len(body) > 0 && len(body) <= 200 {
		return fmt.Sprintf("upstream status %d: %s", status, string(body))
	}
	return fmt.Sprintf("upstream status %d", status)
}
