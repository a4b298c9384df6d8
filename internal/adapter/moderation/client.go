// Package moderation calls the external spam classifier.
//
// Every failure (rate limit, open circuit, transport error, timeout, non-200
// status, undecodable body) is reported as domain.ErrModerationUnavailable.
// The classifier is a best-effort signal, so callers log and move on.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	modelName      = "bert"
)

type Config struct {
	URL   string
	Token string

	// Timeout bounds one classifier call; zero means 10s.
	Timeout time.Duration
	// RatePerSecond and Burst throttle outgoing calls; zero RatePerSecond disables throttling.
	RatePerSecond float64
	Burst         int
	// BreakerDelay is how long the breaker stays open before probing again; zero means 30s.
	BreakerDelay time.Duration
}

type request struct {
	APIToken string `json:"api_token"`
	Text     string `json:"text"`
	Model    string `json:"model"`
}

type response struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

type Client struct {
	url     string
	token   string
	http    *http.Client
	breaker circuitbreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	metrics *metrics.ModerationMetrics
}

var _ domain.Classifier = (*Client)(nil)

func NewClient(cfg Config, m *metrics.ModerationMetrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	delay := cfg.BreakerDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	breaker := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "moderation",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.CircuitBreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &Client{
		url:     cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Classify asks the service whether text is spam.
func (c *Client) Classify(ctx context.Context, text string) (domain.Verdict, error) {
	if !c.limiter.Allow() {
		c.metrics.Requests.WithLabelValues("rate_limited").Inc()
		return domain.Verdict{}, fmt.Errorf("classifier rate limit exceeded: %w", domain.ErrModerationUnavailable)
	}
	if !c.breaker.TryAcquirePermit() {
		c.metrics.Requests.WithLabelValues("breaker_open").Inc()
		return domain.Verdict{}, fmt.Errorf("classifier %w: %w", circuitbreaker.ErrOpen, domain.ErrModerationUnavailable)
	}

	start := time.Now()
	verdict, err := c.call(ctx, text)
	c.metrics.RequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.breaker.RecordError(err)
		c.metrics.Requests.WithLabelValues("error").Inc()
		return domain.Verdict{}, fmt.Errorf("%w: %w", domain.ErrModerationUnavailable, err)
	}

	c.breaker.RecordSuccess()
	c.metrics.Requests.WithLabelValues("success").Inc()
	return verdict, nil
}

func (c *Client) call(ctx context.Context, text string) (domain.Verdict, error) {
	body, err := json.Marshal(request{APIToken: c.token, Text: text, Model: modelName})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.Verdict{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return domain.Verdict{Class: domain.SpamClass(out.Class), Confidence: out.Confidence}, nil
}
