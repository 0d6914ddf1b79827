package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/medscan/medscan-api/pkg/circuitbreaker"
	apperrors "github.com/medscan/medscan-api/pkg/errors"
	"github.com/medscan/medscan-api/pkg/metrics"
)

const (
	DefaultURL     = "https://api-inference.huggingface.co/models/facebook/mbart-large-50-many-to-many-mmt"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
	maxErrorSnippet  = 512
)

// Config holds the settings for the Hugging Face inference client.
type Config struct {
	URL              string
	APIKey           string
	Timeout          time.Duration
	RatePerSecond    float64
	Burst            int
	BreakerThreshold int
	BreakerTimeout   time.Duration
}

// Client calls a Hugging Face token-classification endpoint. Every call is
// rate limited, bounded by the configured timeout and guarded by a circuit
// breaker. Failures are returned as *apperrors.AppError with an AI code.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	c := &Client{
		httpClient: &http.Client{},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "ai-extractor",
			MaxFailures: cfg.BreakerThreshold,
			Timeout:     cfg.BreakerTimeout,
			IsFailure:   countsAgainstBreaker,
		}),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState exposes the circuit breaker position for readiness checks.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Extract sends text to the inference endpoint and decodes the entity list.
func (c *Client) Extract(ctx context.Context, text string) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var entities []Entity
	err := c.breaker.Execute(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.RateLimited(err)
		}

		var callErr error
		entities, callErr = c.call(ctx, text)
		return callErr
	})

	c.observe(start, err)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Check issues a GET against the model URL, as done at startup to confirm the
// key and endpoint work.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return apperrors.AIUnavailable(err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.AIStatus(resp.StatusCode, readSnippet(resp.Body))
	}
	return nil
}

func (c *Client) call(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to encode inference request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.AIUnavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.AIStatus(resp.StatusCode, readSnippet(resp.Body))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	return decodeEntities(raw)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) observe(start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug().Err(err).Dur("elapsed", elapsed).Str("code", apperrors.CodeOf(err).String()).Msg("inference call failed")
	}

	if c.metrics == nil {
		return
	}
	c.metrics.AILatency.Observe(elapsed.Seconds())
	if err != nil {
		c.metrics.AIRequests.WithLabelValues("error").Inc()
		c.metrics.AIFailures.WithLabelValues(apperrors.CodeOf(err).String()).Inc()
		return
	}
	c.metrics.AIRequests.WithLabelValues("ok").Inc()
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// inferenceEntity mirrors one element of the token-classification response.
// Pipelines with aggregation report entity_group, raw ones report entity.
type inferenceEntity struct {
	Entity      *string  `json:"entity"`
	EntityGroup *string  `json:"entity_group"`
	Word        *string  `json:"word"`
	Score       *float64 `json:"score"`
}

// decodeEntities accepts only a JSON array of objects that each carry an
// entity label and a word. Anything else is malformed. An entity without a
// score is taken as fully confident.
func decodeEntities(raw []byte) ([]Entity, error) {
	var items []inferenceEntity
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperrors.AIMalformed(err)
	}
	if items == nil {
		return nil, apperrors.AIMalformed(errors.New("response is not an entity list"))
	}

	entities := make([]Entity, 0, len(items))
	for i, item := range items {
		label := item.EntityGroup
		if label == nil {
			label = item.Entity
		}
		if label == nil || item.Word == nil {
			return nil, apperrors.AIMalformed(fmt.Errorf("entity %d is missing its label or word", i))
		}

		e := Entity{Type: parseEntityType(*label), Word: strings.TrimSpace(*item.Word), Score: 1}
		if item.Score != nil {
			e.Score = *item.Score
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.AITimeout(err)
	}
	return apperrors.AIUnavailable(err)
}

// countsAgainstBreaker excludes caller cancellation and local rate limiting.
func countsAgainstBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !apperrors.Is(err, apperrors.ErrRateLimited)
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorSnippet))
	return strings.TrimSpace(string(b))
}
