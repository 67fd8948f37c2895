// Package criteria turns free text into a normalized food.Constraint using an
// external text-understanding service.
package criteria

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/outbound"
	apperrors "github.com/platewise/engine/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

var tracer = otel.Tracer("github.com/platewise/engine/internal/application/criteria")

// Connector builds the text-understanding client. It is called at most once
// per Extractor.
type Connector interface {
	Connect(ctx context.Context) (outbound.TextCompleter, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (outbound.TextCompleter, error)

// Connect implements Connector
func (f ConnectorFunc) Connect(ctx context.Context) (outbound.TextCompleter, error) {
	return f(ctx)
}

// StaticConnector hands out an already-built client.
func StaticConnector(client outbound.TextCompleter) Connector {
	return ConnectorFunc(func(context.Context) (outbound.TextCompleter, error) {
		return client, nil
	})
}

// Outcome labels the result of one extraction.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeEmpty    Outcome = "empty"
	OutcomeDegraded Outcome = "degraded"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeCacheHit Outcome = "cache_hit"
)

// Observer receives extraction outcomes, e.g. for metrics.
type Observer interface {
	ObserveExtraction(outcome Outcome, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveExtraction(Outcome, time.Duration) {}

// Config controls the extractor
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	CacheTTL    time.Duration
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		MaxAttempts: 2,
		CacheTTL:    15 * time.Minute,
	}
}

// Extractor implements text to Constraint extraction.
type Extractor struct {
	connector Connector
	cache     outbound.CacheRepository
	observer  Observer
	config    Config
	logger    *zap.Logger

	mu     sync.Mutex
	state  ClientState
	client outbound.TextCompleter
}

// Option configures an Extractor
type Option func(*Extractor)

// WithCache enables result caching
func WithCache(cache outbound.CacheRepository) Option {
	return func(e *Extractor) { e.cache = cache }
}

// WithObserver registers an outcome observer
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewExtractor creates an extractor. The client is not built until the first
// Initialize or Extract call.
func NewExtractor(connector Connector, config Config, logger *zap.Logger, opts ...Option) *Extractor {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	e := &Extractor{
		connector: connector,
		observer:  nopObserver{},
		config:    config,
		logger:    logger.Named("criteria-extractor"),
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports whether the client has been built.
func (e *Extractor) State() ClientState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Initialize builds the client once. Later calls are no-ops.
func (e *Extractor) Initialize(ctx context.Context) error {
	_, err := e.ensureClient(ctx)
	return err
}

func (e *Extractor) ensureClient(ctx context.Context) (outbound.TextCompleter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateReady {
		return e.client, nil
	}

	client, err := e.connector.Connect(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamServiceError("text-understanding service", err)
	}
	if client == nil {
		return nil, apperrors.NewUpstreamServiceError("text-understanding service", errors.New("connector returned no client"))
	}

	e.client = client
	e.state = StateReady
	e.logger.Info("Text-understanding client initialized")
	return client, nil
}

// ExtractRaw validates raw request input before extracting.
func (e *Extractor) ExtractRaw(ctx context.Context, raw json.RawMessage) (food.Constraint, error) {
	text, err := ParseQuery(raw)
	if err != nil {
		e.observer.ObserveExtraction(OutcomeInvalid, 0)
		return food.Constraint{}, err
	}
	return e.Extract(ctx, text)
}

// Extract turns text into a Constraint. Blank text is an InvalidInput
// error. Upstream failures, timeouts and unparseable responses degrade to an
// empty Constraint with a nil error.
func (e *Extractor) Extract(ctx context.Context, text string) (food.Constraint, error) {
	started := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		e.observer.ObserveExtraction(OutcomeInvalid, 0)
		return food.Constraint{}, apperrors.NewInvalidInputError("query must not be empty")
	}

	ctx, span := tracer.Start(ctx, "criteria.Extract")
	defer span.End()

	key := cacheKey(text)
	if c, ok := e.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("criteria.cache_hit", true))
		e.observer.ObserveExtraction(OutcomeCacheHit, time.Since(started))
		return c, nil
	}

	client, err := e.ensureClient(ctx)
	if err != nil {
		return e.degrade(span, started, err), nil
	}

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		c, err := e.attempt(ctx, client, text, attempt)
		if err == nil {
			e.toCache(ctx, key, c)
			outcome := OutcomeOK
			if c.IsEmpty() {
				outcome = OutcomeEmpty
			}
			span.SetAttributes(
				attribute.Int("criteria.attempts", attempt),
				attribute.Int("criteria.keys", len(c.Keys())),
			)
			e.observer.ObserveExtraction(outcome, time.Since(started))
			return c, nil
		}

		lastErr = err
		if !errors.Is(err, ErrNoJSONObject) && !errors.Is(err, ErrMalformedJSON) {
			// Transport failures and timeouts are not retried here.
			break
		}
		e.logger.Debug("Unparseable response, re-asking",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return e.degrade(span, started, lastErr), nil
}

func (e *Extractor) attempt(ctx context.Context, client outbound.TextCompleter, text string, attempt int) (food.Constraint, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	response, err := client.Complete(attemptCtx, buildPrompt(text, attempt))
	if err != nil {
		return food.Constraint{}, apperrors.NewUpstreamServiceError("text-understanding service", err)
	}
	return Sanitize(response)
}

func (e *Extractor) degrade(span trace.Span, started time.Time, cause error) food.Constraint {
	if cause == nil {
		cause = errors.New("no attempts made")
	}
	e.logger.Warn("Criteria extraction degraded to empty constraint",
		zap.Error(cause),
		zap.Duration("elapsed", time.Since(started)),
	)
	span.RecordError(cause)
	span.SetStatus(codes.Error, "degraded")
	e.observer.ObserveExtraction(OutcomeDegraded, time.Since(started))
	return food.NewConstraint()
}

func (e *Extractor) fromCache(ctx context.Context, key string) (food.Constraint, bool) {
	if e.cache == nil {
		return food.Constraint{}, false
	}
	data, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			e.logger.Debug("Criteria cache read failed", zap.Error(err))
		}
		return food.Constraint{}, false
	}
	var c food.Constraint
	if err := json.Unmarshal(data, &c); err != nil {
		return food.Constraint{}, false
	}
	return c, true
}

func (e *Extractor) toCache(ctx context.Context, key string, c food.Constraint) {
	if e.cache == nil || e.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.config.CacheTTL); err != nil {
		e.logger.Debug("Criteria cache write failed", zap.Error(err))
	}
}

// cacheKey normalizes case and whitespace so trivially different phrasings
// of the same text share an entry.
func cacheKey(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := blake2b.Sum256([]byte(normalized))
	return "criteria:" + hex.EncodeToString(sum[:])
}
