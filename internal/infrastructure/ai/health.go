package ai

import (
	"context"
	"fmt"

	"github.com/platewise/engine/internal/infrastructure/ai/local"
	"github.com/platewise/engine/internal/infrastructure/ai/ollama"
	"github.com/platewise/engine/internal/infrastructure/ai/openai"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/ports/outbound"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// NewCompleter builds the configured provider, wrapped in the breaker when enabled
func NewCompleter(cfg config.AIConfig, logger *zap.Logger) (outbound.NamedCompleter, error) {
	var provider outbound.NamedCompleter
	switch cfg.Provider {
	case "openai":
		provider = openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "ollama":
		provider = ollama.NewClient(ollama.Config{
			BaseURL:     cfg.OllamaURL,
			Model:       cfg.OllamaModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "local", "":
		return local.New(), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}

	if cfg.Breaker.Enable {
		return NewResilientCompleter(provider, cfg.Breaker, logger), nil
	}
	return provider, nil
}

// HealthChecker reports whether the text-understanding provider is usable.
// An open breaker counts as unhealthy without calling the provider.
type HealthChecker struct {
	completer outbound.NamedCompleter
	logger    *zap.Logger
}

var _ outbound.HealthChecker = (*HealthChecker)(nil)

// NewHealthChecker creates a new AI health checker
func NewHealthChecker(completer outbound.NamedCompleter, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		completer: completer,
		logger:    logger.Named("ai-health"),
	}
}

// Name implements outbound.HealthChecker
func (h *HealthChecker) Name() string { return "ai:" + h.completer.Provider() }

// HealthCheck implements outbound.HealthChecker
func (h *HealthChecker) HealthCheck(ctx context.Context) error {
	target := h.completer
	if r, ok := target.(*ResilientCompleter); ok {
		if r.State() == gobreaker.StateOpen {
			return ErrCircuitOpen
		}
		target = r.next
	}

	pinger, ok := target.(outbound.HealthChecker)
	if !ok {
		return nil
	}
	if err := pinger.HealthCheck(ctx); err != nil {
		h.logger.Warn("AI provider health check failed",
			zap.String("provider", target.Provider()),
			zap.Error(err))
		return err
	}
	return nil
}
