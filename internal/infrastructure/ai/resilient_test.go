package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platewise/engine/internal/infrastructure/ai/local"
	"github.com/platewise/engine/internal/infrastructure/config"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type flakyCompleter struct {
	calls int
	err   error
}

func (f *flakyCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "{}", nil
}

func (f *flakyCompleter) Provider() string { return "flaky" }
func (f *flakyCompleter) Model() string    { return "v0" }

func TestResilientCompleter_OpensAfterFailures(t *testing.T) {
	upstream := &flakyCompleter{err: errors.New("connection refused")}
	r := NewResilientCompleter(upstream, config.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Complete(ctx, "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, err := r.Complete(ctx, "x")

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, upstream.calls, "open breaker does not call upstream")
	assert.ErrorIs(t, NewHealthChecker(r, zaptest.NewLogger(t)).HealthCheck(ctx), ErrCircuitOpen)
}

func TestResilientCompleter_CancellationDoesNotTrip(t *testing.T) {
	upstream := &flakyCompleter{err: context.Canceled}
	r := NewResilientCompleter(upstream, config.BreakerConfig{FailureThreshold: 1}, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, _ = r.Complete(context.Background(), "x")
	}

	assert.Equal(t, gobreaker.StateClosed, r.State())
	assert.Equal(t, "flaky", r.Provider())
	assert.Equal(t, "v0", r.Model())
}

func TestNewCompleter(t *testing.T) {
	logger := zaptest.NewLogger(t)

	c, err := NewCompleter(config.AIConfig{Provider: "local"}, logger)
	require.NoError(t, err)
	assert.IsType(t, local.Completer{}, c)

	c, err = NewCompleter(config.AIConfig{Provider: "ollama", Breaker: config.BreakerConfig{Enable: true}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ResilientCompleter{}, c)
	assert.Equal(t, "ollama", c.Provider())

	c, err = NewCompleter(config.AIConfig{Provider: "openai", OpenAIKey: "k"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider())

	_, err = NewCompleter(config.AIConfig{Provider: "bard"}, logger)
	assert.Error(t, err)

	assert.NoError(t, NewHealthChecker(local.New(), logger).HealthCheck(context.Background()))
}
