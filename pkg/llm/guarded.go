package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/metrics"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/retry"
)

// GuardedClient wraps an LLMClient with a circuit breaker and retries of
// retryable provider errors. Every attempt is counted in metrics.
type GuardedClient struct {
	inner    LLMClient
	provider string
	breaker  *CircuitBreaker
	retry    *retry.Config
	logger   *zap.Logger
}

// NewGuardedClient wraps inner. A nil retryCfg disables retries.
func NewGuardedClient(inner LLMClient, provider string, breaker *CircuitBreaker, retryCfg *retry.Config, logger *zap.Logger) *GuardedClient {
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxRetries: 0}
	}
	return &GuardedClient{
		inner:    inner,
		provider: provider,
		breaker:  breaker,
		retry:    retryCfg,
		logger:   logger.Named("llm-guard"),
	}
}

// GenerateResponse implements LLMClient.
func (g *GuardedClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
	maxTokens int,
) (*GenerateResponseResult, error) {
	attempt := 0
	return retry.DoIfRetryable(ctx, g.retry, func() (*GenerateResponseResult, error) {
		attempt++
		if err := g.breaker.Allow(); err != nil {
			metrics.ObserveLLMRequest(g.provider, "circuit_open")
			g.logger.Warn("LLM call rejected by circuit breaker",
				zap.Int("consecutive_failures", g.breaker.ConsecutiveFailures()))
			return nil, err
		}

		result, err := g.inner.GenerateResponse(ctx, prompt, systemMessage, temperature, maxTokens)
		if err != nil {
			metrics.ObserveLLMRequest(g.provider, "error")
			// A caller that went away says nothing about provider health.
			if errors.Is(err, context.Canceled) {
				g.breaker.ReleaseProbe()
			} else {
				g.breaker.RecordFailure()
			}
			llmErr := ClassifyError(err)
			if llmErr.Retryable {
				g.logger.Warn("Retryable LLM error",
					zap.Int("attempt", attempt),
					zap.String("error_type", string(llmErr.Type)),
					zap.Error(err))
			}
			return nil, llmErr
		}

		metrics.ObserveLLMRequest(g.provider, "ok")
		g.breaker.RecordSuccess()
		return result, nil
	})
}

// GetModel implements LLMClient.
func (g *GuardedClient) GetModel() string {
	return g.inner.GetModel()
}

// GetEndpoint implements LLMClient.
func (g *GuardedClient) GetEndpoint() string {
	return g.inner.GetEndpoint()
}

// Breaker exposes the circuit breaker for health reporting.
func (g *GuardedClient) Breaker() *CircuitBreaker {
	return g.breaker
}
