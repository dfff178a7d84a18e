package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/retry"
)

// NewClientFromConfig builds the provider client named by cfg.Provider and
// wraps it with the circuit breaker and retry policy from cfg.
func NewClientFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*GuardedClient, error) {
	clientCfg := &Config{
		Endpoint: cfg.EffectiveBaseURL(),
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	var (
		inner LLMClient
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		inner, err = NewAnthropicClient(clientCfg, logger)
	case "openai", "":
		inner, err = NewClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.CircuitThreshold,
		ResetAfter: time.Duration(cfg.CircuitResetSeconds) * time.Second,
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	logger.Info("LLM client configured",
		zap.String("provider", provider),
		zap.String("model", cfg.Model),
		zap.String("endpoint", cfg.EffectiveBaseURL()),
		zap.Int("max_retries", cfg.MaxRetries))

	return NewGuardedClient(inner, provider, breaker, retryCfg, logger), nil
}
