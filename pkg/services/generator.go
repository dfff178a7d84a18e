package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/llm"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/prompts"
	sqlutil "github.com/ekaya-inc/ekaya-sqlchat/pkg/sql"
)

// SQLGenerator turns a question plus schema into one SQL statement.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string, schema models.SchemaMap) (string, error)
}

// GeneratorConfig tunes the language-model call.
type GeneratorConfig struct {
	Temperature float64       // Clamped to [0, 1]
	MaxTokens   int           // Upper bound on the completion length
	Timeout     time.Duration // Bounds the call including retries
	Dialect     string        // Optional SQL dialect hint, e.g. "MySQL"
}

type sqlGenerator struct {
	client llm.LLMClient
	cfg    GeneratorConfig
	logger *zap.Logger
}

// NewSQLGenerator creates a SQLGenerator backed by client.
func NewSQLGenerator(client llm.LLMClient, cfg GeneratorConfig, logger *zap.Logger) SQLGenerator {
	switch {
	case cfg.Temperature < 0:
		cfg.Temperature = 0
	case cfg.Temperature > 1:
		cfg.Temperature = 1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &sqlGenerator{
		client: client,
		cfg:    cfg,
		logger: logger.Named("sql-generator"),
	}
}

var _ SQLGenerator = (*sqlGenerator)(nil)

func (g *sqlGenerator) GenerateSQL(ctx context.Context, question string, schema models.SchemaMap) (string, error) {
	prompt := prompts.BuildSQLGenerationPrompt(question, schema, g.cfg.Dialect)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	result, err := g.client.GenerateResponse(ctx, prompt, "", g.cfg.Temperature, g.cfg.MaxTokens)
	if err != nil {
		g.logger.Error("SQL generation failed",
			zap.String("request_id", logging.RequestID(ctx)),
			zap.String("model", g.client.GetModel()),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return "", apperrors.GenerationError("language model call failed", withTimeoutHint(ctx, g.cfg.Timeout, err))
	}

	statement := sqlutil.CleanSQL(result.Content)
	if statement == "" {
		g.logger.Warn("Language model returned no SQL",
			zap.String("request_id", logging.RequestID(ctx)),
			zap.String("raw_response", logging.TruncateString(result.Content, 200)))
		return "", apperrors.GenerationError("language model returned no SQL", nil)
	}

	g.logger.Debug("SQL generated",
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("sql", logging.SanitizeQuery(statement)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens))

	return statement, nil
}
