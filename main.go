package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-sqlchat/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/handlers"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/llm"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/mcp"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/middleware"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/queryservice"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/retry"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env),
		zap.String("datasource_type", cfg.Datasource.Type),
		zap.String("datasource_host", cfg.Datasource.Host),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("llm_endpoint", cfg.LLM.EffectiveBaseURL()),
		zap.Bool("read_only", cfg.Query.ReadOnly),
		zap.String("query_service_url", cfg.Query.ServiceURL))

	analytics := services.NewAnalytics()
	history := services.NewHistory(cfg.Query.HistorySize)
	recorder := services.RunRecorder{Analytics: analytics, History: history}

	runner, breaker, err := buildRunner(cfg, recorder, logger)
	if err != nil {
		return err
	}

	mcpServer := mcp.NewServer(&tools.ToolDeps{
		Runner:    runner,
		Analytics: analytics,
		Version:   cfg.Version,
	}, logger.Named("mcp"))

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, analytics, history, breaker, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(runner, logger.Named("schema-handler")).RegisterRoutes(mux)
	handlers.NewQueryHandler(runner, analytics, logger.Named("query-handler")).RegisterRoutes(mux)
	handlers.NewHistoryHandler(history, logger).RegisterRoutes(mux)
	handlers.NewMetricsHandler().RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger.Named("mcp")).RegisterRoutes(mux)

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recoverer(logger),
		middleware.Metrics(handlers.Routes),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-sqlchat", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// buildRunner returns the remote query-service client when QUERY_SERVICE_URL
// is set, otherwise the in-process pipeline and its LLM circuit breaker.
func buildRunner(cfg *config.Config, recorder services.RunRecorder, logger *zap.Logger) (services.QueryRunner, *llm.CircuitBreaker, error) {
	if cfg.Query.ServiceURL != "" {
		client, err := queryservice.NewClient(queryservice.Config{
			BaseURL: cfg.Query.ServiceURL,
			Timeout: cfg.Timeouts.Schema() + cfg.Timeouts.LLM() + cfg.Timeouts.Query() + 5*time.Second,
		}, recorder, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Forwarding questions to query service", zap.String("url", cfg.Query.ServiceURL))
		return client, nil, nil
	}

	factory, err := datasource.NewConnectionFactory(datasource.ConnectionConfig{
		Type:           cfg.Datasource.Type,
		Host:           config.ResolveHostForDocker(cfg.Datasource.Host),
		Port:           cfg.Datasource.Port,
		User:           cfg.Datasource.User,
		Password:       cfg.Datasource.Password,
		SSLMode:        cfg.Datasource.SSLMode,
		ConnectTimeout: time.Duration(cfg.Datasource.ConnectTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.NewClientFromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	checkDatasource(factory, cfg.Timeouts.Schema(), logger)

	inspector := services.NewSchemaInspector(factory, cfg.Timeouts.Schema(), logger)
	generator := services.NewSQLGenerator(client, services.GeneratorConfig{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.Timeouts.LLM(),
		Dialect:     factory.Info().Dialect,
	}, logger)
	executor := services.NewQueryExecutor(factory, services.ExecutorConfig{
		Timeout:  cfg.Timeouts.Query(),
		ReadOnly: cfg.Query.ReadOnly,
	}, logger)

	return services.NewQueryPipeline(inspector, generator, executor, recorder, logger), client.Breaker(), nil
}

// checkDatasource pings the database server at startup. Failure is logged
// and does not stop the service; requests will report their own errors.
func checkDatasource(factory datasource.ConnectionFactory, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		conn, err := factory.Open(ctx, "")
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Ping(ctx)
	})
	if err != nil {
		logger.Warn("Datasource connectivity check failed",
			zap.String("type", factory.Info().Type),
			zap.String("error", logging.SanitizeError(err)))
		return
	}
	logger.Info("Datasource reachable", zap.String("type", factory.Info().Type))
}
