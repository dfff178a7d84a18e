// Package queryservice forwards gateway calls to a separate query-service
// process over HTTP. The remote side speaks the same JSON contract as the
// gateway's own /query, /databases, /tables and /columns routes.
package queryservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/retry"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/services"
)

// DefaultTimeout bounds one forwarded call.
const DefaultTimeout = 30 * time.Second

// Config holds the remote endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   *retry.Config // Applied to idempotent GETs only
}

// Client is a services.QueryRunner backed by a remote query service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *retry.Config
	recorder   services.RunRecorder
	logger     *zap.Logger
}

// NewClient creates a Client. Outcomes of Run are reported to recorder so the
// gateway keeps its own analytics.
func NewClient(cfg Config, recorder services.RunRecorder, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid query service URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		recorder:   recorder,
		logger:     logger.Named("query-service-client"),
	}, nil
}

var _ services.QueryRunner = (*Client)(nil)

// queryEnvelope is the /query reply, success or failure.
type queryEnvelope struct {
	Query         string           `json:"query"` // generated SQL on success
	SQL           string           `json:"sql"`   // generated SQL on failure
	Results       []map[string]any `json:"results"`
	ExecutionTime json.RawMessage  `json:"execution_time"`
	Success       bool             `json:"success"`
	Error         json.RawMessage  `json:"error"`
}

// Run forwards the question. Transport failures become failed results.
func (c *Client) Run(ctx context.Context, req models.QueryRequest) *models.QueryResult {
	start := time.Now()
	result := c.run(ctx, req, start)
	c.recorder.Record(req, result, start)

	c.logger.Info("Forwarded query",
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("question", logging.TruncateString(req.Query, 200)),
		zap.String("sql", logging.SanitizeQuery(result.SQL)),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

func (c *Client) run(ctx context.Context, req models.QueryRequest, start time.Time) *models.QueryResult {
	elapsed := func() float64 { return time.Since(start).Seconds() }

	body, err := json.Marshal(req)
	if err != nil {
		return models.NewFailedResult("", err, elapsed())
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/query", bytes.NewReader(body))
	if err != nil {
		return models.NewFailedResult("", apperrors.ExecutionError("query service unavailable", err), elapsed())
	}

	var env queryEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.NewFailedResult("", fmt.Errorf("decode query response (HTTP %d): %w", status, err), elapsed())
	}

	executionTime := jsonutil.Seconds(env.ExecutionTime)
	if status == http.StatusOK && env.Success {
		return models.NewSuccessResult(env.Query, env.Results, executionTime)
	}

	msg := jsonutil.ErrorText(env.Error)
	if msg == "" {
		msg = fmt.Sprintf("query service returned HTTP %d", status)
	}
	if executionTime <= 0 {
		executionTime = elapsed()
	}
	return models.NewFailedResult(env.SQL, errors.New(msg), executionTime)
}

// ListDatabases implements services.QueryRunner.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	var out struct {
		Databases []string `json:"databases"`
	}
	if err := c.get(ctx, "/databases", &out); err != nil {
		return nil, apperrors.SchemaError("failed to list databases", err)
	}
	if out.Databases == nil {
		out.Databases = []string{}
	}
	return out.Databases, nil
}

// ListTables implements services.QueryRunner.
func (c *Client) ListTables(ctx context.Context, database string) ([]string, error) {
	if database == "" {
		return nil, apperrors.ConfigError("database is required")
	}
	var out struct {
		Tables []string `json:"tables"`
	}
	if err := c.get(ctx, "/tables?database="+url.QueryEscape(database), &out); err != nil {
		return nil, apperrors.SchemaError(fmt.Sprintf("failed to list tables of %q", database), err)
	}
	if out.Tables == nil {
		out.Tables = []string{}
	}
	return out.Tables, nil
}

// FetchSchema implements services.QueryRunner.
func (c *Client) FetchSchema(ctx context.Context, database string) (models.SchemaMap, error) {
	if database == "" {
		return nil, apperrors.ConfigError("database is required")
	}
	var out struct {
		Columns models.SchemaMap `json:"columns"`
	}
	if err := c.get(ctx, "/columns?database="+url.QueryEscape(database), &out); err != nil {
		return nil, apperrors.SchemaError(fmt.Sprintf("failed to read schema of %q", database), err)
	}
	if out.Columns == nil {
		out.Columns = models.SchemaMap{}
	}
	return out.Columns, nil
}

// get retries transient failures and decodes a 200 reply into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := retry.DoIfRetryable(ctx, c.retry, func() (struct{}, error) {
		status, raw, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return struct{}{}, err
		}
		if status != http.StatusOK {
			return struct{}{}, &statusError{status: status, message: errorMessage(raw)}
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return struct{}{}, fmt.Errorf("decode %s response: %w", path, err)
		}
		return struct{}{}, nil
	})
	return err
}

// do sends one request and returns the status and body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp.StatusCode, raw, nil
}

// maxResponseBytes caps a forwarded reply.
const maxResponseBytes = 64 << 20

// statusError reports a non-200 reply; 5xx replies are retried.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("query service returned HTTP %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("query service returned HTTP %d", e.status)
}

func (e *statusError) IsRetryable() bool {
	return e.status >= 500
}

// errorMessage pulls the "error" field out of a JSON reply when present.
func errorMessage(raw []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return jsonutil.ErrorText(env.Error)
}
