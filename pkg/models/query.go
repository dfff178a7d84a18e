package models

// QueryRequest is one natural-language question aimed at a database.
// Database is required; Query may be empty.
type QueryRequest struct {
	Query    string `json:"query"`
	Database string `json:"database"`
}

// QueryResult is the outcome of one pipeline run.
// It is created once per request and not modified afterwards.
type QueryResult struct {
	SQL                  string           `json:"query"`
	Rows                 []map[string]any `json:"results"`
	ExecutionTimeSeconds float64          `json:"execution_time"`
	Success              bool             `json:"success"`
	ErrorMessage         *string          `json:"error,omitempty"`
}

// Error returns the error message, or "" for a successful result.
func (r *QueryResult) Error() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

// NewSuccessResult builds a successful QueryResult. A nil rows slice is
// normalized to an empty one so it serializes as [].
func NewSuccessResult(sql string, rows []map[string]any, elapsedSeconds float64) *QueryResult {
	if rows == nil {
		rows = []map[string]any{}
	}
	return &QueryResult{
		SQL:                  sql,
		Rows:                 rows,
		ExecutionTimeSeconds: elapsedSeconds,
		Success:              true,
	}
}

// NewFailedResult builds a failed QueryResult with empty rows.
// sql is the generated statement when generation got that far, "" otherwise.
func NewFailedResult(sql string, err error, elapsedSeconds float64) *QueryResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &QueryResult{
		SQL:                  sql,
		Rows:                 []map[string]any{},
		ExecutionTimeSeconds: elapsedSeconds,
		Success:              false,
		ErrorMessage:         &msg,
	}
}
