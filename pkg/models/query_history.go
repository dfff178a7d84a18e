package models

import "time"

// QueryHistoryEntry records one successful pipeline run.
// Only successful queries are recorded.
type QueryHistoryEntry struct {
	NaturalQuery  string    `json:"natural_query"`
	SQL           string    `json:"sql"`
	Database      string    `json:"database"`
	ExecutionTime float64   `json:"execution_time"`
	RowCount      int       `json:"row_count"`
	Timestamp     time.Time `json:"timestamp"`
}
