package models

// AnalyticsRecord accumulates outcomes for one distinct question text.
// Count always equals SuccessCount + ErrorCount.
type AnalyticsRecord struct {
	Count            int64
	TotalTimeSeconds float64
	SuccessCount     int64
	ErrorCount       int64
}

// QueryAnalytics is the derived per-question view inside a snapshot.
type QueryAnalytics struct {
	Query              string  `json:"query"`
	AvgTimeSeconds     float64 `json:"avgTime"`
	Count              int64   `json:"count"`
	SuccessRatePercent float64 `json:"successRate"`
}

// AnalyticsSnapshot is a point-in-time summary of all tracked questions.
// Rates are 0 when TotalQueries is 0.
type AnalyticsSnapshot struct {
	Queries            []QueryAnalytics `json:"queries"`
	TotalQueries       int64            `json:"totalQueries"`
	ErrorRatePercent   float64          `json:"errorRate"`
	SuccessRatePercent float64          `json:"successRate"`
}
