package services

import (
	"math"
	"sort"
	"sync"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

// Analytics aggregates pipeline outcomes per literal question text.
// It lives for the process lifetime and is safe for concurrent use.
type Analytics struct {
	mu      sync.Mutex
	records map[string]models.AnalyticsRecord
}

// NewAnalytics creates an empty aggregator.
func NewAnalytics() *Analytics {
	return &Analytics{records: make(map[string]models.AnalyticsRecord)}
}

// Track records one completed run. Negative or NaN durations count as 0.
func (a *Analytics) Track(query string, durationSeconds float64, success bool) {
	if math.IsNaN(durationSeconds) || durationSeconds < 0 {
		durationSeconds = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.records[query]
	rec.Count++
	rec.TotalTimeSeconds += durationSeconds
	if success {
		rec.SuccessCount++
	} else {
		rec.ErrorCount++
	}
	a.records[query] = rec
}

// Record returns a copy of the record for query.
func (a *Analytics) Record(query string) (models.AnalyticsRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[query]
	return rec, ok
}

// Snapshot summarizes every tracked question. Entries are sorted by query text.
// All rates are 0 when nothing has been tracked.
func (a *Analytics) Snapshot() models.AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := models.AnalyticsSnapshot{
		Queries: make([]models.QueryAnalytics, 0, len(a.records)),
	}

	var successes, failures int64
	for query, rec := range a.records {
		snap.Queries = append(snap.Queries, models.QueryAnalytics{
			Query:              query,
			AvgTimeSeconds:     ratio(rec.TotalTimeSeconds, float64(rec.Count)),
			Count:              rec.Count,
			SuccessRatePercent: ratio(float64(rec.SuccessCount), float64(rec.Count)) * 100,
		})
		snap.TotalQueries += rec.Count
		successes += rec.SuccessCount
		failures += rec.ErrorCount
	}

	sort.Slice(snap.Queries, func(i, j int) bool {
		return snap.Queries[i].Query < snap.Queries[j].Query
	})

	snap.SuccessRatePercent = ratio(float64(successes), float64(snap.TotalQueries)) * 100
	snap.ErrorRatePercent = ratio(float64(failures), float64(snap.TotalQueries)) * 100
	return snap
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
