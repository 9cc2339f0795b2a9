package approval

import (
	"sort"

	"apflow-mcp/internal/store"
)

// HistoricalStats summarizes prior workflow items of one project/type.
// All durations are in hours; completions beyond OutlierCutoffHours are
// excluded before aggregation and do not count toward TotalSimilarItems.
type HistoricalStats struct {
	TotalSimilarItems     int     `json:"total_similar_items"`
	RejectionRate         float64 `json:"rejection_rate"`
	AvgCompletionHours    float64 `json:"avg_completion_hours"`
	MedianCompletionHours float64 `json:"median_completion_hours"`
	MinCompletionHours    float64 `json:"min_completion_hours"`
	MaxCompletionHours    float64 `json:"max_completion_hours"`
	OnTimePercentage      float64 `json:"on_time_percentage"`
	// RejectionReasons counts recorded reasons among rejected items, used
	// to merge historically frequent reasons into risk reports.
	RejectionReasons map[string]int `json:"-"`
	RejectedCount    int            `json:"-"`
}

// ComputeStats aggregates workflow records into historical statistics.
// baseHours (the static per-type duration) defines the on-time boundary.
//
// A record counts as rejected when its status is "rejected" or it carries
// revisions; a revised-but-approved item deliberately still counts, matching
// the product's established rejection-rate semantics.
func ComputeStats(records []store.WorkflowRecord, baseHours float64) HistoricalStats {
	stats := HistoricalStats{
		RejectionReasons: make(map[string]int),
	}

	var durations []float64
	rejected := 0
	onTime := 0

	for _, rec := range records {
		if rec.CreatedAt.IsZero() || rec.CompletedAt == nil {
			continue
		}
		hours := rec.CompletedAt.Sub(rec.CreatedAt).Hours()
		if hours > OutlierCutoffHours {
			continue
		}

		durations = append(durations, hours)
		if isRejected(rec) {
			rejected++
			if rec.RejectionReason != "" {
				stats.RejectionReasons[rec.RejectionReason]++
			}
		}
		if baseHours > 0 && hours <= baseHours {
			onTime++
		}
	}

	stats.TotalSimilarItems = len(durations)
	stats.RejectedCount = rejected

	if len(durations) == 0 {
		stats.RejectionRate = DefaultRejectionRate
		return stats
	}

	stats.RejectionRate = float64(rejected) / float64(len(durations))
	stats.AvgCompletionHours = Mean(durations)
	stats.MedianCompletionHours = Median(durations)
	stats.MinCompletionHours = durations[0]
	stats.MaxCompletionHours = durations[0]
	for _, d := range durations {
		if d < stats.MinCompletionHours {
			stats.MinCompletionHours = d
		}
		if d > stats.MaxCompletionHours {
			stats.MaxCompletionHours = d
		}
	}
	stats.OnTimePercentage = float64(onTime) / float64(len(durations)) * 100

	return stats
}

func isRejected(rec store.WorkflowRecord) bool {
	return rec.Status == "rejected" || rec.RevisionCount > 0
}

// FrequentRejectionReasons returns reasons occurring in at least the given
// share of rejected history, in deterministic (count-desc, then name) order.
func (s HistoricalStats) FrequentRejectionReasons(minShare float64) []string {
	if s.RejectedCount == 0 {
		return nil
	}
	type rc struct {
		reason string
		count  int
	}
	var frequent []rc
	for reason, count := range s.RejectionReasons {
		if float64(count)/float64(s.RejectedCount) >= minShare {
			frequent = append(frequent, rc{reason, count})
		}
	}

	// Deterministic output keeps repeated analyses identical.
	sort.Slice(frequent, func(i, j int) bool {
		if frequent[i].count != frequent[j].count {
			return frequent[i].count > frequent[j].count
		}
		return frequent[i].reason < frequent[j].reason
	})

	reasons := make([]string, 0, len(frequent))
	for _, f := range frequent {
		reasons = append(reasons, f.reason)
	}
	return reasons
}
