package spec

import "sort"

const recentLimit = 5

// Count is one bucket of a breakdown.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Percent is the bucket's share of total, 0 for an empty set.
func (c Count) Percent(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(c.Count) / float64(total) * 100
}

// Stats summarizes an index for the dashboard cards.
type Stats struct {
	Total      int      `json:"total_specs"`
	Completed  int      `json:"completed"`
	InProgress int      `json:"in_progress"`
	Draft      int      `json:"draft"`
	ByStatus   []Count  `json:"by_status"`
	ByPriority []Count  `json:"by_priority"`
	ByCategory []Count  `json:"by_category"`
	Recent     []Record `json:"recent"`
}

// Summarize counts records per status, priority and category, in order of
// first appearance, and picks the five most recently updated.
func Summarize(records []Record) Stats {
	stats := Stats{
		Total:      len(records),
		ByStatus:   tally(records, func(r Record) string { return string(r.Status) }),
		ByPriority: tally(records, func(r Record) string { return string(r.Priority) }),
		ByCategory: tally(records, func(r Record) string { return r.Category }),
	}
	for _, c := range stats.ByStatus {
		switch Status(c.Value) {
		case StatusCompleted:
			stats.Completed = c.Count
		case StatusInProgress:
			stats.InProgress = c.Count
		case StatusDraft:
			stats.Draft = c.Count
		}
	}

	recent := make([]Record, len(records))
	copy(recent, records)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastUpdated > recent[j].LastUpdated
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	stats.Recent = recent
	return stats
}

func tally(records []Record, field func(Record) string) []Count {
	positions := make(map[string]int)
	counts := make([]Count, 0)
	for _, r := range records {
		value := field(r)
		pos, ok := positions[value]
		if !ok {
			pos = len(counts)
			positions[value] = pos
			counts = append(counts, Count{Value: value})
		}
		counts[pos].Count++
	}
	return counts
}
