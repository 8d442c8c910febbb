package review

import (
	"sort"
	"time"
)

// PeriodMatrix is the period × cluster count matrix for the trend resolution.
// Rows follow Periods (ascending key order); columns follow ClusterIDs,
// ordered by descending total count across retained periods with ascending
// cluster id breaking ties.
type PeriodMatrix struct {
	Periods    []string `json:"periods"`
	ClusterIDs []int    `json:"cluster_ids"`
	Counts     [][]int  `json:"counts"`
}

// BuildPeriodMatrix buckets trend-assigned records into closed periods.
//
// The period containing now is still open and is always excluded, as is
// anything later (clock skew in export data); the keys are zero-padded and
// year-major, so the lexicographic comparison is chronological. When every
// record falls in the open trailing period the matrix is empty but valid.
func BuildPeriodMatrix(records []ConversationRecord, assignment []int, k int, now time.Time, periodWeeks int) PeriodMatrix {
	current := PeriodKey(now, periodWeeks)

	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.PeriodKey < current {
			seen[rec.PeriodKey] = struct{}{}
		}
	}
	periods := make([]string, 0, len(seen))
	for p := range seen {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	periodRow := make(map[string]int, len(periods))
	for i, p := range periods {
		periodRow[p] = i
	}

	counts := make([][]int, len(periods))
	for i := range counts {
		counts[i] = make([]int, k)
	}
	totals := make([]int, k)
	for i, rec := range records {
		row, ok := periodRow[rec.PeriodKey]
		if !ok {
			continue
		}
		counts[row][assignment[i]]++
		totals[assignment[i]]++
	}

	columns := make([]int, k)
	for c := range columns {
		columns[c] = c
	}
	sort.SliceStable(columns, func(i, j int) bool {
		a, b := columns[i], columns[j]
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		return a < b
	})

	ordered := make([][]int, len(periods))
	for i := range counts {
		ordered[i] = make([]int, k)
		for col, clusterID := range columns {
			ordered[i][col] = counts[i][clusterID]
		}
	}

	return PeriodMatrix{
		Periods:    periods,
		ClusterIDs: columns,
		Counts:     ordered,
	}
}

// AssembleStreamgraph joins the period matrix with the trend-resolution
// labels into the chart payload.
func AssembleStreamgraph(matrix PeriodMatrix, labels map[int]string) Streamgraph {
	keys := make([]string, len(matrix.ClusterIDs))
	for col, clusterID := range matrix.ClusterIDs {
		name, ok := labels[clusterID]
		if !ok || name == "" {
			name = PlaceholderLabel
		}
		keys[col] = name
	}

	values := make([]map[string]any, 0, len(matrix.Periods))
	for row, period := range matrix.Periods {
		entry := make(map[string]any, len(keys)+1)
		entry["period"] = period
		for col, key := range keys {
			entry[key] = matrix.Counts[row][col]
		}
		values = append(values, entry)
	}

	return Streamgraph{
		Periods: matrix.Periods,
		Keys:    keys,
		Values:  values,
	}
}
