package review

import (
	"math"
	"sort"
)

// BuildClusterSummaries ranks catalog clusters by descending size (ascending
// cluster id on ties) and returns the top-N with share percentages and
// stratified representatives.
func BuildClusterSummaries(records []ConversationRecord, vectors [][]float64, assignment []int, centroids [][]float64, topN int) []ClusterSummary {
	n := len(records)
	if n == 0 || len(centroids) == 0 {
		return nil
	}

	members := clusterMembers(assignment, len(centroids))

	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if len(members[a]) != len(members[b]) {
			return len(members[a]) > len(members[b])
		}
		return a < b
	})

	if topN > 0 && topN < len(order) {
		order = order[:topN]
	}

	summaries := make([]ClusterSummary, 0, len(order))
	for rank, clusterID := range order {
		size := len(members[clusterID])
		idxs := sampleIndices(vectors, members[clusterID], centroids[clusterID])
		reps := make([]string, 0, len(idxs))
		for _, idx := range idxs {
			reps = append(reps, displayText(records[idx].Text, catalogSampleMaxChars))
		}

		summaries = append(summaries, ClusterSummary{
			ClusterID:       clusterID,
			Rank:            rank + 1,
			Size:            size,
			SharePct:        roundShare(float64(size) / float64(n) * 100),
			Representatives: reps,
		})
	}
	return summaries
}

// TopicsList emits the public topic entries for the top-N summaries, joining
// in the labels produced for the catalog resolution.
func TopicsList(summaries []ClusterSummary, labels map[int]string, topN int) []TopicEntry {
	if topN > 0 && topN < len(summaries) {
		summaries = summaries[:topN]
	}
	topics := make([]TopicEntry, 0, len(summaries))
	for _, cs := range summaries {
		name, ok := labels[cs.ClusterID]
		if !ok || name == "" {
			name = PlaceholderLabel
		}
		topics = append(topics, TopicEntry{
			Rank: cs.Rank,
			Name: name,
			Pct:  cs.SharePct,
		})
	}
	return topics
}

// roundShare rounds to one decimal, the precision the report displays.
func roundShare(pct float64) float64 {
	return math.Round(pct*10) / 10
}
