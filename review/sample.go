package review

import (
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/recap-o-matic/review/fileutils"
)

const (
	// maxRepresentatives caps the stratified sample per cluster.
	maxRepresentatives = 12

	// strataWindow is how many members each stratum (near, mid, far)
	// contributes when the cluster is large enough.
	strataWindow = 4

	// catalogSampleMaxChars and trendSampleMaxChars are display caps for
	// representative texts in the two digests.
	catalogSampleMaxChars = 120
	trendSampleMaxChars   = 80
)

// clusterMembers groups record indices by cluster id. Every index lands in
// exactly one bucket.
func clusterMembers(assignment []int, k int) [][]int {
	members := make([][]int, k)
	for idx, c := range assignment {
		members[c] = append(members[c], idx)
	}
	return members
}

// sampleIndices picks a distance-stratified sample of cluster members: the
// nearest, a run from the middle of the distance ordering, and the farthest.
// The point is to show the label oracle the cluster's outliers, not just its
// densest sub-theme, so labels do not come out over-narrow.
//
// For fewer than maxRepresentatives members, all of them are returned (still
// sorted by distance). The three windows start at increasing offsets of the
// same sorted list, so they cannot overlap and never produce duplicates.
func sampleIndices(vectors [][]float64, members []int, centroid []float64) []int {
	if len(members) == 0 {
		return nil
	}

	byDist := make([]int, len(members))
	copy(byDist, members)
	sort.SliceStable(byDist, func(i, j int) bool {
		di := euclideanDistance(vectors[byDist[i]], centroid)
		dj := euclideanDistance(vectors[byDist[j]], centroid)
		if di != dj {
			return di < dj
		}
		return byDist[i] < byDist[j]
	})

	if len(byDist) < maxRepresentatives {
		return byDist
	}

	sampled := make([]int, 0, maxRepresentatives)
	sampled = append(sampled, byDist[:strataWindow]...)
	midStart := len(byDist) / 3
	sampled = append(sampled, byDist[midStart:midStart+strataWindow]...)
	sampled = append(sampled, byDist[len(byDist)-strataWindow:]...)
	return sampled
}

// GatherClusterExamples returns display-ready representative texts for every
// cluster, keyed by cluster id.
func GatherClusterExamples(records []ConversationRecord, vectors [][]float64, assignment []int, centroids [][]float64, maxChars int) map[int][]string {
	members := clusterMembers(assignment, len(centroids))
	examples := make(map[int][]string, len(centroids))
	for clusterID, m := range members {
		idxs := sampleIndices(vectors, m, centroids[clusterID])
		texts := make([]string, 0, len(idxs))
		for _, idx := range idxs {
			texts = append(texts, displayText(records[idx].Text, maxChars))
		}
		examples[clusterID] = texts
	}
	return examples
}

// displayText collapses whitespace and truncates for prompt/digest use.
func displayText(s string, maxChars int) string {
	compact := strings.Join(strings.Fields(s), " ")
	return fileutils.Truncate(compact, maxChars)
}
