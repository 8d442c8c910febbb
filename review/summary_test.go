package review

import (
	"testing"
)

// flatCorpus builds records and unit vectors with an explicit assignment.
func flatCorpus(assignment []int, k int) ([]ConversationRecord, [][]float64, [][]float64) {
	records := make([]ConversationRecord, len(assignment))
	vectors := make([][]float64, len(assignment))
	for i, c := range assignment {
		records[i] = ConversationRecord{Text: "query about something"}
		vectors[i] = []float64{float64(c), 0}
	}
	centroids := make([][]float64, k)
	for c := range centroids {
		centroids[c] = []float64{float64(c), 0}
	}
	return records, vectors, centroids
}

func TestBuildClusterSummaries_RanksBySizeThenID(t *testing.T) {
	t.Parallel()

	// Cluster sizes: 0 -> 2, 1 -> 4, 2 -> 2, 3 -> 2.
	assignment := []int{1, 1, 1, 1, 0, 0, 2, 2, 3, 3}
	records, vectors, centroids := flatCorpus(assignment, 4)

	summaries := BuildClusterSummaries(records, vectors, assignment, centroids, 0)
	if len(summaries) != 4 {
		t.Fatalf("len(summaries)=%d, want 4", len(summaries))
	}

	wantOrder := []int{1, 0, 2, 3} // size desc, then ascending id among the ties
	for i, want := range wantOrder {
		if summaries[i].ClusterID != want {
			t.Fatalf("rank %d is cluster %d, want %d", i+1, summaries[i].ClusterID, want)
		}
		if summaries[i].Rank != i+1 {
			t.Fatalf("summaries[%d].Rank=%d, want %d", i, summaries[i].Rank, i+1)
		}
	}

	if summaries[0].Size != 4 || summaries[0].SharePct != 40.0 {
		t.Fatalf("top summary: size=%d share=%v", summaries[0].Size, summaries[0].SharePct)
	}
	if summaries[1].SharePct != 20.0 {
		t.Fatalf("second share=%v, want 20.0", summaries[1].SharePct)
	}
}

func TestBuildClusterSummaries_TopNAndRepresentatives(t *testing.T) {
	t.Parallel()

	assignment := []int{0, 0, 0, 1, 1, 2}
	records, vectors, centroids := flatCorpus(assignment, 3)

	summaries := BuildClusterSummaries(records, vectors, assignment, centroids, 2)
	if len(summaries) != 2 {
		t.Fatalf("len(summaries)=%d, want 2", len(summaries))
	}
	if summaries[0].ClusterID != 0 || summaries[1].ClusterID != 1 {
		t.Fatalf("order: %d, %d", summaries[0].ClusterID, summaries[1].ClusterID)
	}
	if len(summaries[0].Representatives) != 3 {
		t.Fatalf("representatives=%d, want all 3 members", len(summaries[0].Representatives))
	}
}

func TestBuildClusterSummaries_ShareRounding(t *testing.T) {
	t.Parallel()

	// 1 of 3 records: 33.333…% rounds to 33.3.
	assignment := []int{0, 1, 1}
	records, vectors, centroids := flatCorpus(assignment, 2)

	summaries := BuildClusterSummaries(records, vectors, assignment, centroids, 0)
	if summaries[1].SharePct != 33.3 {
		t.Fatalf("share=%v, want 33.3", summaries[1].SharePct)
	}
	if summaries[0].SharePct != 66.7 {
		t.Fatalf("share=%v, want 66.7", summaries[0].SharePct)
	}
}

func TestBuildClusterSummaries_EmptyInput(t *testing.T) {
	t.Parallel()

	if got := BuildClusterSummaries(nil, nil, nil, nil, 10); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestTopicsList(t *testing.T) {
	t.Parallel()

	summaries := []ClusterSummary{
		{ClusterID: 4, Rank: 1, SharePct: 35.5},
		{ClusterID: 1, Rank: 2, SharePct: 20.0},
		{ClusterID: 7, Rank: 3, SharePct: 10.0},
	}
	labels := map[int]string{4: "Meal Planning", 7: "Regex Golf"}

	topics := TopicsList(summaries, labels, 2)
	if len(topics) != 2 {
		t.Fatalf("len(topics)=%d, want 2", len(topics))
	}
	if topics[0].Rank != 1 || topics[0].Name != "Meal Planning" || topics[0].Pct != 35.5 {
		t.Fatalf("topics[0]=%+v", topics[0])
	}
	// Missing label falls back to the placeholder instead of an empty name.
	if topics[1].Name != PlaceholderLabel {
		t.Fatalf("topics[1].Name=%q, want %q", topics[1].Name, PlaceholderLabel)
	}
}
