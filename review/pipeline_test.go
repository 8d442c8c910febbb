package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// groupedEmbeddingClient maps each text to a fixed 2D point per thematic
// group, keyed by a prefix of the text. Unknown texts land at the origin.
type groupedEmbeddingClient struct {
	groups map[string][]float64
}

func (g groupedEmbeddingClient) CreateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error) {
	items := make([]IndexedEmbedding, len(texts))
	for i, text := range texts {
		point := []float64{0, 0}
		for prefix, p := range g.groups {
			if strings.HasPrefix(text, prefix) {
				point = p
				break
			}
		}
		items[i] = IndexedEmbedding{Index: i, Vector: point}
	}
	return items, nil
}

// echoLabelOracle answers the batch call with a distinct valid label per id.
type echoLabelOracle struct{}

func (echoLabelOracle) GenerateLabelsBatch(ctx context.Context, digest string) (string, error) {
	var lines []string
	for _, line := range strings.Split(digest, "\n") {
		id, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: Theme %s", id, id))
	}
	return strings.Join(lines, "\n"), nil
}

func (echoLabelOracle) GenerateSingleLabel(ctx context.Context, examples []string) (string, error) {
	return "Fallback Theme", nil
}

// syntheticCorpus builds n conversations in three thematic groups, spread
// over weekly timestamps ending well before now.
func syntheticCorpus(n int, now time.Time) []Conversation {
	prefixes := []string{"cooking", "coding", "travel"}
	conversations := make([]Conversation, n)
	for i := range conversations {
		at := float64(now.AddDate(0, 0, -7*(1+i%10)).Unix())
		text := fmt.Sprintf("%s question number %d with enough length", prefixes[i%3], i)
		conversations[i] = Conversation{
			ConversationID: fmt.Sprintf("conv-%d", i),
			Title:          fmt.Sprintf("title %d", i),
			Messages: []Message{
				{Role: "user", CreateTime: &at, Text: text},
			},
		}
	}
	return conversations
}

func testPipeline() *Pipeline {
	return &Pipeline{
		Embedder: &BatchEmbedder{Client: groupedEmbeddingClient{groups: map[string][]float64{
			"cooking": {0, 0},
			"coding":  {100, 0},
			"travel":  {0, 100},
		}}},
		Clusterer: KMeans{},
		Labels:    echoLabelOracle{},
		Reading:   fakeReadingOracle{text: "**The Star** — *Hopeful Refactorer* better tests ahead"},
	}
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	pipeline := testPipeline()
	pipeline.Now = func() time.Time { return now }

	output, err := pipeline.Run(context.Background(), syntheticCorpus(120, now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 120 records at catalog density 50 clamps to the floor of 10 clusters,
	// so the public list carries all 10.
	if len(output.Result.Topics) != 10 {
		t.Fatalf("topics=%d, want 10", len(output.Result.Topics))
	}
	total := 0.0
	for i, topic := range output.Result.Topics {
		if topic.Rank != i+1 {
			t.Fatalf("topics[%d].Rank=%d", i, topic.Rank)
		}
		if topic.Name == "" {
			t.Fatalf("topics[%d] has empty name", i)
		}
		total += topic.Pct
	}
	if total < 99.0 || total > 101.0 {
		t.Fatalf("topic shares sum to %v, want ≈100", total)
	}

	if output.Result.Tarot.Card != "The Star" || output.Result.Tarot.Persona != "Hopeful Refactorer" {
		t.Fatalf("tarot=%+v", output.Result.Tarot)
	}

	sg := output.Result.Streamgraph
	if len(sg.Periods) == 0 {
		t.Fatalf("streamgraph has no closed periods")
	}
	if len(sg.Keys) != len(output.Matrix.ClusterIDs) {
		t.Fatalf("keys=%d, columns=%d", len(sg.Keys), len(output.Matrix.ClusterIDs))
	}
	if len(sg.Values) != len(sg.Periods) {
		t.Fatalf("values=%d, periods=%d", len(sg.Values), len(sg.Periods))
	}

	// Every streamgraph row must account for exactly the records of its period.
	perPeriod := map[string]int{}
	records := ExtractRecords(syntheticCorpus(120, now), ExtractOptions{PeriodWeeks: DefaultPeriodWeeks})
	current := PeriodKey(now, DefaultPeriodWeeks)
	for _, rec := range records {
		if rec.PeriodKey < current {
			perPeriod[rec.PeriodKey]++
		}
	}
	for i, period := range sg.Periods {
		sum := 0
		for _, key := range sg.Keys {
			if v, ok := sg.Values[i][key].(int); ok {
				sum += v
			}
		}
		if sum != perPeriod[period] {
			t.Fatalf("period %s sums to %d, want %d", period, sum, perPeriod[period])
		}
	}
}

func TestPipeline_RunDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	corpus := syntheticCorpus(90, now)

	run := func() *RunOutput {
		p := testPipeline()
		p.Now = func() time.Time { return now }
		out, err := p.Run(context.Background(), corpus)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out
	}

	a, b := run(), run()
	if len(a.Result.Topics) != len(b.Result.Topics) {
		t.Fatalf("topic counts differ: %d vs %d", len(a.Result.Topics), len(b.Result.Topics))
	}
	for i := range a.Result.Topics {
		if a.Result.Topics[i] != b.Result.Topics[i] {
			t.Fatalf("topics[%d] differ: %+v vs %+v", i, a.Result.Topics[i], b.Result.Topics[i])
		}
	}
	for i := range a.Matrix.ClusterIDs {
		if a.Matrix.ClusterIDs[i] != b.Matrix.ClusterIDs[i] {
			t.Fatalf("matrix columns differ: %v vs %v", a.Matrix.ClusterIDs, b.Matrix.ClusterIDs)
		}
	}
}

func TestPipeline_NoQualifyingRecords(t *testing.T) {
	t.Parallel()

	pipeline := testPipeline()
	conversations := []Conversation{
		{ConversationID: "c", Messages: []Message{{Role: "assistant", CreateTime: ts(10), Text: "a long enough answer text"}}},
	}

	_, err := pipeline.Run(context.Background(), conversations)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err=%v, want ErrNoRecords", err)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Stage != "extract" {
		t.Fatalf("err=%v, want extract-stage RunError", err)
	}
}

func TestPipeline_ConfigErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	corpus := syntheticCorpus(10, now)

	var runErr *RunError

	p := testPipeline()
	p.Embedder = nil
	if _, err := p.Run(context.Background(), corpus); !errors.As(err, &runErr) || runErr.Stage != "config" {
		t.Fatalf("nil embedder: err=%v", err)
	}

	p = testPipeline()
	p.Clusterer = nil
	if _, err := p.Run(context.Background(), corpus); !errors.As(err, &runErr) || runErr.Stage != "config" {
		t.Fatalf("nil clusterer: err=%v", err)
	}
}

func TestPipeline_EmbedFailureIsHard(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	pipeline := testPipeline()
	pipeline.Embedder = &BatchEmbedder{Client: failingEmbeddingClient{}}

	_, err := pipeline.Run(context.Background(), syntheticCorpus(10, now))
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Stage != "embed" {
		t.Fatalf("err=%v, want embed-stage RunError", err)
	}
}

type failingEmbeddingClient struct{}

func (failingEmbeddingClient) CreateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error) {
	return nil, errors.New("provider down")
}

func TestPipeline_OracleFailuresDegrade(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	pipeline := testPipeline()
	pipeline.Now = func() time.Time { return now }
	pipeline.Labels = &fakeLabelOracle{batchErr: errors.New("down"), singleErr: errors.New("down")}
	pipeline.Reading = fakeReadingOracle{err: errors.New("down")}

	output, err := pipeline.Run(context.Background(), syntheticCorpus(60, now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, topic := range output.Result.Topics {
		if topic.Name != PlaceholderLabel {
			t.Fatalf("topic name=%q, want placeholder on oracle failure", topic.Name)
		}
	}
	if output.Result.Tarot.Card != DefaultCard || output.Result.Tarot.Persona != DefaultPersona {
		t.Fatalf("tarot=%+v, want defaults", output.Result.Tarot)
	}
	if output.TarotImage != nil {
		t.Fatalf("unexpected tarot image")
	}
}

func TestEmptyResult(t *testing.T) {
	t.Parallel()

	result := EmptyResult("pipeline exploded")
	if result.Error != "pipeline exploded" {
		t.Fatalf("Error=%q", result.Error)
	}
	if result.Topics == nil || len(result.Topics) != 0 {
		t.Fatalf("Topics=%v, want empty non-nil", result.Topics)
	}
	if result.Tarot.Card != DefaultCard || result.Tarot.Persona != DefaultPersona {
		t.Fatalf("Tarot=%+v", result.Tarot)
	}
}
