package review

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRecords means no conversation contained a qualifying user message.
var ErrNoRecords = errors.New("no qualifying conversations")

// RunError is the hard-failure result of a pipeline run: configuration
// problems and upstream failures no stage can recover from. Soft failures
// (label, reading, image oracles) never surface as a RunError; they degrade
// the affected output instead.
type RunError struct {
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("topics pipeline: %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// RunOutput is everything one run produces. TarotImage carries the rendered
// card bytes (nil when absent) for the caller to persist; Matrix backs the
// optional audit dump.
type RunOutput struct {
	Result      Result
	TarotImage  []byte
	Matrix      PeriodMatrix
	TrendLabels map[int]string
}

// Pipeline is the topic discovery and temporal trend computation: embed the
// first user question of every conversation once, partition the embedding
// space at two independent resolutions, label both partitions, and derive
// the topic catalog, the streamgraph, and the tarot reading.
//
// One run is a single sequential computation; each stage strictly depends on
// the previous stage's output. The pipeline owns no shared state and is safe
// to run alongside other analysis tasks over the same read-only corpus.
type Pipeline struct {
	Embedder  *BatchEmbedder
	Clusterer Clusterer
	Labels    LabelOracle
	Reading   ReadingOracle
	Image     ImageOracle

	// PeriodWeeks is the trend bucket width (defaults to DefaultPeriodWeeks).
	PeriodWeeks int

	// StreamTopicsMax caps the trend resolution (defaults to 10).
	StreamTopicsMax int

	// Seed drives the clustering primitive (defaults to 42).
	Seed int64

	// Now supplies the open-period boundary; defaults to time.Now. Injected
	// so runs near a period boundary are reproducible in tests.
	Now func() time.Time

	// Audit, when set, records every oracle exchange.
	Audit *AuditLog
}

const (
	tarotDigestClusters = 20
	publicTopicCount    = 10
)

// Run executes the pipeline over the loaded conversations.
func (p *Pipeline) Run(ctx context.Context, conversations []Conversation) (*RunOutput, error) {
	if p.Embedder == nil || p.Embedder.Client == nil {
		return nil, &RunError{Stage: "config", Err: errors.New("no embedding client configured")}
	}
	if p.Clusterer == nil {
		return nil, &RunError{Stage: "config", Err: errors.New("no clusterer configured")}
	}

	periodWeeks := p.PeriodWeeks
	if periodWeeks <= 0 {
		periodWeeks = DefaultPeriodWeeks
	}
	seed := p.Seed
	if seed == 0 {
		seed = 42
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	records := ExtractRecords(conversations, ExtractOptions{PeriodWeeks: periodWeeks})
	if len(records) == 0 {
		return nil, &RunError{Stage: "extract", Err: ErrNoRecords}
	}
	n := len(records)

	texts := make([]string, n)
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := p.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &RunError{Stage: "embed", Err: err}
	}

	labeler := &Labeler{Oracle: p.Labels, Audit: p.Audit}

	// Catalog resolution: ranked topic list and the tarot digest.
	catalogK := CatalogResolution.ClusterCount(n)
	catalogAssignment, catalogCentroids, err := p.Clusterer.Cluster(vectors, catalogK, seed)
	if err != nil {
		return nil, &RunError{Stage: "cluster", Err: err}
	}

	summaries := BuildClusterSummaries(records, vectors, catalogAssignment, catalogCentroids, tarotDigestClusters)
	catalogExamples := GatherClusterExamples(records, vectors, catalogAssignment, catalogCentroids, catalogSampleMaxChars)
	catalogLabels := labeler.LabelClusters(ctx, "catalog", catalogExamples)

	topics := TopicsList(summaries, catalogLabels, publicTopicCount)

	composer := &TarotComposer{Reading: p.Reading, Image: p.Image, Audit: p.Audit}
	tarot, tarotImage := composer.Compose(ctx, summaries, catalogLabels)

	// Trend resolution: an independent, coarser partition of the same
	// embedding matrix. Its cluster ids share nothing with the catalog's.
	trendK := TrendResolution(p.StreamTopicsMax).ClusterCount(n)
	trendAssignment, trendCentroids, err := p.Clusterer.Cluster(vectors, trendK, seed)
	if err != nil {
		return nil, &RunError{Stage: "cluster", Err: err}
	}

	trendExamples := GatherClusterExamples(records, vectors, trendAssignment, trendCentroids, trendSampleMaxChars)
	trendLabels := labeler.LabelClusters(ctx, "trend", trendExamples)

	matrix := BuildPeriodMatrix(records, trendAssignment, trendK, now(), periodWeeks)
	streamgraph := AssembleStreamgraph(matrix, trendLabels)

	return &RunOutput{
		Result: Result{
			Topics:      topics,
			Tarot:       tarot,
			Streamgraph: streamgraph,
		},
		TarotImage:  tarotImage,
		Matrix:      matrix,
		TrendLabels: trendLabels,
	}, nil
}
