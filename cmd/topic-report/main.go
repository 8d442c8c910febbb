package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/theimaginaryfoundation/recap-o-matic/review"
	"github.com/theimaginaryfoundation/recap-o-matic/review/fileutils"
	"github.com/theimaginaryfoundation/recap-o-matic/review/provider"
)

// maxConcurrentTasks bounds the analysis task pool. Tasks share only the
// read-only conversation corpus.
const maxConcurrentTasks = 6

const (
	dataFileName  = "data.json"
	tarotFileName = "tarot_card.png"
	auditFileName = "audit.json"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	googleKey := cfg.GoogleAPIKey
	if googleKey == "" {
		googleKey = os.Getenv("GOOGLE_API_KEY")
	}
	if googleKey == "" {
		googleKey = os.Getenv("GEMINI_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !fileutils.FileExists(cfg.InPath) {
		fmt.Fprintf(os.Stderr, "input %s does not exist\n", cfg.InPath)
		os.Exit(2)
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -out: %w", err).Error())
		os.Exit(2)
	}

	start := time.Now()
	conversations, err := review.LoadConversationArchive(ctx, cfg.InPath, review.LoadOptions{ArrayField: cfg.ArrayField})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "loaded %d conversations (%.1fs)\n", len(conversations), time.Since(start).Seconds())

	oracle, err := provider.NewOracle(provider.OracleConfig{
		APIKey:                  apiKey,
		Model:                   cfg.Model,
		EmbedModel:              cfg.EmbedModel,
		LabelBatchInstructions:  labelBatchInstructions,
		SingleLabelInstructions: singleLabelInstructions,
		ReadingInstructions:     tarotInstructions,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	// Image generation is optional: no Google key just means no card image.
	var image review.ImageOracle
	if googleKey != "" {
		gen, err := provider.NewImageGenerator(ctx, provider.ImageConfig{APIKey: googleKey, Model: cfg.ImageModel})
		if err != nil {
			fmt.Fprintf(os.Stderr, "image oracle unavailable: %v\n", err)
		} else {
			defer gen.Close()
			image = gen
		}
	}

	var audit *review.AuditLog
	if cfg.Audit {
		audit = &review.AuditLog{}
	}

	pipeline := &review.Pipeline{
		Embedder:        &review.BatchEmbedder{Client: oracle, Concurrency: cfg.Concurrency},
		Clusterer:       review.KMeans{},
		Labels:          oracle,
		Reading:         oracle,
		Image:           image,
		PeriodWeeks:     cfg.PeriodWeeks,
		StreamTopicsMax: cfg.StreamTopics,
		Seed:            cfg.Seed,
		Audit:           audit,
	}

	// Static registry of analysis tasks. The counting widgets live in other
	// tools; this one carries the topic pipeline. Tasks run on a bounded
	// pool and must not mutate shared state.
	var (
		output  *review.RunOutput
		topicsE error
	)
	tasks := []analysisTask{
		{
			name: "topics",
			run: func(ctx context.Context) error {
				output, topicsE = pipeline.Run(ctx, conversations)
				return topicsE
			},
		},
	}
	runTasks(ctx, tasks)

	result := review.Result{}
	switch {
	case topicsE != nil:
		result = review.EmptyResult(topicsE.Error())
	case output != nil:
		result = output.Result
	}

	if output != nil && len(output.TarotImage) > 0 {
		imagePath := filepath.Join(cfg.OutDir, tarotFileName)
		if err := fileutils.WriteFileAtomicSameDir(imagePath, output.TarotImage, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", tarotFileName, err)
		} else {
			result.Tarot.Image = tarotFileName
			fmt.Fprintf(os.Stderr, "wrote %s\n", imagePath)
		}
	}

	dataPath := filepath.Join(cfg.OutDir, dataFileName)
	if err := fileutils.WriteJSONFileAtomic(dataPath, result, cfg.Pretty); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", dataPath)

	if cfg.Audit && output != nil {
		auditPath := filepath.Join(cfg.OutDir, auditFileName)
		dump := review.AuditDump{
			Exchanges: audit.Exchanges(),
			Matrix:    output.Matrix,
			Labels:    output.TrendLabels,
		}
		if err := review.WriteAuditDump(auditPath, dump, cfg.Pretty); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", auditFileName, err)
		} else {
			fmt.Fprintf(os.Stderr, "wrote %s\n", auditPath)
		}
	}

	if topicsE != nil {
		fmt.Fprintln(os.Stderr, topicsE.Error())
		os.Exit(1)
	}
}

// analysisTask is one entry of the static analysis registry.
type analysisTask struct {
	name string
	run  func(ctx context.Context) error
}

// runTasks executes the registry on a bounded pool, reporting per-task
// status to stderr. Task errors are carried out through the closures; a
// failed task never stops its siblings.
func runTasks(ctx context.Context, tasks []analysisTask) {
	sem := make(chan struct{}, maxConcurrentTasks)
	wg := sync.WaitGroup{}
	for _, task := range tasks {
		wg.Add(1)
		go func(task analysisTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			if err := task.run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "[x] %s: FAILED (%.1fs) - %v\n", task.name, time.Since(start).Seconds(), err)
				return
			}
			fmt.Fprintf(os.Stderr, "[ok] %s (%.1fs)\n", task.name, time.Since(start).Seconds())
		}(task)
	}
	wg.Wait()
}
