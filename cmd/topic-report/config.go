package main

import (
	"errors"
	"flag"
	"os"
)

type Config struct {
	InPath     string
	OutDir     string
	ArrayField string

	Model      string
	EmbedModel string
	ImageModel string

	PeriodWeeks  int
	StreamTopics int
	Seed         int64
	Concurrency  int

	Pretty bool
	Audit  bool

	APIKey       string
	GoogleAPIKey string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.EmbedModel == "" {
		return errors.New("missing -embed-model")
	}
	if c.PeriodWeeks <= 0 {
		return errors.New("period-weeks must be > 0")
	}
	if c.StreamTopics <= 0 {
		return errors.New("stream-topics must be > 0")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir:       "website",
		Model:        "gpt-4o-mini",
		EmbedModel:   "text-embedding-3-small",
		ImageModel:   "gemini-3-pro-image-preview",
		PeriodWeeks:  2,
		StreamTopics: 10,
		Seed:         42,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to conversations.json export")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for data.json and tarot_card.png")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "JSON field holding the conversations array when the export top level is an object (default: first array field)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for labels and the tarot reading")
	fs.StringVar(&cfg.EmbedModel, "embed-model", cfg.EmbedModel, "OpenAI embedding model")
	fs.StringVar(&cfg.ImageModel, "image-model", cfg.ImageModel, "Gemini model for the tarot card image")
	fs.IntVar(&cfg.PeriodWeeks, "period-weeks", cfg.PeriodWeeks, "Streamgraph bucket width in ISO weeks")
	fs.IntVar(&cfg.StreamTopics, "stream-topics", cfg.StreamTopics, "Max streamgraph topic count")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Clustering seed")
	fs.IntVar(&cfg.Concurrency, "concurrency", 0, "Parallel embedding batches (0 or 1 = sequential)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print data.json")
	fs.BoolVar(&cfg.Audit, "audit", false, "Write audit.json with raw oracle exchanges and the period matrix")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (default: OPENAI_API_KEY)")
	fs.StringVar(&cfg.GoogleAPIKey, "google-api-key", "", "Google API key for image generation (default: GOOGLE_API_KEY or GEMINI_API_KEY)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
