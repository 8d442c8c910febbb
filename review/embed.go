package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// IndexedEmbedding is one item of a provider batch response. Index is the
// position of the source text within the request batch; providers are allowed
// to return items out of order.
type IndexedEmbedding struct {
	Index  int
	Vector []float64
}

// EmbeddingClient is one round trip to the embedding provider.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error)
}

// BatchEmbedder turns an arbitrary number of texts into vectors by batching
// requests against an EmbeddingClient. Output is positionally aligned with
// input regardless of provider response order.
//
// Any batch failure fails the whole call: every downstream stage needs a
// complete vector matrix, so there is no partial-result mode.
type BatchEmbedder struct {
	Client EmbeddingClient

	// BatchSize is texts per request (defaults to 100).
	BatchSize int

	// MaxChars truncates each text before sending (defaults to 1200).
	MaxChars int

	// Concurrency > 1 fetches batches in parallel under a bounded limiter.
	// Batches are order-independent before reassembly, so this is safe, but
	// sequential is the default out of respect for provider rate limits.
	Concurrency int
}

// Embed returns one vector per input text, in input order.
func (e *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e == nil || e.Client == nil {
		return nil, errors.New("Embed: no embedding client configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxChars := e.MaxChars
	if maxChars <= 0 {
		maxChars = embedInputMaxChars
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = truncateRunes(t, maxChars)
	}

	vectors := make([][]float64, len(texts))

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(prepared); start += batchSize {
		end := start + batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		batches = append(batches, batch{start: start, texts: prepared[start:end]})
	}

	fetch := func(b batch) error {
		items, err := e.Client.CreateEmbeddings(ctx, b.texts)
		if err != nil {
			return fmt.Errorf("Embed: batch at %d: %w", b.start, err)
		}
		if len(items) != len(b.texts) {
			return fmt.Errorf("Embed: batch at %d: got %d embeddings for %d texts", b.start, len(items), len(b.texts))
		}
		for _, item := range items {
			if item.Index < 0 || item.Index >= len(b.texts) {
				return fmt.Errorf("Embed: batch at %d: item index %d out of range", b.start, item.Index)
			}
			vectors[b.start+item.Index] = item.Vector
		}
		return nil
	}

	if e.Concurrency <= 1 || len(batches) == 1 {
		for _, b := range batches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := fetch(b); err != nil {
				return nil, err
			}
		}
	} else {
		sem := make(chan struct{}, e.Concurrency)
		errCh := make(chan error, len(batches))
		wg := sync.WaitGroup{}
		for _, b := range batches {
			wg.Add(1)
			go func(b batch) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				default:
				}

				if err := fetch(b); err != nil {
					errCh <- err
				}
			}(b)
		}
		wg.Wait()
		close(errCh)
		if err := <-errCh; err != nil {
			return nil, err
		}
	}

	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("Embed: provider returned no vector for text %d", i)
		}
	}
	return vectors, nil
}
