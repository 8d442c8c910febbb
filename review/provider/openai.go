// Package provider contains the concrete oracle adapters: OpenAI for
// embeddings and text generation, Gemini for the card illustration.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/recap-o-matic/review"
	"github.com/theimaginaryfoundation/recap-o-matic/review/fileutils"
)

// OracleConfig configures the OpenAI-backed oracles. The instruction strings
// are required; they are owned by the calling tool (see cmd/topic-report's
// prompts.go), not by this package.
type OracleConfig struct {
	APIKey     string
	Model      string
	EmbedModel string

	LabelBatchInstructions  string
	SingleLabelInstructions string
	ReadingInstructions     string
}

// Oracle implements review.EmbeddingClient, review.LabelOracle, and
// review.ReadingOracle on the OpenAI API.
type Oracle struct {
	client *openai.Client
	cfg    OracleConfig
}

func NewOracle(cfg OracleConfig) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("NewOracle: APIKey is empty")
	}
	if cfg.Model == "" {
		return nil, errors.New("NewOracle: Model is empty")
	}
	if cfg.EmbedModel == "" {
		return nil, errors.New("NewOracle: EmbedModel is empty")
	}
	if strings.TrimSpace(cfg.LabelBatchInstructions) == "" ||
		strings.TrimSpace(cfg.SingleLabelInstructions) == "" ||
		strings.TrimSpace(cfg.ReadingInstructions) == "" {
		return nil, errors.New("NewOracle: oracle instructions are empty")
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Oracle{client: &client, cfg: cfg}, nil
}

// CreateEmbeddings is one embedding round trip; batching is the caller's
// concern. The provider's per-item index is passed through untouched so the
// caller can restore request order.
func (o *Oracle) CreateEmbeddings(ctx context.Context, texts []string) ([]review.IndexedEmbedding, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(o.cfg.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("CreateEmbeddings: %w", err)
	}

	items := make([]review.IndexedEmbedding, 0, len(resp.Data))
	for _, d := range resp.Data {
		items = append(items, review.IndexedEmbedding{
			Index:  int(d.Index),
			Vector: d.Embedding,
		})
	}
	return items, nil
}

// GenerateLabelsBatch asks for one "N: label" line per digest line and
// returns the raw text for the caller to parse.
func (o *Oracle) GenerateLabelsBatch(ctx context.Context, digest string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           o.cfg.Model,
		MaxOutputTokens: openai.Int(600),
		Instructions:    openai.String(o.cfg.LabelBatchInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(digest, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := callWithRetry(ctx, o.client, params)
	if err != nil {
		return "", fmt.Errorf("GenerateLabelsBatch: %w", err)
	}
	return resp.OutputText(), nil
}

type singleLabelResponse struct {
	Label string `json:"label" jsonschema_description:"Short 2-3 word cluster label"`
}

var singleLabelSchema = generateSchema[singleLabelResponse]()

// GenerateSingleLabel is the stricter per-cluster fallback: a structured
// JSON-schema output so the label cannot arrive wrapped in prose.
func (o *Oracle) GenerateSingleLabel(ctx context.Context, examples []string) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ClusterLabel",
			Schema:      singleLabelSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Cluster label JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           o.cfg.Model,
		MaxOutputTokens: openai.Int(100),
		Instructions:    openai.String(o.cfg.SingleLabelInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(strings.Join(examples, "; "), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := callWithRetry(ctx, o.client, params)
	if err != nil {
		return "", fmt.Errorf("GenerateSingleLabel: %w", err)
	}

	var out singleLabelResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("GenerateSingleLabel: unmarshal label: %w", err)
	}
	return out.Label, nil
}

// GenerateReading produces the tarot card markdown from the cluster digest.
func (o *Oracle) GenerateReading(ctx context.Context, digest string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           o.cfg.Model,
		MaxOutputTokens: openai.Int(250),
		Instructions:    openai.String(o.cfg.ReadingInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage("Top 20 conversation clusters: "+digest, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := callWithRetry(ctx, o.client, params)
	if err != nil {
		return "", fmt.Errorf("GenerateReading: %w", err)
	}
	return resp.OutputText(), nil
}

func callWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3
	rateLimitWaitTimes := []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaitTimes := []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isRateLimitError(err) {
				if attempt < maxRetries-1 {
					time.Sleep(rateLimitWaitTimes[attempt])
					continue
				}
			} else if isServerError(err) {
				if attempt < maxRetries-1 {
					time.Sleep(serverErrorWaitTimes[attempt])
					continue
				}
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
