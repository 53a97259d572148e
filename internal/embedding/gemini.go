package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the Gemini embedding model used when none is configured.
	DefaultModel = "text-embedding-004"
	// maxBatch is the provider limit on texts per BatchEmbedContents call.
	maxBatch = 100
)

// GeminiProvider embeds text with a Gemini embedding model.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
	logger *zap.Logger
}

// NewGeminiProvider connects to Gemini. It does not issue any request.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{
		client: client,
		model:  client.EmbeddingModel(model),
		name:   model,
		logger: logger.Named("embedding"),
	}, nil
}

// GeminiOpener returns an Opener that builds a GeminiProvider and checks it
// with a single warm-up embedding.
func GeminiOpener(apiKey, model string, logger *zap.Logger) Opener {
	return func(ctx context.Context) (Provider, error) {
		p, err := NewGeminiProvider(ctx, apiKey, model, logger)
		if err != nil {
			return nil, err
		}
		v, err := p.Embed(ctx, "warm-up")
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("warm-up embedding failed: %w", err)
		}
		p.logger.Info("embedding model loaded", zap.String("model", p.name), zap.Int("dimension", len(v)))
		return p, nil
	}
}

// Embed returns the embedding of text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := p.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embed content: empty embedding")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts in chunks of the provider's batch limit.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch := p.model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := p.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch embed [%d,%d): %w", start, end, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("batch embed [%d,%d): got %d embeddings", start, end, len(res.Embeddings))
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
		p.logger.Debug("batch embedded", zap.Int("from", start), zap.Int("to", end))
	}
	return out, nil
}

// Model returns the embedding model name.
func (p *GeminiProvider) Model() string {
	return p.name
}

// Close releases the client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
