package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter implements Completer with the chat completions API.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAICompleter creates a completer for cfg.Model.
func NewOpenAICompleter(cfg ProviderConfig) *OpenAICompleter {
	return &OpenAICompleter{
		client:      openai.NewClient(openAIOptions(cfg)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return response.Choices[0].Message.Content, nil
}

// OpenAIEmbedder implements Embedder with the embeddings API.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an embedder. A zero dimension selects the
// model's native size.
func NewOpenAIEmbedder(cfg ProviderConfig) *OpenAIEmbedder {
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension(cfg.Model)
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(openAIOptions(cfg)...),
		model:     cfg.Model,
		dimension: dimension,
	}
}

// Dimension returns the vector size produced by Embed.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	// Only the text-embedding-3 family accepts a reduced dimension.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	response, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI embeddings API: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	raw := response.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}

func openAIOptions(cfg ProviderConfig) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// Retries are handled by RetryingCompleter.
	opts = append(opts, option.WithMaxRetries(0))
	return opts
}
