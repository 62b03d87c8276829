package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
	"github.com/harborline/catalog-assistant/internal/infrastructure/resilience"
)

type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	FastModel       string
	EmbedModel      string
	EmbedDimensions int
}

// Client wraps the hosted OpenAI-compatible API: embeddings, streaming chat
// completions and the fast rewrite model used by the query preprocessor.
type Client struct {
	api  *openai.Client
	cfg  Config
	exec *resilience.Executor
}

func New(cfg Config, exec *resilience.Executor) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:  openai.NewClientWithConfig(clientCfg),
		cfg:  cfg,
		exec: exec,
	}
}

// pinnedTemperature pins generation to deterministic output. The client
// library omits a zero temperature from the request body, which would fall
// back to the API default, so the smallest representable positive value is
// sent instead.
const pinnedTemperature = math.SmallestNonzeroFloat32

// EmbedQuery implements ports.Embedder.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(c.cfg.EmbedModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.cfg.EmbedDimensions > 0 {
		req.Dimensions = c.cfg.EmbedDimensions
	}

	var embedding []float32
	err := c.exec.Execute(ctx, "embed", func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		embedding = resp.Data[0].Embedding
		return nil
	}, classifyAPIError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed query", err)
	}
	return embedding, nil
}

// Rewrite implements the fast completion used for query expansion and
// enquiry decomposition.
func (c *Client) Rewrite(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.FastModel,
		Temperature: pinnedTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var out string
	err := c.exec.Execute(ctx, "rewrite", func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyAPIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("rewrite query", err)
	}
	return out, nil
}

// StreamCompletion implements ports.CompletionStreamer. The stream is not
// retried: a restarted stream would duplicate already-delivered text, so
// failures surface to the caller, which owns the truncation policy.
func (c *Client) StreamCompletion(ctx context.Context, req ports.CompletionRequest, onChunk func(string) error) error {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Temperature: pinnedTemperature,
		Messages:    buildChatMessages(req),
	})
	if err != nil {
		return domain.WrapError(domain.ErrUpstream, "open completion stream", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("completion stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onChunk(delta); err != nil {
				return err
			}
		}
	}
}
