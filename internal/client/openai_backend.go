package client

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

// OpenAIBackend produces trade analyses through the OpenAI chat completions
// API with a JSON-object response format.
type OpenAIBackend struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIBackend creates a new OpenAI analysis backend.
func NewOpenAIBackend(apiKey, baseURL, chatModel string, logger *zap.Logger) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  chatModel,
		logger: logger,
	}
}

// ID identifies the backend in chain ordering and result attribution.
func (b *OpenAIBackend) ID() string { return model.BackendOpenAI }

// Analyze runs one analysis over the given market snapshot.
func (b *OpenAIBackend) Analyze(ctx context.Context, actx *model.AnalysisContext) (*model.AnalysisResult, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(actx)},
		},
	})
	if err != nil {
		b.logger.Warn("OpenAI completion failed",
			zap.String("symbol", actx.Instrument.Symbol),
			zap.String("request_id", actx.RequestID),
			zap.Error(err))
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return parseAnalysisPayload(resp.Choices[0].Message.Content, b.ID())
}
