package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

const deepSeekBaseURL = "https://api.deepseek.com"

// DeepSeekBackend produces trade analyses through the DeepSeek chat API,
// which is wire compatible with OpenAI chat completions.
type DeepSeekBackend struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDeepSeekBackend creates a new DeepSeek analysis backend.
func NewDeepSeekBackend(apiKey, baseURL, chatModel string, logger *zap.Logger) *DeepSeekBackend {
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	if chatModel == "" {
		chatModel = "deepseek-chat"
	}
	return &DeepSeekBackend{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   chatModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// ID identifies the backend in chain ordering and result attribution.
func (b *DeepSeekBackend) ID() string { return model.BackendDeepSeek }

type deepSeekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepSeekRequest struct {
	Model          string            `json:"model"`
	Messages       []deepSeekMessage `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type deepSeekResponse struct {
	Choices []struct {
		Message deepSeekMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze runs one analysis over the given market snapshot.
func (b *DeepSeekBackend) Analyze(ctx context.Context, actx *model.AnalysisContext) (*model.AnalysisResult, error) {
	payload := deepSeekRequest{
		Model:       b.model,
		Temperature: 0.3,
		Messages: []deepSeekMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: buildAnalysisPrompt(actx)},
		},
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deepseek request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create deepseek request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Warn("DeepSeek completion failed",
			zap.String("symbol", actx.Instrument.Symbol),
			zap.String("request_id", actx.RequestID),
			zap.Error(err))
		return nil, fmt.Errorf("deepseek completion failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var decoded deepSeekResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode deepseek response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("deepseek error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("deepseek returned no choices")
	}

	return parseAnalysisPayload(decoded.Choices[0].Message.Content, b.ID())
}
