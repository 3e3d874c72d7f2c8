package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/pkg/logger"
)

const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// CloudProvider talks to Groq through its OpenAI-compatible API. Credentials
// are read from settings on every call so saved changes apply immediately.
type CloudProvider struct {
	configs *IntegrationConfigService
	baseURL string
	timeout time.Duration
}

func NewCloudProvider(configs *IntegrationConfigService, baseURL string, timeout time.Duration) *CloudProvider {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	return &CloudProvider{configs: configs, baseURL: baseURL, timeout: timeout}
}

func (p *CloudProvider) Kind() ProviderKind { return ProviderCloud }

func (p *CloudProvider) client(apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = p.baseURL
	clientConfig.HTTPClient = &http.Client{Timeout: p.timeout}
	return openai.NewClientWithConfig(clientConfig)
}

func (p *CloudProvider) Generate(ctx context.Context, prompt, systemPrompt string) (*GenerationResult, error) {
	cfg, err := p.configs.Cloud()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.client(cfg.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		logger.Errorf("[Groq] API error: %v", err)
		return nil, mapOpenAIError(err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	elapsed := time.Since(start)
	logger.Infof("[Groq] Response length: %d chars, tokens: %d, took %v", len(content), resp.Usage.TotalTokens, elapsed)

	return &GenerationResult{
		Content:  content,
		Model:    cfg.Model,
		Provider: ProviderCloud,
		Metadata: models.GenerationMetadata{
			TokensUsed:       resp.Usage.TotalTokens,
			GenerationTimeMs: elapsed.Milliseconds(),
		},
	}, nil
}

func (p *CloudProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	cfg, err := p.configs.Cloud()
	if err != nil {
		return nil, err
	}
	list, err := p.client(cfg.APIKey).ListModels(ctx)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	out := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, ModelInfo{ID: m.ID, Name: m.ID})
	}
	return out, nil
}

func (p *CloudProvider) TestConnection(ctx context.Context) ConnectionStatus {
	cfg, err := p.configs.Cloud()
	if err != nil {
		if IsKind(err, KindNotConfigured) {
			return ConnectionStatus{Connected: false, Message: "Groq API key not configured"}
		}
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Connection failed: %v", err)}
	}
	list, err := p.client(cfg.APIKey).ListModels(ctx)
	if err != nil {
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Connection failed: %v", err)}
	}
	return ConnectionStatus{
		Connected: true,
		Message:   fmt.Sprintf("Connected. %d models available.", len(list.Models)),
	}
}

func mapOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusUnauthorized {
		return newUpstreamAuthError("Groq authentication failed. Please check your API key.")
	}
	return newUpstreamError(status, fmt.Sprintf("Groq API error: %v", err), err)
}
