package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/pkg/logger"
)

const localTemperature = 0.3

// LocalProvider talks to an Ollama server. Generation and probes use
// separate clients so a slow generation never stalls a health check.
type LocalProvider struct {
	configs        *IntegrationConfigService
	generateClient *http.Client
	probeClient    *http.Client
}

func NewLocalProvider(configs *IntegrationConfigService, generateTimeout, probeTimeout time.Duration) *LocalProvider {
	return &LocalProvider{
		configs:        configs,
		generateClient: &http.Client{Timeout: generateTimeout},
		probeClient:    &http.Client{Timeout: probeTimeout},
	}
}

func (p *LocalProvider) Kind() ProviderKind { return ProviderLocal }

func (p *LocalProvider) client(baseURL string, httpClient *http.Client) (*api.Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, newValidationError("Invalid Ollama base URL: %v", err)
	}
	return api.NewClient(u, httpClient), nil
}

func (p *LocalProvider) Generate(ctx context.Context, prompt, systemPrompt string) (*GenerationResult, error) {
	cfg, err := p.configs.Local()
	if err != nil {
		return nil, err
	}
	client, err := p.client(cfg.BaseURL, p.generateClient)
	if err != nil {
		return nil, err
	}

	stream := false
	start := time.Now()
	var content strings.Builder
	var tokens int

	err = client.Chat(ctx, &api.ChatRequest{
		Model: cfg.Model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": localTemperature,
			"num_predict": maxOutputTokens,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			tokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	if err != nil {
		logger.Errorf("[Ollama] API error: %v", err)
		var se api.StatusError
		if errors.As(err, &se) {
			return nil, newUpstreamError(se.StatusCode, fmt.Sprintf("Ollama error (%d): %s", se.StatusCode, se.ErrorMessage), err)
		}
		return nil, newUpstreamError(0, fmt.Sprintf("Cannot reach Ollama at %s: %v", cfg.BaseURL, err), err)
	}

	elapsed := time.Since(start)
	logger.Infof("[Ollama] Response length: %d chars, tokens: %d, took %v", content.Len(), tokens, elapsed)

	return &GenerationResult{
		Content:  content.String(),
		Model:    cfg.Model,
		Provider: ProviderLocal,
		Metadata: models.GenerationMetadata{
			TokensUsed:       tokens,
			GenerationTimeMs: elapsed.Milliseconds(),
		},
	}, nil
}

func (p *LocalProvider) listModels(ctx context.Context) ([]ModelInfo, *LocalConfig, error) {
	cfg, err := p.configs.Local()
	if err != nil {
		return nil, nil, err
	}
	client, err := p.client(cfg.BaseURL, p.probeClient)
	if err != nil {
		return nil, cfg, err
	}
	resp, err := client.List(ctx)
	if err != nil {
		return nil, cfg, err
	}
	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, ModelInfo{ID: m.Name, Name: m.Name, Size: m.Size})
	}
	return out, cfg, nil
}

func (p *LocalProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	list, cfg, err := p.listModels(ctx)
	if err != nil {
		if cfg == nil {
			return nil, err
		}
		return nil, newUpstreamError(0, fmt.Sprintf("Cannot reach Ollama at %s: %v", cfg.BaseURL, err), err)
	}
	return list, nil
}

func (p *LocalProvider) TestConnection(ctx context.Context) ConnectionStatus {
	list, _, err := p.listModels(ctx)
	if err != nil {
		var se api.StatusError
		if errors.As(err, &se) {
			return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Ollama returned status %d", se.StatusCode)}
		}
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Cannot reach Ollama: %v", err)}
	}
	return ConnectionStatus{
		Connected: true,
		Message:   fmt.Sprintf("Connected. %d models available.", len(list)),
	}
}
