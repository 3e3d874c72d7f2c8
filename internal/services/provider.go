package services

import (
	"context"
	"strings"

	"github.com/testplan-ai/backend/internal/models"
)

// ProviderKind selects a generation backend.
type ProviderKind string

const (
	ProviderCloud ProviderKind = "groq"
	ProviderLocal ProviderKind = "ollama"
)

// ParseProviderKind accepts exactly the two known kinds.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderCloud:
		return ProviderCloud, nil
	case ProviderLocal:
		return ProviderLocal, nil
	default:
		return "", newValidationError("Unknown provider: %s", s)
	}
}

func (k ProviderKind) String() string { return string(k) }

// maxOutputTokens caps generated output for both backends.
const maxOutputTokens = 8192

type GenerationResult struct {
	Content  string
	Model    string
	Provider ProviderKind
	Metadata models.GenerationMetadata
}

type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// ConnectionStatus is the outcome of a health probe.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// Provider is an LLM backend. TestConnection never fails; every problem is
// reported through the returned status.
type Provider interface {
	Kind() ProviderKind
	Generate(ctx context.Context, prompt, systemPrompt string) (*GenerationResult, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	TestConnection(ctx context.Context) ConnectionStatus
}

type ProviderRegistry struct {
	providers map[ProviderKind]Provider
}

func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[ProviderKind]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Kind()] = p
	}
	return r
}

func (r *ProviderRegistry) Get(kind ProviderKind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, newValidationError("Unknown provider: %s", kind)
	}
	return p, nil
}
