package services

import (
	"strconv"
	"strings"

	"github.com/testplan-ai/backend/internal/utils"
)

const (
	DefaultGroqModel       = "llama3-70b-8192"
	DefaultGroqTemperature = float32(0.3)
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultOllamaModel     = "llama3"

	maskedSecret = "••••••••"

	msgJiraNotConfigured = "JIRA is not configured. Please set up JIRA credentials in Settings."
	msgGroqNotConfigured = "Groq API key not configured. Please set it in Settings."
)

type TrackerConfig struct {
	BaseURL  string
	Username string
	APIToken string
}

type CloudConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

type LocalConfig struct {
	BaseURL string
	Model   string
}

// SaveTrackerRequest fields are optional; nil leaves the stored value alone.
type SaveTrackerRequest struct {
	BaseURL  *string `json:"baseUrl"`
	Username *string `json:"username"`
	APIToken *string `json:"apiToken"`
}

type SaveLLMRequest struct {
	Provider        *string  `json:"provider"`
	GroqAPIKey      *string  `json:"groqApiKey"`
	GroqModel       *string  `json:"groqModel"`
	GroqTemperature *float64 `json:"groqTemperature"`
	OllamaBaseURL   *string  `json:"ollamaBaseUrl"`
	OllamaModel     *string  `json:"ollamaModel"`
}

// IntegrationConfigService turns raw settings rows into typed per-subsystem
// configuration. Secrets are decrypted here and nowhere else.
type IntegrationConfigService struct {
	settings *SettingService
	codec    *utils.SecretCodec
}

func NewIntegrationConfigService(settings *SettingService, codec *utils.SecretCodec) *IntegrationConfigService {
	return &IntegrationConfigService{settings: settings, codec: codec}
}

// Tracker requires all three tracker keys to be present.
func (s *IntegrationConfigService) Tracker() (*TrackerConfig, error) {
	all, err := s.settings.GetAll()
	if err != nil {
		return nil, err
	}
	baseURL, ok1 := all[SettingJiraBaseURL]
	username, ok2 := all[SettingJiraUsername]
	token, ok3 := all[SettingJiraAPIToken]
	if !ok1 || !ok2 || !ok3 {
		return nil, newNotConfiguredError(msgJiraNotConfigured)
	}
	return &TrackerConfig{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		APIToken: s.codec.Decrypt(token),
	}, nil
}

// Cloud fails with a not-configured error when no usable API key is stored.
func (s *IntegrationConfigService) Cloud() (*CloudConfig, error) {
	all, err := s.settings.GetAll()
	if err != nil {
		return nil, err
	}
	stored, ok := all[SettingGroqAPIKey]
	if !ok {
		return nil, newNotConfiguredError(msgGroqNotConfigured)
	}
	apiKey := s.codec.Decrypt(stored)
	if apiKey == "" {
		return nil, newNotConfiguredError(msgGroqNotConfigured)
	}

	cfg := &CloudConfig{
		APIKey:      apiKey,
		Model:       DefaultGroqModel,
		Temperature: DefaultGroqTemperature,
	}
	if m := all[SettingGroqModel]; m != "" {
		cfg.Model = m
	}
	if t := all[SettingGroqTemperature]; t != "" {
		if v, err := strconv.ParseFloat(t, 32); err == nil {
			cfg.Temperature = float32(v)
		}
	}
	return cfg, nil
}

func (s *IntegrationConfigService) Local() (*LocalConfig, error) {
	all, err := s.settings.GetAll()
	if err != nil {
		return nil, err
	}
	cfg := &LocalConfig{BaseURL: DefaultOllamaBaseURL, Model: DefaultOllamaModel}
	if u := all[SettingOllamaBaseURL]; u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	if m := all[SettingOllamaModel]; m != "" {
		cfg.Model = m
	}
	return cfg, nil
}

// DefaultProvider returns the stored provider, falling back to Cloud when
// the setting is absent or holds an unknown value.
func (s *IntegrationConfigService) DefaultProvider() ProviderKind {
	value, found, err := s.settings.Get(SettingLLMProvider)
	if err != nil || !found {
		return ProviderCloud
	}
	kind, err := ParseProviderKind(value)
	if err != nil {
		return ProviderCloud
	}
	return kind
}

func (s *IntegrationConfigService) SaveTracker(req SaveTrackerRequest) error {
	var pairs []SettingPair

	if req.BaseURL != nil {
		if *req.BaseURL != "" && !utils.ValidateURL(*req.BaseURL) {
			return newValidationError("Invalid JIRA URL")
		}
		pairs = append(pairs, SettingPair{SettingJiraBaseURL, strings.TrimRight(*req.BaseURL, "/")})
	}
	if req.Username != nil {
		pairs = append(pairs, SettingPair{SettingJiraUsername, *req.Username})
	}
	if req.APIToken != nil {
		token, err := s.codec.Encrypt(*req.APIToken)
		if err != nil {
			return err
		}
		pairs = append(pairs, SettingPair{SettingJiraAPIToken, token})
	}

	return s.settings.BatchUpsert(pairs)
}

func (s *IntegrationConfigService) SaveLLM(req SaveLLMRequest) error {
	var pairs []SettingPair

	if req.Provider != nil {
		kind, err := ParseProviderKind(*req.Provider)
		if err != nil {
			return err
		}
		pairs = append(pairs, SettingPair{SettingLLMProvider, string(kind)})
	}
	if req.GroqAPIKey != nil {
		key, err := s.codec.Encrypt(*req.GroqAPIKey)
		if err != nil {
			return err
		}
		pairs = append(pairs, SettingPair{SettingGroqAPIKey, key})
	}
	if req.GroqModel != nil {
		pairs = append(pairs, SettingPair{SettingGroqModel, *req.GroqModel})
	}
	if req.GroqTemperature != nil {
		t := *req.GroqTemperature
		if t < 0 || t > 2 {
			return newValidationError("Temperature must be between 0 and 2")
		}
		pairs = append(pairs, SettingPair{SettingGroqTemperature, strconv.FormatFloat(t, 'f', -1, 64)})
	}
	if req.OllamaBaseURL != nil {
		if *req.OllamaBaseURL != "" && !utils.ValidateURL(*req.OllamaBaseURL) {
			return newValidationError("Invalid Ollama URL")
		}
		pairs = append(pairs, SettingPair{SettingOllamaBaseURL, strings.TrimRight(*req.OllamaBaseURL, "/")})
	}
	if req.OllamaModel != nil {
		pairs = append(pairs, SettingPair{SettingOllamaModel, *req.OllamaModel})
	}

	return s.settings.BatchUpsert(pairs)
}

// MaskedSettings returns every stored setting with secret values hidden.
func (s *IntegrationConfigService) MaskedSettings() (map[string]string, error) {
	all, err := s.settings.GetAll()
	if err != nil {
		return nil, err
	}
	for k, v := range all {
		if !IsSecretSetting(k) {
			continue
		}
		if v != "" {
			all[k] = maskedSecret
		}
	}
	return all, nil
}
