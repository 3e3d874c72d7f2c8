package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		input    string
		expected ProviderKind
		wantErr  bool
	}{
		{"groq", ProviderCloud, false},
		{"ollama", ProviderLocal, false},
		{" Ollama ", ProviderLocal, false},
		{"openai", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProviderKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProviderKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseProviderKind(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestProviderRegistry(t *testing.T) {
	env := newTestEnv(t)
	cloud := NewCloudProvider(env.configs, "", time.Second)
	registry := NewProviderRegistry(cloud)

	p, err := registry.Get(ProviderCloud)
	require.NoError(t, err)
	assert.Equal(t, ProviderCloud, p.Kind())

	_, err = registry.Get(ProviderLocal)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCloudProvider_MissingKeyIsNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	p := NewCloudProvider(env.configs, "http://127.0.0.1:1", time.Second)

	_, err := p.Generate(context.Background(), "prompt", SystemPrompt)
	require.Error(t, err)
	assert.Equal(t, KindNotConfigured, KindOf(err))
	assert.NotEqual(t, KindUpstreamAuth, KindOf(err))

	status := p.TestConnection(context.Background())
	assert.False(t, status.Connected)
	assert.Equal(t, "Groq API key not configured", status.Message)
}

func newGroqStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestCloudProvider_Generate(t *testing.T) {
	env := newTestEnv(t)
	env.seedSecret(t, SettingGroqAPIKey, "gsk_live")

	server := newGroqStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_live", r.Header.Get("Authorization"))

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultGroqModel, body.Model)
		assert.Equal(t, 8192, body.MaxTokens)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
			assert.Equal(t, "the prompt", body.Messages[1].Content)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  DefaultGroqModel,
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": "# Test Plan"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 60, "total_tokens": 100},
		})
	})

	p := NewCloudProvider(env.configs, server.URL, 5*time.Second)
	result, err := p.Generate(context.Background(), "the prompt", SystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "# Test Plan", result.Content)
	assert.Equal(t, DefaultGroqModel, result.Model)
	assert.Equal(t, ProviderCloud, result.Provider)
	assert.Equal(t, 100, result.Metadata.TokensUsed)
	assert.GreaterOrEqual(t, result.Metadata.GenerationTimeMs, int64(0))
}

func TestCloudProvider_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.seedSecret(t, SettingGroqAPIKey, "gsk_revoked")

	server := newGroqStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]string{"message": "Invalid API Key", "type": "invalid_request_error", "code": "invalid_api_key"},
		})
	})

	p := NewCloudProvider(env.configs, server.URL, 5*time.Second)
	_, err := p.Generate(context.Background(), "p", SystemPrompt)
	assert.Equal(t, KindUpstreamAuth, KindOf(err))

	status := p.TestConnection(context.Background())
	assert.False(t, status.Connected)
	assert.True(t, strings.HasPrefix(status.Message, "Connection failed:"), status.Message)
}

func TestCloudProvider_ListModelsAndTest(t *testing.T) {
	env := newTestEnv(t)
	env.seedSecret(t, SettingGroqAPIKey, "gsk_live")

	server := newGroqStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"object": "list",
			"data": []map[string]string{
				{"id": "llama3-70b-8192", "object": "model", "owned_by": "Meta"},
				{"id": "mixtral-8x7b-32768", "object": "model", "owned_by": "Mistral AI"},
			},
		})
	})

	p := NewCloudProvider(env.configs, server.URL, 5*time.Second)
	list, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "llama3-70b-8192", list[0].ID)

	status := p.TestConnection(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, "Connected. 2 models available.", status.Message)
}

func newOllamaStub(t *testing.T, env *testEnv, handler http.HandlerFunc) *LocalProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	require.NoError(t, env.settings.BatchUpsert([]SettingPair{
		{Key: SettingOllamaBaseURL, Value: server.URL},
		{Key: SettingOllamaModel, Value: "mistral"},
	}))
	return NewLocalProvider(env.configs, 5*time.Second, time.Second)
}

func TestLocalProvider_Generate(t *testing.T) {
	env := newTestEnv(t)
	p := newOllamaStub(t, env, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body struct {
			Model    string                 `json:"model"`
			Stream   *bool                  `json:"stream"`
			Options  map[string]interface{} `json:"options"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral", body.Model)
		if assert.NotNil(t, body.Stream) {
			assert.False(t, *body.Stream)
		}
		assert.EqualValues(t, 8192, body.Options["num_predict"])
		assert.EqualValues(t, 0.3, body.Options["temperature"])
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"model":             "mistral",
			"message":           map[string]string{"role": "assistant", "content": "## Plan"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        30,
		})
	})

	result, err := p.Generate(context.Background(), "prompt", SystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "## Plan", result.Content)
	assert.Equal(t, "mistral", result.Model)
	assert.Equal(t, ProviderLocal, result.Provider)
	assert.Equal(t, 42, result.Metadata.TokensUsed)
}

func TestLocalProvider_GenerateError(t *testing.T) {
	env := newTestEnv(t)
	p := newOllamaStub(t, env, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "model 'mistral' not found"})
	})

	_, err := p.Generate(context.Background(), "prompt", SystemPrompt)
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Contains(t, err.Error(), "Ollama error (404)")
}

func TestLocalProvider_ListModels(t *testing.T) {
	env := newTestEnv(t)
	p := newOllamaStub(t, env, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"models": []map[string]interface{}{
				{"name": "llama3:latest", "model": "llama3:latest", "size": 4661224676},
			},
		})
	})

	list, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "llama3:latest", list[0].Name)
	assert.Equal(t, int64(4661224676), list[0].Size)

	status := p.TestConnection(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, "Connected. 1 models available.", status.Message)
}

func TestLocalProvider_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.settings.Upsert(SettingOllamaBaseURL, "http://127.0.0.1:1"))
	p := NewLocalProvider(env.configs, time.Second, time.Second)

	status := p.TestConnection(context.Background())
	assert.False(t, status.Connected)
	assert.True(t, strings.HasPrefix(status.Message, "Cannot reach Ollama:"), status.Message)

	_, err := p.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot reach Ollama at http://127.0.0.1:1")
}

func TestLocalProvider_ProbeStatus(t *testing.T) {
	env := newTestEnv(t)
	p := newOllamaStub(t, env, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "loading"})
	})

	status := p.TestConnection(context.Background())
	assert.False(t, status.Connected)
	assert.Equal(t, "Ollama returned status 503", status.Message)
}
