package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/testplan-ai/backend/internal/config"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	codecOnce sync.Once
	codec     *utils.SecretCodec
)

func testCodec(t *testing.T) *utils.SecretCodec {
	t.Helper()
	codecOnce.Do(func() {
		c, err := utils.NewSecretCodec("handler-test")
		if err != nil {
			panic(err)
		}
		codec = c
	})
	return codec
}

type stubProvider struct {
	kind    services.ProviderKind
	content string
	models  []services.ModelInfo
	listErr error
}

func (p *stubProvider) Kind() services.ProviderKind { return p.kind }

func (p *stubProvider) Generate(ctx context.Context, prompt, systemPrompt string) (*services.GenerationResult, error) {
	return &services.GenerationResult{
		Content:  p.content,
		Model:    "stub-model",
		Provider: p.kind,
		Metadata: models.GenerationMetadata{TokensUsed: 12, GenerationTimeMs: 34},
	}, nil
}

func (p *stubProvider) ListModels(ctx context.Context) ([]services.ModelInfo, error) {
	return p.models, p.listErr
}

func (p *stubProvider) TestConnection(ctx context.Context) services.ConnectionStatus {
	if p.listErr != nil {
		return services.ConnectionStatus{Connected: false, Message: p.listErr.Error()}
	}
	return services.ConnectionStatus{Connected: true, Message: "Connected"}
}

type testServer struct {
	router    *gin.Engine
	configs   *services.IntegrationConfigService
	tickets   *services.TicketCacheService
	templates *services.TemplateService
	cloud     *stubProvider
	local     *stubProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "handlers.db"),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	configs := services.NewIntegrationConfigService(services.NewSettingService(db), testCodec(t))
	tickets := services.NewTicketCacheService(db)
	templates := services.NewTemplateService(db, t.TempDir(), 5<<20)
	jira := services.NewJiraService(configs, tickets, 5*time.Second)
	cloud := &stubProvider{kind: services.ProviderCloud, listErr: errors.New("Groq API key not configured")}
	local := &stubProvider{
		kind:    services.ProviderLocal,
		content: "# Test Plan\n\n## 1. Objective",
		models:  []services.ModelInfo{{ID: "llama3", Name: "llama3", Size: 42}},
	}
	plans := services.NewTestPlanService(db, tickets, templates, configs, services.NewProviderRegistry(cloud, local))

	settingsHandler := NewSettingsHandler(configs, jira, cloud, local)
	jiraHandler := NewJiraHandler(jira, tickets)
	planHandler := NewTestPlanHandler(plans, local)
	templateHandler := NewTemplateHandler(templates, 5<<20)

	r := gin.New()
	r.GET("/api/health", NewHealthHandler(db).CheckHealth)
	api := r.Group("/api")
	api.GET("/settings", settingsHandler.GetAll)
	api.POST("/settings/jira", settingsHandler.SaveJira)
	api.POST("/settings/llm", settingsHandler.SaveLLM)
	api.GET("/settings/llm/models/groq", settingsHandler.ListGroqModels)
	api.GET("/settings/llm/test/ollama", settingsHandler.TestOllama)
	api.POST("/jira/fetch", jiraHandler.Fetch)
	api.GET("/jira/recent", jiraHandler.Recent)
	api.POST("/testplan/generate", planHandler.Generate)
	api.GET("/testplan/history", planHandler.History)
	api.GET("/testplan/models/ollama", planHandler.OllamaModels)
	api.GET("/testplan/:id", planHandler.Get)
	api.GET("/templates", templateHandler.List)
	api.GET("/templates/:id", templateHandler.Get)
	api.POST("/templates/upload", templateHandler.Upload)
	api.DELETE("/templates/:id", templateHandler.Delete)

	return &testServer{
		router:    r,
		configs:   configs,
		tickets:   tickets,
		templates: templates,
		cloud:     cloud,
		local:     local,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
