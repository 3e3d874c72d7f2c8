package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/pkg/response"
)

type SettingsHandler struct {
	configs *services.IntegrationConfigService
	jira    *services.JiraService
	cloud   services.Provider
	local   services.Provider
}

func NewSettingsHandler(
	configs *services.IntegrationConfigService,
	jira *services.JiraService,
	cloud services.Provider,
	local services.Provider,
) *SettingsHandler {
	return &SettingsHandler{configs: configs, jira: jira, cloud: cloud, local: local}
}

// GetAll godoc
// @Summary List settings with secrets masked
// @Tags Settings
// @Router /api/settings [get]
func (h *SettingsHandler) GetAll(c *gin.Context) {
	settings, err := h.configs.MaskedSettings()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"settings": settings})
}

// SaveJira godoc
// @Summary Save JIRA credentials
// @Tags Settings
// @Accept json
// @Router /api/settings/jira [post]
func (h *SettingsHandler) SaveJira(c *gin.Context) {
	var req services.SaveTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.configs.SaveTracker(req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "JIRA settings saved"})
}

func (h *SettingsHandler) TestJira(c *gin.Context) {
	writeStatus(c, h.jira.TestConnection(c.Request.Context()))
}

// SaveLLM godoc
// @Summary Save provider settings
// @Tags Settings
// @Accept json
// @Router /api/settings/llm [post]
func (h *SettingsHandler) SaveLLM(c *gin.Context) {
	var req services.SaveLLMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := h.configs.SaveLLM(req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "LLM settings saved"})
}

func (h *SettingsHandler) ListGroqModels(c *gin.Context) {
	writeModels(c, h.cloud)
}

func (h *SettingsHandler) TestGroq(c *gin.Context) {
	writeStatus(c, h.cloud.TestConnection(c.Request.Context()))
}

func (h *SettingsHandler) TestOllama(c *gin.Context) {
	writeStatus(c, h.local.TestConnection(c.Request.Context()))
}

func writeStatus(c *gin.Context, status services.ConnectionStatus) {
	response.Success(c, gin.H{"connected": status.Connected, "message": status.Message})
}

// writeModels reports listing failures in-band with a 200, like a probe.
func writeModels(c *gin.Context, p services.Provider) {
	list, err := p.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "models": []services.ModelInfo{}, "error": err.Error()})
		return
	}
	response.Success(c, gin.H{"models": list})
}
