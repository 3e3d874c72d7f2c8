package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/pkg/response"
)

type TestPlanHandler struct {
	plans *services.TestPlanService
	local services.Provider
}

func NewTestPlanHandler(plans *services.TestPlanService, local services.Provider) *TestPlanHandler {
	return &TestPlanHandler{plans: plans, local: local}
}

// Generate godoc
// @Summary Generate a test plan for a cached ticket
// @Tags TestPlan
// @Accept json
// @Router /api/testplan/generate [post]
func (h *TestPlanHandler) Generate(c *gin.Context) {
	var req services.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	plan, err := h.plans.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"testPlan": plan.Generated()})
}

func (h *TestPlanHandler) History(c *gin.Context) {
	plans, err := h.plans.History(services.DefaultHistoryLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"plans": plans})
}

func (h *TestPlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	plan, err := h.plans.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"testPlan": plan})
}

func (h *TestPlanHandler) OllamaModels(c *gin.Context) {
	writeModels(c, h.local)
}
