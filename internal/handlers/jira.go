package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/pkg/response"
)

type JiraHandler struct {
	jira    *services.JiraService
	tickets *services.TicketCacheService
}

func NewJiraHandler(jira *services.JiraService, tickets *services.TicketCacheService) *JiraHandler {
	return &JiraHandler{jira: jira, tickets: tickets}
}

type fetchTicketRequest struct {
	TicketID string `json:"ticketId"`
}

// Fetch godoc
// @Summary Fetch a ticket from JIRA and cache it
// @Tags Jira
// @Accept json
// @Router /api/jira/fetch [post]
func (h *JiraHandler) Fetch(c *gin.Context) {
	var req fetchTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	ticket, err := h.jira.Fetch(c.Request.Context(), req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"ticket": ticket})
}

func (h *JiraHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultRecentTicketsLimit)))
	tickets, err := h.tickets.RecentlyFetched(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"tickets": tickets})
}
