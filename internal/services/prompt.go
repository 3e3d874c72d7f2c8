package services

import (
	"strings"

	"github.com/testplan-ai/backend/internal/models"
)

const SystemPrompt = `You are an expert QA Engineer with 15+ years of experience. Generate a comprehensive, professional test plan based on the provided JIRA ticket details and following the structure of the template below.

Your test plan must:
1. Map ticket details to appropriate template sections
2. Maintain the template formatting and structure
3. Add specific, actionable test scenarios based on acceptance criteria
4. Include both positive and negative test cases
5. Cover edge cases and boundary conditions
6. Include smoke tests, regression tests, and integration tests where applicable
7. Be written in clear, professional language
8. Include test data suggestions where relevant

Format the output in clean Markdown.`

const defaultOutline = `1. Test Plan Overview
2. Scope (In-Scope / Out-of-Scope)
3. Test Strategy
4. Test Scenarios
5. Test Cases (with steps, expected results)
6. Test Data Requirements
7. Entry/Exit Criteria
8. Risks and Mitigation
`

// BuildPrompt renders the user prompt for a ticket. An empty template falls
// back to the default section outline.
func BuildPrompt(ticket *models.Ticket, templateContent string) string {
	var sb strings.Builder

	sb.WriteString("## JIRA Ticket Details\n")
	sb.WriteString("**Ticket ID:** " + ticket.TicketID + "\n")
	sb.WriteString("**Summary:** " + ticket.Summary + "\n")
	sb.WriteString("**Priority:** " + ticket.Priority + "\n")
	sb.WriteString("**Status:** " + ticket.Status + "\n")
	sb.WriteString("**Assignee:** " + ticket.Assignee + "\n")
	if len(ticket.Labels) > 0 {
		sb.WriteString("**Labels:** " + strings.Join(ticket.Labels, ", ") + "\n")
	}

	description := ticket.Description
	if description == "" {
		description = "No description provided."
	}
	sb.WriteString("\n**Description:**\n" + description + "\n")

	if ticket.AcceptanceCriteria != "" {
		sb.WriteString("\n**Acceptance Criteria:**\n" + ticket.AcceptanceCriteria + "\n")
	}

	if templateContent != "" {
		sb.WriteString("\n---\n\n## Template Structure (Follow this format):\n" + templateContent + "\n")
	} else {
		sb.WriteString("\n---\n\nPlease use a standard test plan structure with the following sections:\n")
		sb.WriteString(defaultOutline)
	}

	sb.WriteString("\nGenerate a comprehensive test plan now.")
	return sb.String()
}
