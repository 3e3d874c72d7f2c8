package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/testplan-ai/backend/internal/metrics"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/utils"
	"github.com/testplan-ai/backend/pkg/logger"
)

// Custom fields commonly used for acceptance criteria, checked in order.
var acceptanceCriteriaFields = []string{
	"customfield_10028",
	"customfield_10029",
	"customfield_10100",
}

var (
	acLabelPattern      = regexp.MustCompile(`(?i)\b(?:acceptance criteria|ac)\b[:\s]*`)
	acSectionEndPattern = regexp.MustCompile(`^[A-Z][^:\n]*:\s*$`)
)

type JiraService struct {
	configs *IntegrationConfigService
	cache   *TicketCacheService
	client  *resty.Client
}

func NewJiraService(configs *IntegrationConfigService, cache *TicketCacheService, timeout time.Duration) *JiraService {
	return &JiraService{
		configs: configs,
		cache:   cache,
		client:  resty.New().SetTimeout(timeout),
	}
}

type jiraIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type jiraFields struct {
	Summary     string           `json:"summary"`
	Description json.RawMessage  `json:"description"`
	Priority    *jiraNamed       `json:"priority"`
	Status      *jiraNamed       `json:"status"`
	Assignee    *jiraUser        `json:"assignee"`
	Labels      []string         `json:"labels"`
	Attachment  []jiraAttachment `json:"attachment"`
}

type jiraNamed struct {
	Name string `json:"name"`
}

type jiraUser struct {
	DisplayName string `json:"displayName"`
}

type jiraAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// adfNode is a node of the Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (s *JiraService) request(ctx context.Context, cfg *TrackerConfig) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		SetBasicAuth(cfg.Username, cfg.APIToken).
		SetHeader("Accept", "application/json")
}

// Fetch retrieves a ticket, normalizes it and records it in the cache.
func (s *JiraService) Fetch(ctx context.Context, ticketID string) (ticket *models.Ticket, err error) {
	defer func() {
		metrics.Global().TicketFetches.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	ticketID = strings.TrimSpace(ticketID)
	if !utils.ValidateTicketID(ticketID) {
		return nil, newValidationError("Invalid ticket ID format. Expected format: PROJECT-123")
	}

	cfg, err := s.configs.Tracker()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s", cfg.BaseURL, url.PathEscape(ticketID))
	resp, err := s.request(ctx, cfg).Get(endpoint)
	if err != nil {
		logger.Errorf("[Jira] Request for %s failed: %v", ticketID, err)
		return nil, newUpstreamError(0, fmt.Sprintf("JIRA request failed: %v", err), err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized:
		return nil, newUpstreamAuthError("JIRA authentication failed. Please check your credentials.")
	case status == http.StatusNotFound:
		return nil, newNotFoundError(fmt.Sprintf("Ticket %s not found.", ticketID))
	case status < 200 || status >= 300:
		return nil, newUpstreamError(status, fmt.Sprintf("JIRA API error (%d): %s", status, resp.String()), nil)
	}

	ticket, err = normalizeIssue(resp.Body())
	if err != nil {
		return nil, newUpstreamError(resp.StatusCode(), fmt.Sprintf("Invalid JIRA response: %v", err), err)
	}
	if ticket.TicketID == "" {
		ticket.TicketID = ticketID
	}

	if err := s.cache.RecordFetch(ticket); err != nil {
		return nil, err
	}
	logger.Infof("[Jira] Fetched %s: %s", ticket.TicketID, ticket.Summary)
	return ticket, nil
}

// TestConnection calls the current-user endpoint. It never returns an error.
func (s *JiraService) TestConnection(ctx context.Context) ConnectionStatus {
	cfg, err := s.configs.Tracker()
	if err != nil {
		if IsKind(err, KindNotConfigured) {
			return ConnectionStatus{Connected: false, Message: "JIRA credentials not configured"}
		}
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Connection error: %v", err)}
	}

	var user jiraUser
	resp, err := s.request(ctx, cfg).SetResult(&user).Get(cfg.BaseURL + "/rest/api/3/myself")
	if err != nil {
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Connection error: %v", err)}
	}
	if !resp.IsSuccess() {
		return ConnectionStatus{Connected: false, Message: fmt.Sprintf("Authentication failed (%d)", resp.StatusCode())}
	}
	return ConnectionStatus{Connected: true, Message: "Connected as " + user.DisplayName}
}

func normalizeIssue(body []byte) (*models.Ticket, error) {
	var issue jiraIssue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, err
	}

	var fields jiraFields
	raw := map[string]json.RawMessage{}
	if len(issue.Fields) > 0 && string(issue.Fields) != "null" {
		if err := json.Unmarshal(issue.Fields, &fields); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(issue.Fields, &raw); err != nil {
			return nil, err
		}
	}

	ticket := &models.Ticket{
		TicketID:    issue.Key,
		Summary:     fields.Summary,
		Description: flattenRichText(fields.Description),
		Priority:    "None",
		Status:      "Unknown",
		Assignee:    "Unassigned",
		Labels:      []string{},
		Attachments: []models.Attachment{},
	}
	if fields.Priority != nil && fields.Priority.Name != "" {
		ticket.Priority = fields.Priority.Name
	}
	if fields.Status != nil && fields.Status.Name != "" {
		ticket.Status = fields.Status.Name
	}
	if fields.Assignee != nil && fields.Assignee.DisplayName != "" {
		ticket.Assignee = fields.Assignee.DisplayName
	}
	if fields.Labels != nil {
		ticket.Labels = fields.Labels
	}
	for _, a := range fields.Attachment {
		ticket.Attachments = append(ticket.Attachments, models.Attachment{Filename: a.Filename, URL: a.Content})
	}
	ticket.AcceptanceCriteria = extractAcceptanceCriteria(raw, ticket.Description)

	return ticket, nil
}

// flattenRichText accepts either a plain string or an ADF document.
func flattenRichText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var node adfNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return ""
	}
	return flattenADF(&node)
}

func flattenADF(node *adfNode) string {
	if node.Type == "text" {
		return node.Text
	}
	if node.Content == nil {
		return ""
	}
	parts := make([]string, len(node.Content))
	for i := range node.Content {
		parts[i] = flattenADF(&node.Content[i])
	}
	return strings.Join(parts, "\n")
}

func extractAcceptanceCriteria(fields map[string]json.RawMessage, description string) string {
	for _, name := range acceptanceCriteriaFields {
		if v := flattenRichText(fields[name]); v != "" {
			return v
		}
	}
	return acceptanceCriteriaFromText(description)
}

// acceptanceCriteriaFromText takes the lines following an "Acceptance
// Criteria" or "AC" label, up to a blank line, a "---" separator or the next
// "Label:" line.
func acceptanceCriteriaFromText(text string) string {
	loc := acLabelPattern.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(text[loc[1]:], "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "---") {
			break
		}
		if len(lines) > 0 && acSectionEndPattern.MatchString(trimmed) {
			break
		}
		lines = append(lines, strings.TrimRight(line, " \t\r"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
