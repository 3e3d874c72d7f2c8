package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/testplan-ai/backend/internal/metrics"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/pkg/logger"
	"gorm.io/gorm"
)

const DefaultHistoryLimit = 50

type GenerateRequest struct {
	TicketID   string `json:"ticketId"`
	TemplateID *uint  `json:"templateId"`
	Provider   string `json:"provider"`
}

// TestPlanService composes prompts from cached tickets, calls a provider with
// bounded retry and records every successful generation.
type TestPlanService struct {
	db        *gorm.DB
	tickets   *TicketCacheService
	templates *TemplateService
	configs   *IntegrationConfigService
	providers *ProviderRegistry
	retry     RetryPolicy
}

func NewTestPlanService(
	db *gorm.DB,
	tickets *TicketCacheService,
	templates *TemplateService,
	configs *IntegrationConfigService,
	providers *ProviderRegistry,
) *TestPlanService {
	return &TestPlanService{
		db:        db,
		tickets:   tickets,
		templates: templates,
		configs:   configs,
		providers: providers,
		retry:     DefaultRetryPolicy(),
	}
}

// WithRetryPolicy replaces the retry policy, mainly for tests.
func (s *TestPlanService) WithRetryPolicy(p RetryPolicy) *TestPlanService {
	s.retry = p
	return s
}

func (s *TestPlanService) Generate(ctx context.Context, req GenerateRequest) (*models.TestPlan, error) {
	ticketID := strings.TrimSpace(req.TicketID)
	if ticketID == "" {
		return nil, newValidationError("Ticket ID is required")
	}

	kind, err := s.resolveProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(kind)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.MostRecent(ticketID)
	if err != nil {
		return nil, err
	}

	var templateID *uint
	var templateContent string
	if req.TemplateID != nil && *req.TemplateID != 0 {
		templateID = req.TemplateID
		tpl, err := s.templates.GetByID(*req.TemplateID)
		switch {
		case err == nil:
			templateContent = tpl.Content
		case IsKind(err, KindNotFound):
			logger.Warnf("[TestPlan] Template %d not found, using default outline", *req.TemplateID)
		default:
			return nil, err
		}
	}

	prompt := BuildPrompt(ticket, templateContent)
	logger.Infof("[TestPlan] Generating plan for %s with %s (prompt %d chars)", ticket.TicketID, kind, len(prompt))

	var result *GenerationResult
	err = s.retry.Do(ctx, func(attempt int) error {
		res, err := provider.Generate(ctx, prompt, SystemPrompt)
		metrics.Global().GenerationAttempts.WithLabelValues(kind.String(), metrics.Outcome(err)).Inc()
		if err != nil {
			return err
		}
		result = res
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		logger.Warnf("[TestPlan] Attempt %d/%d with %s failed: %v, retrying in %v", attempt, s.retry.MaxAttempts, kind, err, wait)
	})
	if err != nil {
		logger.Errorf("[TestPlan] Generation for %s failed: %v", ticket.TicketID, err)
		return nil, err
	}
	metrics.Global().GenerationDuration.WithLabelValues(kind.String()).
		Observe(float64(result.Metadata.GenerationTimeMs) / 1000)

	plan := &models.TestPlan{
		TicketID:      ticket.TicketID,
		TicketSummary: ticket.Summary,
		TemplateID:    templateID,
		Content:       result.Content,
		Provider:      result.Provider.String(),
		Model:         result.Model,
		Metadata:      result.Metadata,
	}
	if err := s.db.Create(plan).Error; err != nil {
		return nil, err
	}
	logger.Infof("[TestPlan] Saved plan %d for %s (%d tokens, %dms)", plan.ID, plan.TicketID, plan.Metadata.TokensUsed, plan.Metadata.GenerationTimeMs)
	return plan, nil
}

// resolveProvider prefers the explicit choice, then the stored default.
func (s *TestPlanService) resolveProvider(explicit string) (ProviderKind, error) {
	if strings.TrimSpace(explicit) != "" {
		return ParseProviderKind(explicit)
	}
	return s.configs.DefaultProvider(), nil
}

// History lists the newest plans without their content.
func (s *TestPlanService) History(limit int) ([]models.TestPlan, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	plans := []models.TestPlan{}
	err := s.db.Select("id", "ticket_id", "ticket_summary", "template_id", "provider", "model", "metadata_json", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&plans).Error
	return plans, err
}

func (s *TestPlanService) GetByID(id uint) (*models.TestPlan, error) {
	var plan models.TestPlan
	if err := s.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("Test plan not found")
		}
		return nil, err
	}
	return &plan, nil
}
