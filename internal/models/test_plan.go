package models

import "time"

// GenerationMetadata is reported by the provider for one generation call.
type GenerationMetadata struct {
	TokensUsed       int   `json:"tokensUsed"`
	GenerationTimeMs int64 `json:"generationTimeMs"`
}

// TestPlan is an immutable generation result. TemplateID is a weak reference:
// the template may have been deleted since.
type TestPlan struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	TicketID      string             `gorm:"size:100;index;not null" json:"ticket_id"`
	TicketSummary string             `gorm:"type:text" json:"ticket_summary"`
	TemplateID    *uint              `json:"template_id"`
	Content       string             `gorm:"type:text;not null" json:"content,omitempty"`
	Provider      string             `gorm:"size:50;not null" json:"provider"`
	Model         string             `gorm:"size:100;not null" json:"model"`
	Metadata      GenerationMetadata `gorm:"column:metadata_json;type:text;serializer:json" json:"metadata"`
	CreatedAt     time.Time          `gorm:"index" json:"created_at"`
}

func (TestPlan) TableName() string { return "test_plans" }

// GeneratedTestPlan is the shape returned right after generation.
type GeneratedTestPlan struct {
	ID            uint               `json:"id"`
	TicketID      string             `json:"ticketId"`
	TicketSummary string             `json:"ticketSummary"`
	TemplateID    *uint              `json:"templateId"`
	Content       string             `json:"content"`
	Provider      string             `json:"provider"`
	Model         string             `json:"model"`
	Metadata      GenerationMetadata `json:"metadata"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func (p *TestPlan) Generated() GeneratedTestPlan {
	return GeneratedTestPlan{
		ID:            p.ID,
		TicketID:      p.TicketID,
		TicketSummary: p.TicketSummary,
		TemplateID:    p.TemplateID,
		Content:       p.Content,
		Provider:      p.Provider,
		Model:         p.Model,
		Metadata:      p.Metadata,
		CreatedAt:     p.CreatedAt,
	}
}
