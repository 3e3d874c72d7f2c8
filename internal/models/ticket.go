package models

import "time"

// Ticket is the normalized form of a tracker issue.
type Ticket struct {
	TicketID           string       `json:"ticketId"`
	Summary            string       `json:"summary"`
	Description        string       `json:"description"`
	Priority           string       `json:"priority"`
	Status             string       `json:"status"`
	Assignee           string       `json:"assignee"`
	Labels             []string     `json:"labels"`
	AcceptanceCriteria string       `json:"acceptanceCriteria"`
	Attachments        []Attachment `json:"attachments"`
}

type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// TicketRecord is one cached fetch. Rows are append-only; several rows may
// share a TicketID.
type TicketRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  string    `gorm:"size:100;index;not null" json:"ticket_id"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Data      Ticket    `gorm:"column:data_json;type:text;not null;serializer:json" json:"-"`
	FetchedAt time.Time `gorm:"index" json:"fetched_at"`
}

func (TicketRecord) TableName() string { return "tickets" }

// TicketSummary is the projection returned by the recent-tickets listing.
type TicketSummary struct {
	TicketID  string    `json:"ticket_id"`
	Summary   string    `json:"summary"`
	FetchedAt time.Time `json:"fetched_at"`
}
