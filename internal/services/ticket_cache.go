package services

import (
	"errors"
	"time"

	"github.com/testplan-ai/backend/internal/models"
	"gorm.io/gorm"
)

const DefaultRecentTicketsLimit = 5

// TicketCacheService is an append-only log of fetched tickets. Every fetch
// produces a new row; readers take the newest.
type TicketCacheService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTicketCacheService(db *gorm.DB) *TicketCacheService {
	return &TicketCacheService{db: db, now: time.Now}
}

func (s *TicketCacheService) RecordFetch(ticket *models.Ticket) error {
	record := models.TicketRecord{
		TicketID:  ticket.TicketID,
		Summary:   ticket.Summary,
		Data:      *ticket,
		FetchedAt: s.now(),
	}
	return s.db.Create(&record).Error
}

// MostRecent returns the latest snapshot for ticketID. Rows fetched within
// the same instant are ordered by insertion.
func (s *TicketCacheService) MostRecent(ticketID string) (*models.Ticket, error) {
	var record models.TicketRecord
	err := s.db.Where("ticket_id = ?", ticketID).
		Order("fetched_at DESC").
		Order("id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newNotFoundError("Ticket not found. Please fetch it first.")
	}
	if err != nil {
		return nil, err
	}
	ticket := record.Data
	if ticket.Labels == nil {
		ticket.Labels = []string{}
	}
	return &ticket, nil
}

func (s *TicketCacheService) RecentlyFetched(limit int) ([]models.TicketSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentTicketsLimit
	}
	var out []models.TicketSummary
	err := s.db.Model(&models.TicketRecord{}).
		Select("ticket_id", "summary", "fetched_at").
		Order("fetched_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
