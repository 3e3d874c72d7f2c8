package services

import (
	"errors"
	"strings"
	"time"

	"github.com/testplan-ai/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SettingJiraBaseURL     = "jira_base_url"
	SettingJiraUsername    = "jira_username"
	SettingJiraAPIToken    = "jira_api_token"
	SettingLLMProvider     = "llm_provider"
	SettingGroqAPIKey      = "groq_api_key"
	SettingGroqModel       = "groq_model"
	SettingGroqTemperature = "groq_temperature"
	SettingOllamaBaseURL   = "ollama_base_url"
	SettingOllamaModel     = "ollama_model"
)

var knownSettingKeys = map[string]bool{
	SettingJiraBaseURL:     true,
	SettingJiraUsername:    true,
	SettingJiraAPIToken:    true,
	SettingLLMProvider:     true,
	SettingGroqAPIKey:      true,
	SettingGroqModel:       true,
	SettingGroqTemperature: true,
	SettingOllamaBaseURL:   true,
	SettingOllamaModel:     true,
}

// IsSecretSetting reports whether values under key are stored encrypted.
func IsSecretSetting(key string) bool {
	return strings.Contains(key, "token") || strings.Contains(key, "api_key")
}

type SettingPair struct {
	Key   string
	Value string
}

// SettingService is a plain key/value store. Values are opaque; callers
// encrypt secrets before writing them.
type SettingService struct {
	db *gorm.DB
}

func NewSettingService(db *gorm.DB) *SettingService {
	return &SettingService{db: db}
}

func (s *SettingService) GetAll() (map[string]string, error) {
	var rows []models.Setting
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Get distinguishes an absent key (found == false) from an empty value.
func (s *SettingService) Get(key string) (string, bool, error) {
	var row models.Setting
	err := s.db.Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *SettingService) Upsert(key, value string) error {
	return s.BatchUpsert([]SettingPair{{Key: key, Value: value}})
}

// BatchUpsert writes all pairs in one transaction. Unknown keys are rejected
// before anything is written.
func (s *SettingService) BatchUpsert(pairs []SettingPair) error {
	for _, p := range pairs {
		if !knownSettingKeys[p.Key] {
			return newValidationError("Unknown setting: %s", p.Key)
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, p := range pairs {
			row := models.Setting{Key: p.Key, Value: p.Value, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
