package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/testplan-ai/backend/internal/config"
	"github.com/testplan-ai/backend/internal/handlers"
	"github.com/testplan-ai/backend/internal/middleware"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/internal/utils"
	"github.com/testplan-ai/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds the handlers and long-lived resources of the process.
type appServices struct {
	db        *gorm.DB
	limiter   *middleware.RateLimiter
	health    *handlers.HealthHandler
	settings  *handlers.SettingsHandler
	jira      *handlers.JiraHandler
	testPlans *handlers.TestPlanHandler
	templates *handlers.TemplateHandler
}

// bootstrap opens the database and wires every service. Failures here are fatal.
func bootstrap(cfg *config.Config) *appServices {
	if cfg.Security.EncryptionKey == "" {
		logger.Warn().Msg("ENCRYPTION_KEY not set, using the development key for stored secrets")
	}
	codec, err := utils.NewSecretCodec(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to initialize secret codec: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.Metrics.Enabled {
		if sqlDB, err := db.DB(); err == nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(sqlDB, "testplan"))
		}
	}

	settings := services.NewSettingService(db)
	configs := services.NewIntegrationConfigService(settings, codec)
	tickets := services.NewTicketCacheService(db)
	templates := services.NewTemplateService(db, cfg.Upload.Dir, cfg.Upload.MaxUploadBytes())
	jira := services.NewJiraService(configs, tickets, cfg.Jira.Timeout)

	cloud := services.NewCloudProvider(configs, cfg.Groq.BaseURL, cfg.Groq.Timeout)
	local := services.NewLocalProvider(configs, cfg.Ollama.GenerateTimeout, cfg.Ollama.ProbeTimeout)
	plans := services.NewTestPlanService(db, tickets, templates, configs, services.NewProviderRegistry(cloud, local))

	return &appServices{
		db:        db,
		limiter:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		health:    handlers.NewHealthHandler(db),
		settings:  handlers.NewSettingsHandler(configs, jira, cloud, local),
		jira:      handlers.NewJiraHandler(jira, tickets),
		testPlans: handlers.NewTestPlanHandler(plans, local),
		templates: handlers.NewTemplateHandler(templates, cfg.Upload.MaxUploadBytes()),
	}
}

func (s *appServices) shutdown() {
	s.limiter.Stop()
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
	logger.Info().Msg("Shutdown complete")
}
