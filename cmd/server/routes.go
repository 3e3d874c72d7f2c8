package main

import (
	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/config"
	"github.com/testplan-ai/backend/internal/handlers"
	"github.com/testplan-ai/backend/internal/middleware"
	"github.com/testplan-ai/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	if cfg.Metrics.Enabled {
		r.Use(middleware.RequestMetrics())
		r.GET("/metrics", handlers.Metrics())
	}

	api := r.Group("/api")
	{
		api.GET("/health", svc.health.CheckHealth)

		// Settings
		settings := api.Group("/settings")
		{
			settings.GET("", svc.settings.GetAll)
			settings.POST("/jira", svc.settings.SaveJira)
			settings.GET("/jira/test", svc.settings.TestJira)
			settings.POST("/llm", svc.settings.SaveLLM)
			settings.GET("/llm/models/groq", svc.settings.ListGroqModels)
			settings.GET("/llm/test/groq", svc.settings.TestGroq)
			settings.GET("/llm/test/ollama", svc.settings.TestOllama)
		}

		// Upstream-bound routes share one per-IP limiter
		limited := svc.limiter.Middleware()

		jira := api.Group("/jira")
		{
			jira.POST("/fetch", limited, svc.jira.Fetch)
			jira.GET("/recent", svc.jira.Recent)
		}

		testPlan := api.Group("/testplan")
		{
			testPlan.POST("/generate", limited, svc.testPlans.Generate)
			testPlan.GET("/history", svc.testPlans.History)
			testPlan.GET("/models/ollama", svc.testPlans.OllamaModels)
			testPlan.GET("/:id", svc.testPlans.Get)
		}

		templates := api.Group("/templates")
		{
			templates.GET("", svc.templates.List)
			templates.POST("/upload", svc.templates.Upload)
			templates.GET("/:id", svc.templates.Get)
			templates.DELETE("/:id", svc.templates.Delete)
		}
	}
}
