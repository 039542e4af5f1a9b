package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/teamprs/prtracker/internal/handlers"
	"github.com/teamprs/prtracker/internal/middleware"
	"github.com/teamprs/prtracker/internal/proxy"
	"github.com/teamprs/prtracker/internal/repositories"
	"github.com/teamprs/prtracker/internal/services"
	"github.com/teamprs/prtracker/pkg/config"
	"github.com/teamprs/prtracker/pkg/database"
	"github.com/teamprs/prtracker/pkg/logger"
)

func main() {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init()

	// Initialize database
	if err := database.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	cfg := config.AppConfig

	// Settings store, seeded with the configured defaults on first run
	settingsRepo := repositories.NewSettingsRepository(database.DB)
	if err := settingsRepo.SeedDefaults(cfg.GitHub.DefaultTeam, cfg.GitHub.DefaultRepos); err != nil {
		log.Fatalf("Failed to seed default settings: %v", err)
	}

	// GitHub access goes through the proxy so the token stays server-side
	githubClient := services.NewProxyClient(cfg.GitHub.ProxyURL)

	// Core services
	statusService := services.NewStatusService()
	filterService := services.NewFilterService(statusService)
	catalogService := services.NewCatalogService(githubClient, cfg.GitHub.Organization, cfg.GitHub.DefaultRepos)
	pipelineService := services.NewPipelineService(githubClient, cfg.GitHub.Organization, cfg.Pipeline.Workers)
	slackLinkService := services.NewSlackLinkService(githubClient, settingsRepo, cfg.GitHub.Organization)
	slackService := services.NewSlackService(cfg.Slack.Token, cfg.Slack.Channel)
	exportService := services.NewExportService(statusService)
	authService := services.NewAuthService()

	// Initialize router
	router := gin.Default()

	// Apply middleware
	router.Use(middleware.SessionMiddleware())

	// The proxy endpoint lives on the same server but is its own component
	proxyHandler := proxy.NewHandler(cfg.GitHub.Token, cfg.Pipeline.ProxyRateLimit)
	proxyHandler.Register(router)

	// Setup routes
	setupRoutes(router, authService, pipelineService, statusService, filterService,
		slackLinkService, slackService, exportService, catalogService, settingsRepo)

	// Setup server
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	logger.Info("Server stopped")
}

func setupRoutes(
	router *gin.Engine,
	authService *services.AuthService,
	pipelineService *services.PipelineService,
	statusService *services.StatusService,
	filterService *services.FilterService,
	slackLinkService *services.SlackLinkService,
	slackService *services.SlackService,
	exportService *services.ExportService,
	catalogService *services.CatalogService,
	settingsRepo *repositories.SettingsRepository,
) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	dashboardHandler := handlers.NewDashboardHandler(pipelineService, statusService, filterService,
		slackLinkService, slackService, settingsRepo)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, catalogService)
	slackLinkHandler := handlers.NewSlackLinkHandler(slackLinkService)
	exportHandler := handlers.NewExportHandler(exportService, filterService, slackLinkService, dashboardHandler)
	healthHandler := handlers.NewHealthHandler()

	// Auth routes
	router.GET("/logout", authHandler.Logout)
	router.GET("/auth/github", authHandler.GitHubLogin)
	router.GET("/auth/github/callback", authHandler.GitHubCallback)
	router.GET("/api/session", authHandler.Session)

	// Protected API
	api := router.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		api.GET("/pull-requests", dashboardHandler.List)
		api.POST("/pull-requests/refresh", dashboardHandler.Refresh)
		api.GET("/pull-requests/progress", dashboardHandler.Progress)
		api.PUT("/pull-requests/:repo/:number/slack-link", slackLinkHandler.SetLink)
		api.DELETE("/pull-requests/:repo/:number/slack-link", slackLinkHandler.ClearLink)

		api.GET("/settings", settingsHandler.GetSettings)
		api.POST("/team-members", settingsHandler.AddTeamMember)
		api.DELETE("/team-members/:login", settingsHandler.RemoveTeamMember)
		api.GET("/repositories", settingsHandler.ListRepositories)
		api.POST("/repositories/load", settingsHandler.LoadRepositories)
		api.POST("/repositories/:name/toggle", settingsHandler.ToggleRepository)

		api.GET("/export", exportHandler.Export)
	}

	// Health check endpoint
	router.GET("/health", healthHandler.HealthCheck)
}
