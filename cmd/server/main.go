// @title           Insight Backend API
// @version         1.0.0
// @description     Backend API for upload analysis projects. Uploaded images, spreadsheets and documents are stored in Supabase Storage, analyzed with Claude, and consolidated into a single project record per upload.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"insight-backend/internal/auth"
	"insight-backend/internal/config"
	"insight-backend/internal/handlers"
	"insight-backend/internal/inference"
	"insight-backend/internal/kvstore"
	"insight-backend/internal/mailer"
	"insight-backend/internal/middleware"
	"insight-backend/internal/objectstore"
	"insight-backend/internal/pipeline"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open the key-value store
	store, err := kvstore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open key-value store: %v", err)
	}
	defer store.Close()

	// Initialize Supabase storage client
	objects, err := objectstore.New(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	// Initialize inference client
	completer := inference.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)

	// Reset-code mail delivery
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	// Initialize services
	authService := auth.NewService(store, smtpMailer, cfg.JWTSecret, cfg.JWTExpirationHours)
	uploadPipeline := pipeline.New(objects, completer, store)
	queryService := pipeline.NewQueryService(store)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(uploadPipeline)
	projectsHandler := handlers.NewProjectsHandler(queryService)
	usersHandler := handlers.NewUsersHandler(queryService)

	// Setup router
	router := gin.Default()

	// Health check (no auth)
	router.GET("/health", healthHandler.Health)

	// API routes
	api := router.Group("/api")

	// Auth routes (no auth)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/request-password-reset", authHandler.RequestPasswordReset)
	api.POST("/auth/verify-reset", authHandler.VerifyReset)

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	protected.POST("/analyze/upload", uploadHandler.Upload)
	protected.GET("/projects/:user_id", projectsHandler.List)
	protected.GET("/projects/:user_id/:project_id", projectsHandler.Detail)
	protected.GET("/users/count", usersHandler.Count)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
