package main

import (
	"cyber_case_app_go/config"
	"cyber_case_app_go/db"
	"cyber_case_app_go/handlers"
	"cyber_case_app_go/middleware"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Evidence{},
		&models.TelecomRequest{},
		&models.FinancialEntity{},
		&models.TransactionEvent{},
		&models.BankRequest{},
		&models.NPCIRequest{},
		&models.FreezeRequest{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cipher, err := services.NewEvidenceCipherFromBase64(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize evidence encryption: %v", err)
	}
	storage := services.InitializeStorage(cfg)

	h := &handlers.Handler{
		Config: cfg,
		Vault: services.NewEvidenceVault(db.DB, storage, cipher,
			services.UploadPolicyFromConfig(cfg), services.NewEmailAlertNotifier(cfg)),
		Tokens:  services.NewTokenIssuer(cfg.SecretKey, cfg.TokenExpiry),
		Search:  services.NewSearchService(db.DB),
		Locator: services.NewIPLocator(cfg),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}))
	// Multipart overhead on top of the largest evidence file
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadSizeMB+1)))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.Metrics())

	h.Routes(e, middleware.NewLoginRateLimiter(cfg.LoginRatePerMin))

	if cfg.MetricsEnabled {
		go func() {
			log.Printf("Metrics listening on %s", cfg.MetricsAddr)
			if err := handlers.MetricsServer().Start(cfg.MetricsAddr); err != nil {
				log.Printf("[WARNING] Metrics listener stopped: %v", err)
			}
		}()
	}

	// Start server
	addr := cfg.ServerHost + ":" + cfg.ServerPort
	log.Printf("Server starting on %s (%s, storage: %s)", addr, cfg.Environment, storage.Name())
	if err := e.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
