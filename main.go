package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/metrics"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/routes"
	"github.com/yunusmujadidi/purchase-order/services"
	"gorm.io/gorm"
)

func main() {
	// Basic logging
	log.Println("Starting Purchase Order API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetConfig(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	if err := config.SeedSuperAdmin(db, cfg); err != nil {
		log.Fatalf("Failed to seed superadmin: %v", err)
	}

	router, err := setupServer(context.Background(), cfg, db)
	if err != nil {
		log.Fatalf("Failed to set up server: %v", err)
	}

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupServer builds the services and the router on top of an open, migrated database
func setupServer(ctx context.Context, cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	layout := ingest.DefaultLayout()
	if cfg.ImportLayoutFile != "" {
		loaded, err := ingest.LoadLayout(cfg.ImportLayoutFile)
		if err != nil {
			return nil, err
		}
		layout = loaded
		log.Printf("Loaded import layout from %s", cfg.ImportLayoutFile)
	}

	images, err := services.InitImageService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	hub := services.NewHub(cfg.CORSAllowedOrigins)
	collector := metrics.Get()
	orders := repository.NewOrderRepository(db)

	deps := routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Orders:   orders,
		Service:  services.NewOrderService(orders, hub, images, loc),
		Importer: services.NewImportService(orders, layout, loc, collector, hub),
		Images:   images,
		Hub:      hub,
		Metrics:  collector,
	}
	if cfg.UsesAuth0() {
		deps.UserInfo = services.NewAuth0Service(cfg)
		log.Printf("Validating Auth0 tokens from %s", cfg.Auth0Domain)
	} else {
		deps.Tokens = services.NewTokenService(cfg)
		log.Println("Issuing local access tokens")
	}

	return routes.SetupRouter(deps), nil
}
