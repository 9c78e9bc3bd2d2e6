// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smbworks/erp-backend/api"
	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/credentials"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/logger"
	"github.com/smbworks/erp-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting ERP backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Open the configured database and bring its schema up to date
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	db, err := dal.Open(ctx, dal.OptionsFromConfig(cfg))
	if err != nil {
		cancel()
		customLog.Fatalf("Failed to open %s database: %v", cfg.DBBackend, err)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := db.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		cancel()
		customLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 3. Bootstrap the admin account
	if err := seedAdmin(ctx, db, cfg); err != nil {
		cancel()
		customLog.Fatalf("Failed to seed admin user: %v", err)
	}
	cancel()

	creds := credentials.NewManager(db, credentials.Options{
		Iterations: cfg.APIKeyIterations,
		SaltBytes:  cfg.APIKeySaltBytes,
		KeyBytes:   cfg.APIKeyKeyBytes,
	})

	// 4. Setup Router (passing dependencies)
	router := api.SetupRouter(db, creds, cfg)

	// 5. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}

// seedAdmin creates the admin account from ADMIN_EMAIL/ADMIN_PASSWORD once.
func seedAdmin(ctx context.Context, db dal.DB, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		customLog.Println("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	created, err := storage.EnsureAdminUser(ctx, db, cfg.AdminEmail, hash)
	if err != nil {
		return err
	}
	if created {
		customLog.Printf("Created admin user %s", cfg.AdminEmail)
	}
	return nil
}
