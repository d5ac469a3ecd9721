package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"pet-gacha-go/internal/database"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/formance"
	"pet-gacha-go/internal/gacha"
	"pet-gacha-go/internal/marketplace"
	"pet-gacha-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	Bus         *events.Bus
	Gacha       *gacha.Engine
	Marketplace *marketplace.Engine
	Formance    *formance.Service // nil when no Formance stack is configured
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InstallFallbackLogger makes zap.L() print before configuration has loaded,
// so a fatal config error is not swallowed by the default no-op logger.
func InstallFallbackLogger() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Printf("Failed to initialize fallback logger: %v\n", err)
		return
	}
	zap.ReplaceGlobals(logger)
}

// InitializeServices opens the database and wires both engines to a shared
// event bus. The Formance mirror is connected only when configured.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{
		DbService: dbService,
		Bus:       events.NewBus(),
	}

	zap.L().Info("Loading gacha offers", zap.String("offers_file", cfg.Gacha.OffersFile))
	offers, err := LoadOffers(cfg.Gacha.OffersFile)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}

	picker, err := gacha.NewWeightedPicker(cfg.Gacha.Seed)
	if err != nil {
		services.Close()
		return nil, err
	}

	services.Gacha, err = gacha.New(dbService, services.Bus, cfg.Gacha, offers, picker, gacha.SystemClock{})
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create gacha engine: %w", err)
	}

	services.Marketplace, err = marketplace.New(dbService, services.Bus, cfg.Marketplace)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create marketplace: %w", err)
	}

	if cfg.Formance.Enabled() {
		zap.L().Info("Connecting to Formance stack", zap.String("ledger", cfg.Formance.LedgerName))
		services.Formance, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
	} else {
		zap.L().Info("Formance stack not configured, ledger mirror disabled")
	}

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without the engines
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Formance != nil {
		cs.Formance.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
