package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/api/routes"
	"github.com/odyomed/clinic-backend/internal/assignments"
	"github.com/odyomed/clinic-backend/internal/inventory"
	"github.com/odyomed/clinic-backend/internal/payments"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/logger"
	"github.com/odyomed/clinic-backend/pkg/metrics"
	"github.com/odyomed/clinic-backend/pkg/migrate"
	"github.com/odyomed/clinic-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	inventoryService, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), engineMetrics, cfg.Stock)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	pricingEngine := pricing.NewEngine(engineMetrics)
	settingsProvider := pricing.NewSettingsProvider(
		pricing.NewRepository(dbClient.DB()),
		redisClient,
		logg,
		cfg.Pricing,
	)

	salesRepo := sales.NewRepository(dbClient.DB())
	tolerance, err := decimal.NewFromString(cfg.Pricing.Tolerance)
	if err != nil {
		logg.Error(context.Background(), "invalid pricing tolerance", err)
		os.Exit(1)
	}
	saleAggregator, err := sales.NewAggregator(salesRepo, tolerance)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale aggregator", err)
		os.Exit(1)
	}

	assignmentService, err := assignments.NewService(
		dbClient,
		assignments.NewRepository(dbClient.DB()),
		inventoryService,
		pricingEngine,
		settingsProvider,
		saleAggregator,
		engineMetrics,
		cfg.Stock,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(dbClient, payments.NewRepository(dbClient.DB()), saleAggregator, *cfg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Inventory:       inventoryService,
			Assignments:     assignmentService,
			Payments:        paymentService,
			Sales:           saleAggregator,
			PricingEngine:   pricingEngine,
			PricingSettings: settingsProvider,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
