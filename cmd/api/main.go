package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/riasas/ria-backend/api/routes"
	"github.com/riasas/ria-backend/internal/analytics"
	"github.com/riasas/ria-backend/internal/audit"
	"github.com/riasas/ria-backend/internal/auth"
	"github.com/riasas/ria-backend/internal/billing"
	"github.com/riasas/ria-backend/internal/clients"
	"github.com/riasas/ria-backend/internal/exports"
	"github.com/riasas/ria-backend/internal/feedback"
	"github.com/riasas/ria-backend/internal/invoices"
	"github.com/riasas/ria-backend/internal/plans"
	"github.com/riasas/ria-backend/internal/services"
	"github.com/riasas/ria-backend/internal/settings"
	subscriptionsvc "github.com/riasas/ria-backend/internal/subscriptions"
	"github.com/riasas/ria-backend/internal/users"
	stripewebhook "github.com/riasas/ria-backend/internal/webhooks/stripe"
	"github.com/riasas/ria-backend/pkg/config"
	"github.com/riasas/ria-backend/pkg/db"
	"github.com/riasas/ria-backend/pkg/logger"
	"github.com/riasas/ria-backend/pkg/metrics"
	"github.com/riasas/ria-backend/pkg/migrate"
	"github.com/riasas/ria-backend/pkg/redis"
	"github.com/riasas/ria-backend/pkg/stripe"
)

// Stripe retries deliveries for up to three days; keeping event ids around a
// little shorter than that still covers every retry window.
const stripeEventTTL = 48 * time.Hour

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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	planRepo := plans.NewRepository(gormDB)
	subscriptionRepo := subscriptionsvc.NewRepository(gormDB)
	clientRepo := clients.NewRepository(gormDB)
	serviceRepo := services.NewRepository(gormDB)
	invoiceRepo := invoices.NewRepository(gormDB)
	feedbackRepo := feedback.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)
	settingsRepo := settings.NewRepository(gormDB)
	analyticsRepo := analytics.NewRepository(gormDB)

	userService, err := users.NewService(users.ServiceParams{Repo: userRepo, Logger: logg})
	fatalOnErr(logg, "user service", err)

	planService, err := plans.NewService(planRepo)
	fatalOnErr(logg, "plan service", err)

	usageCounters, err := subscriptionsvc.NewUsageCounters(invoiceRepo, clientRepo)
	fatalOnErr(logg, "usage counters", err)

	subscriptionService, err := subscriptionsvc.NewService(subscriptionsvc.ServiceParams{
		Repo:     subscriptionRepo,
		Plans:    planRepo,
		TxRunner: dbClient,
		Usage:    usageCounters,
		Logger:   logg,
	})
	fatalOnErr(logg, "subscription service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:         userService,
		Subscriptions: subscriptionService,
		JWT:           cfg.JWT,
		Password:      cfg.Password,
		Logger:        logg,
	})
	fatalOnErr(logg, "auth service", err)

	billingService, err := billing.NewService(billing.ServiceParams{
		Stripe:      billing.NewStripeClient(stripeClient),
		Plans:       planRepo,
		Users:       userRepo,
		FrontendURL: cfg.App.FrontendURL,
		Logger:      logg,
	})
	fatalOnErr(logg, "billing service", err)

	clientService, err := clients.NewService(clients.ServiceParams{Repo: clientRepo, Logger: logg})
	fatalOnErr(logg, "client service", err)

	serviceCatalog, err := services.NewService(services.ServiceParams{Repo: serviceRepo, Logger: logg})
	fatalOnErr(logg, "service catalog", err)

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoiceRepo,
		Clients: clientRepo,
		Logger:  logg,
	})
	fatalOnErr(logg, "invoice service", err)

	exportService, err := exports.NewService(exports.ServiceParams{
		Invoices: invoiceRepo,
		Clients:  clientRepo,
		Logger:   logg,
	})
	fatalOnErr(logg, "export service", err)

	feedbackService, err := feedback.NewService(feedback.ServiceParams{Repo: feedbackRepo, Logger: logg})
	fatalOnErr(logg, "feedback service", err)

	auditService, err := audit.NewService(audit.ServiceParams{Repo: auditRepo, Logger: logg})
	fatalOnErr(logg, "audit service", err)

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repo:   settingsRepo,
		Cache:  redisClient,
		Config: cfg.Settings,
		Logger: logg,
	})
	fatalOnErr(logg, "settings service", err)

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Repo:   analyticsRepo,
		Plans:  planRepo,
		Logger: logg,
	})
	fatalOnErr(logg, "analytics service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeEventTTL, "stripe-webhook")
	fatalOnErr(logg, "webhook idempotency guard", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Subscriptions:     subscriptionRepo,
		Plans:             planRepo,
		Users:             userRepo,
		TransactionRunner: dbClient,
		Guard:             webhookGuard,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
	fatalOnErr(logg, "stripe webhook service", err)

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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			userService,
			planService,
			subscriptionService,
			billingService,
			clientService,
			serviceCatalog,
			invoiceService,
			exportService,
			feedbackService,
			analyticsService,
			auditService,
			settingsService,
			stripeClient,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatalOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
