package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riasas/ria-backend/api/controllers"
	admincontrollers "github.com/riasas/ria-backend/api/controllers/admin"
	webhookcontrollers "github.com/riasas/ria-backend/api/controllers/webhooks"
	"github.com/riasas/ria-backend/api/middleware"
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
	"github.com/riasas/ria-backend/pkg/redis"
	"github.com/riasas/ria-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	authService auth.Service,
	userService users.Service,
	planService plans.Service,
	subscriptionService subscriptionsvc.Service,
	billingService billing.Service,
	clientService clients.Service,
	serviceCatalog services.Service,
	invoiceService invoices.Service,
	exportService exports.Service,
	feedbackService feedback.Service,
	analyticsService analytics.Service,
	auditService audit.Service,
	settingsService settings.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	// The pricing page reads plans without a session.
	r.Get("/api/v1/plans", controllers.PlansList(planService, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", controllers.AuthMe(authService, logg))
			r.Put("/profile", controllers.AuthUpdateProfile(authService, logg))
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionFetch(subscriptionService, logg))
			r.Get("/usage", controllers.SubscriptionUsage(subscriptionService, logg))
			r.Get("/invoices", controllers.SubscriptionInvoices(subscriptionService, logg))
			r.Post("/upgrade", controllers.SubscriptionUpgrade(subscriptionService, billingService, userService, planService, logg))
			r.Post("/downgrade", controllers.SubscriptionDowngrade(subscriptionService, billingService, userService, planService, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(subscriptionService, billingService, feedbackService, logg))
			r.Post("/reactivate", controllers.SubscriptionReactivate(subscriptionService, billingService, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout", controllers.BillingCheckout(billingService, userService, logg))
			r.Post("/portal", controllers.BillingPortal(billingService, userService, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ClientList(clientService, logg))
			r.Post("/", controllers.ClientCreate(clientService, logg))
			r.Get("/{clientId}", controllers.ClientGet(clientService, logg))
			r.Put("/{clientId}", controllers.ClientUpdate(clientService, logg))
			r.Delete("/{clientId}", controllers.ClientDelete(clientService, logg))
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ServiceList(serviceCatalog, logg))
			r.Post("/", controllers.ServiceCreate(serviceCatalog, logg))
			r.Get("/{serviceId}", controllers.ServiceGet(serviceCatalog, logg))
			r.Put("/{serviceId}", controllers.ServiceUpdate(serviceCatalog, logg))
			r.Delete("/{serviceId}", controllers.ServiceDelete(serviceCatalog, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(invoiceService, logg))
			r.Post("/", controllers.InvoiceCreate(invoiceService, logg))
			r.Get("/{invoiceId}", controllers.InvoiceGet(invoiceService, logg))
			r.Put("/{invoiceId}", controllers.InvoiceUpdate(invoiceService, logg))
			r.Delete("/{invoiceId}", controllers.InvoiceDelete(invoiceService, logg))
			r.Post("/{invoiceId}/pay", controllers.InvoiceMarkPaid(invoiceService, logg))
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/invoices.csv", controllers.ExportInvoices(exportService, logg))
			r.Get("/clients.csv", controllers.ExportClients(exportService, logg))
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", controllers.FeedbackSubmit(feedbackService, logg))
			r.Get("/", controllers.FeedbackListMine(feedbackService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireSuperAdmin(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/overview", admincontrollers.Overview(analyticsService, auditService, logg))
		r.Get("/analytics", admincontrollers.Stats(analyticsService, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", admincontrollers.UserList(userService, logg))
			r.Post("/{userId}/suspend", admincontrollers.UserSuspend(userService, auditService, logg))
			r.Post("/{userId}/activate", admincontrollers.UserActivate(userService, auditService, logg))
			r.Delete("/{userId}", admincontrollers.UserDelete(userService, auditService, logg))
			r.Put("/{userId}/role", admincontrollers.UserChangeRole(userService, auditService, logg))
			r.Post("/{userId}/subscription", admincontrollers.SubscriptionAssignPlan(subscriptionService, auditService, logg))
			r.Post("/{userId}/subscription/cancel", admincontrollers.SubscriptionCancel(subscriptionService, auditService, logg))
		})

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", admincontrollers.PlanCreate(planService, auditService, logg))
			r.Put("/{planId}", admincontrollers.PlanUpdate(planService, auditService, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", admincontrollers.SettingsGet(settingsService, logg))
			r.Get("/{section}", admincontrollers.SettingsGetSection(settingsService, logg))
			r.Put("/{section}", admincontrollers.SettingsUpdateSection(settingsService, auditService, logg))
		})

		r.Get("/audit", admincontrollers.AuditList(auditService, logg))

		r.Route("/feedback", func(r chi.Router) {
			r.Get("/", admincontrollers.FeedbackList(feedbackService, logg))
			r.Put("/{feedbackId}/status", admincontrollers.FeedbackUpdateStatus(feedbackService, auditService, logg))
			r.Post("/{feedbackId}/respond", admincontrollers.FeedbackRespond(feedbackService, auditService, logg))
		})
	})

	return r
}
