package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyomed/clinic-backend/api/controllers"
	"github.com/odyomed/clinic-backend/api/middleware"
	"github.com/odyomed/clinic-backend/internal/assignments"
	"github.com/odyomed/clinic-backend/internal/inventory"
	"github.com/odyomed/clinic-backend/internal/payments"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/internal/sales"
	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db"
	"github.com/odyomed/clinic-backend/pkg/enums"
	"github.com/odyomed/clinic-backend/pkg/logger"
	"github.com/odyomed/clinic-backend/pkg/redis"
)

type Services struct {
	Inventory       inventory.Service
	Assignments     assignments.Service
	Payments        payments.Service
	Sales           sales.Aggregator
	PricingEngine   *pricing.Engine
	PricingSettings pricing.SettingsProvider
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(svcs.Inventory, logg))
			r.Get("/{inventoryId}", controllers.InventoryDetail(svcs.Inventory, logg))
			r.Get("/{inventoryId}/movements", controllers.InventoryMovements(svcs.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleManager))
				r.Post("/", controllers.InventoryCreate(svcs.Inventory, logg))
				r.Post("/{inventoryId}/adjust", controllers.InventoryAdjust(svcs.Inventory, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleManager, enums.UserRoleClinician))
			r.Post("/", controllers.AssignmentCreate(svcs.Assignments, logg))
			r.Get("/{assignmentId}", controllers.AssignmentDetail(svcs.Assignments, logg))
			r.Patch("/{assignmentId}", controllers.AssignmentUpdate(svcs.Assignments, logg))
			r.Post("/{assignmentId}/deliver", controllers.AssignmentDeliver(svcs.Assignments, logg))
			r.Post("/{assignmentId}/cancel", controllers.AssignmentCancel(svcs.Assignments, logg))
			r.Post("/{assignmentId}/return", controllers.AssignmentReturn(svcs.Assignments, logg))
			r.Post("/{assignmentId}/loaner", controllers.AssignmentLoanerAttach(svcs.Assignments, logg))
			r.Delete("/{assignmentId}/loaner", controllers.AssignmentLoanerDetach(svcs.Assignments, logg))
		})

		r.Get("/patients/{patientId}/assignments", controllers.PatientAssignments(svcs.Assignments, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/{saleId}", controllers.SaleDetail(svcs.Sales, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleManager, enums.UserRoleClinician, enums.UserRoleCashier))
				r.Post("/{saleId}/payments", controllers.PaymentRecord(svcs.Payments, logg))
			})
		})
		r.With(middleware.RequireRole(logg, enums.UserRoleManager)).
			Post("/payments/{paymentId}/void", controllers.PaymentVoid(svcs.Payments, logg))

		r.Post("/pricing/preview", controllers.PricingPreview(svcs.PricingEngine, svcs.PricingSettings, logg))
	})

	return r
}
