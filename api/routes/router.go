package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tablebook-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/tablebook-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tablebook-backend/api/middleware"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	"github.com/angelmondragon/tablebook-backend/internal/catalog"
	"github.com/angelmondragon/tablebook-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
)

// MetricsRegistry registers the HTTP collectors and serves /metrics.
type MetricsRegistry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Store backs idempotency replay and rate limiting.
type Store interface {
	middleware.IdempotencyStore
	middleware.RateLimiter
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	store Store,
	registry MetricsRegistry,
	sessions session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	passwordResetService auth.PasswordResetService,
	catalogService catalog.Service,
	reservationService controllers.ReservationService,
	ticketService controllers.TicketService,
	paymentService webhookcontrollers.PaymentNotificationService,
) http.Handler {
	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.Security.CORSAllowedOrigins),
	)

	limits := cfg.RateLimit
	loginPolicy := middleware.NewRateLimitPolicy("login", limits.LoginWindow,
		middleware.ByClientIP(limits.LoginIPLimit),
		middleware.ByEmail(limits.LoginEmailLimit),
	)
	registerPolicy := middleware.NewRateLimitPolicy("register", limits.RegisterWindow,
		middleware.ByClientIP(limits.RegisterIPLimit),
		middleware.ByEmail(limits.RegisterEmailLimit),
	)
	resetPolicy := middleware.NewRateLimitPolicy("password_reset", limits.PasswordResetWindow,
		middleware.ByClientIP(limits.PasswordResetIPLimit),
		middleware.ByEmail(limits.PasswordResetEmailLimit),
	)
	bookingPolicy := middleware.NewRateLimitPolicy("reservations", limits.ReservationWindow,
		middleware.ByUser(limits.ReservationUserLimit),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payments", webhookcontrollers.PaymentWebhook(paymentService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.Security.APIKey, logg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.RateLimit(loginPolicy, store, logg)).Post("/login", controllers.AuthLogin(authService, logg))
				r.With(middleware.RateLimit(loginPolicy, store, logg)).Post("/admin/login", controllers.AdminAuthLogin(authService, logg))
				r.With(middleware.RateLimit(registerPolicy, store, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
				r.With(middleware.RateLimit(registerPolicy, store, logg)).Post("/register/admin", controllers.AuthRegisterAdmin(registerService, logg))
				r.Post("/refresh", controllers.AuthRefresh(authService, logg))
				r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
				r.With(middleware.RateLimit(resetPolicy, store, logg)).Post("/password-reset", controllers.AuthRequestPasswordReset(passwordResetService, logg))
				r.Post("/password-reset/{token}", controllers.AuthResetPassword(passwordResetService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, sessions, logg))
				r.Use(middleware.Idempotency(store, logg))

				r.Get("/events", controllers.ListEvents(catalogService, logg))
				r.Get("/events/{eventId}", controllers.GetEvent(catalogService, false, logg))
				r.Get("/products", controllers.ListProducts(catalogService, true, logg))

				r.With(
					middleware.RequireRole(logg, enums.UserRoleUser),
					middleware.RateLimit(bookingPolicy, store, logg),
				).Post("/reservations", controllers.CreateReservation(reservationService, logg))
				r.Get("/reservations/mine", controllers.MyReservations(reservationService, logg))
				r.Get("/reservations/{id}", controllers.GetReservation(reservationService, logg))
				r.Get("/tickets/mine", controllers.MyTickets(ticketService, logg))

				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

					r.Post("/tables", controllers.AdminCreateTable(catalogService, logg))
					r.Get("/tables", controllers.AdminListTables(catalogService, logg))
					r.Post("/products", controllers.AdminCreateProduct(catalogService, logg))
					r.Get("/products", controllers.ListProducts(catalogService, false, logg))
					r.Post("/events", controllers.AdminCreateEvent(catalogService, logg))
					r.Get("/events", controllers.AdminListEvents(catalogService, logg))
					r.Get("/events/{eventId}", controllers.GetEvent(catalogService, true, logg))
					r.Patch("/event-tables/{eventTableId}/status", controllers.AdminSetEventTableStatus(catalogService, logg))
					r.Post("/reservations/{id}/confirm-payment", controllers.AdminConfirmPayment(reservationService, logg))
					r.Post("/reservations/{id}/cancel", controllers.AdminCancelReservation(reservationService, logg))
				})
			})
		})
	})

	return r
}
