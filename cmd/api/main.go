package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/tablebook-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tablebook-backend/api/routes"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	"github.com/angelmondragon/tablebook-backend/internal/catalog"
	"github.com/angelmondragon/tablebook-backend/internal/payments"
	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/internal/tickets"
	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/env"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/migrate"
	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootstrap.Main("api", run)
}

func run(ctx context.Context, p *bootstrap.Process) error {
	cfg, logg := p.Config, p.Logger

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return bootstrap.Require("database", err)
	}
	p.DeferCloser("database", dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return bootstrap.Require("redis", err)
	}
	p.DeferCloser("redis", redisClient)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}
	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:                    dbClient,
		PasswordConfig:        cfg.Password,
		AdminRegistrationCode: cfg.Security.AdminRegistrationCode,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reservationMetrics := metrics.NewReservationMetrics(registry)
	engine, err := reservations.NewEngine(cfg, dbClient, logg, reservationMetrics)
	if err != nil {
		return err
	}

	resetService, err := auth.NewPasswordResetService(auth.PasswordResetParams{
		DB:             dbClient,
		Users:          userRepo,
		Store:          redisClient,
		Outbox:         engine.Outbox,
		Logger:         logg,
		PasswordConfig: cfg.Password,
		TokenTTL:       cfg.Security.PasswordResetTTL,
		PublicURL:      cfg.App.PublicURL,
	})
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), engine.Ledger, dbClient, logg)
	if err != nil {
		return err
	}

	var paymentService webhooks.PaymentNotificationService
	if cfg.Gateway.CallbackToken == "" {
		logg.Warn(ctx, "gateway callback token not configured; payment webhook disabled")
	} else {
		guard, err := payments.NewReplayGuard(redisClient, cfg.Eventing.WebhookReplayTTL, "payment-webhook")
		if err != nil {
			return err
		}
		if paymentService, err = payments.NewService(payments.ServiceParams{
			Logger:        logg,
			DB:            dbClient,
			Repo:          engine.Repo,
			Transitions:   engine.Service,
			CallbackToken: cfg.Gateway.CallbackToken,
			Guard:         guard,
			Metrics:       reservationMetrics,
		}); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr: ":" + env.Get("PORT", cfg.App.Port),
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			registry,
			sessions,
			authService,
			registerService,
			resetService,
			catalogService,
			engine.Service,
			tickets.NewService(engine.Tickets),
			paymentService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{"addr": server.Addr, "payment_mode": engine.Service.Mode()})
	logg.Info(ctx, "api server listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
