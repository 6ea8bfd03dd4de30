package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tablebook-backend/internal/cron"
	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/migrate"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	bootstrap.Main("cron-worker", run)
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

	engine, err := reservations.NewEngine(cfg, dbClient, logg, metrics.NewReservationMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}

	expiry, err := cron.NewReservationExpiryJob(cron.ReservationExpiryJobParams{
		Logger:       logg,
		DB:           dbClient,
		Reservations: engine.Repo,
		Transitions:  engine.Service,
		PendingTTL:   cfg.Reservation.PendingTTL,
	})
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	registry := cron.NewRegistry()
	if err := registry.Register(expiry, 0); err != nil {
		return err
	}
	if err := registry.Register(retention, cfg.Cron.RetentionEvery); err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "cron worker ready")
	return service.Run(ctx)
}
