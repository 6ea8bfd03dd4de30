package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/migrate"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/registry"
	"github.com/angelmondragon/tablebook-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
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

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{Topics: events.Topics()}, logg)
	if err != nil {
		return bootstrap.Require("pubsub", err)
	}
	p.DeferCloser("pubsub", pubsubClient)

	conn := dbClient.DB()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(conn),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "outbox publisher ready")
	return service.Run(ctx)
}
