package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/tablebook-backend/internal/analytics/router"
	"github.com/angelmondragon/tablebook-backend/internal/analytics/worker"
	"github.com/angelmondragon/tablebook-backend/internal/analytics/writer"
	"github.com/angelmondragon/tablebook-backend/pkg/bigquery"
	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tablebook-backend/pkg/pubsub"
	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

func main() {
	bootstrap.Main("analytics-worker", run)
}

func run(ctx context.Context, p *bootstrap.Process) error {
	cfg, logg := p.Config, p.Logger

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return bootstrap.Require("redis", err)
	}
	p.DeferCloser("redis", redisClient)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{
		Subscriptions: []string{cfg.PubSub.AnalyticsSubscription},
	}, logg)
	if err != nil {
		return bootstrap.Require("pubsub", err)
	}
	p.DeferCloser("pubsub", pubsubClient)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return bootstrap.Require("bigquery", err)
	}
	p.DeferCloser("bigquery", bq)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return bootstrap.Require("analytics subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewGuard(redisClient, worker.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return bootstrap.Require("idempotency guard", err)
	}

	table := bq.ReservationEventsTable()
	sink, err := writer.New(bq, writer.Config{ReservationEventsTable: table})
	if err != nil {
		return bootstrap.Require("bigquery writer", err)
	}
	handler, err := router.NewRouter(sink, logg, nil)
	if err != nil {
		return err
	}
	service, err := worker.NewService(subscription, handler, guard, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "table", table)
	logg.Info(ctx, "analytics worker ready")
	return service.Run(ctx)
}
