package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/tablebook-backend/internal/notifications"
	"github.com/angelmondragon/tablebook-backend/pkg/bootstrap"
	"github.com/angelmondragon/tablebook-backend/pkg/mailer"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tablebook-backend/pkg/pubsub"
	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

func main() {
	bootstrap.Main("notification-worker", run)
}

func run(ctx context.Context, p *bootstrap.Process) error {
	cfg, logg := p.Config, p.Logger

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return bootstrap.Require("redis", err)
	}
	p.DeferCloser("redis", redisClient)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{
		Subscriptions: []string{cfg.PubSub.NotificationSubscription},
	}, logg)
	if err != nil {
		return bootstrap.Require("pubsub", err)
	}
	p.DeferCloser("pubsub", pubsubClient)

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		return bootstrap.Require("notification subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewGuard(redisClient, notifications.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return bootstrap.Require("idempotency guard", err)
	}
	sender, err := mailer.New(cfg.Sendgrid, logg)
	if err != nil {
		return bootstrap.Require("mailer", err)
	}

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Subscription: subscription,
		Idempotency:  guard,
		Mailer:       sender,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Redis:    redisClient.Ping,
		PubSub:   pubsubClient.Ping,
		Consumer: consumer,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "notification worker ready")
	return service.Run(ctx)
}
