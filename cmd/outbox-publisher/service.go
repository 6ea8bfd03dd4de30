package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, terminalAttempts int, err error) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// ServiceParams wires the publisher. PublisherFactory defaults to the
// Pub/Sub client's topic publishers.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains the outbox table into Pub/Sub. Rows are claimed in
// creation order under FOR UPDATE SKIP LOCKED so several publishers can run.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

// rowOutcome is what happened to one claimed outbox row.
type rowOutcome int

const (
	rowPublished rowOutcome = iota
	rowRetry
	rowDeadLettered
)

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	outboxCfg := params.Config.Outbox
	svc := &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		metrics:          params.Metrics,
		batchSize:        defaultBatchSize,
		maxAttempts:      defaultMaxAttempts,
		pollInterval:     defaultPollInterval,
	}
	if outboxCfg.BatchSize > 0 {
		svc.batchSize = outboxCfg.BatchSize
	}
	if outboxCfg.MaxAttempts > 0 {
		svc.maxAttempts = outboxCfg.MaxAttempts
	}
	if outboxCfg.PollIntervalMS > 0 {
		svc.pollInterval = time.Duration(outboxCfg.PollIntervalMS) * time.Millisecond
	}
	return svc, nil
}

// Run polls until ctx is canceled. Idle polls wait one jittered interval;
// failed batches back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for name, ping := range map[string]func(context.Context) error{
		"database": s.db.Ping,
		"pubsub":   s.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	failures := s.failureBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		started := time.Now()
		processed, err := s.processBatch(ctx)
		s.metrics.ObserveBatch(time.Since(started))

		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait, _ = failures.Next()
		case processed:
			failures = s.failureBackoff()
			continue
		default:
			failures = s.failureBackoff()
			wait, _ = retry.WithJitter(jitterWindow, retry.NewConstant(s.pollInterval)).Next()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) failureBackoff() retry.Backoff {
	return retry.WithCappedDuration(maxBackoff, retry.WithJitter(jitterWindow, retry.NewExponential(s.pollInterval)))
}

// processBatch claims up to batchSize rows and settles each one inside a
// single transaction. It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.settle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// settle publishes one row and records the result. A non-nil error aborts
// the batch; publish failures are recorded on the row instead.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, s.eventFields(event, outbox.PayloadEnvelope{}, ""))
	}

	topic := resolved.Descriptor.Topic
	fields := s.eventFields(event, resolved.Envelope, topic)
	outcome, publishErr := s.classify(event, s.publishResolved(ctx, event, resolved))

	switch outcome {
	case rowPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	case rowDeadLettered:
		reason := enums.OutboxDLQReasonNonRetryable
		var nonRetry registry.NonRetryableError
		if !errors.As(publishErr, &nonRetry) {
			reason = enums.OutboxDLQReasonMaxAttempts
			fields["terminal_reason"] = "max_attempts"
		}
		fields["attempt_count"] = event.AttemptCount + 1
		return s.deadLetter(ctx, tx, event, reason, publishErr, fields)
	default:
		fields["attempt_count"] = event.AttemptCount + 1
		warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", publishErr.Error())
		s.logg.Warn(warnCtx, "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, publishErr); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(string(event.EventType))
		return nil
	}
}

// classify maps a publish error onto the row outcome. Exhausting the
// attempt budget wraps the cause so the DLQ keeps the last failure.
func (s *Service) classify(event models.OutboxEvent, err error) (rowOutcome, error) {
	if err == nil {
		return rowPublished, nil
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return rowDeadLettered, err
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return rowDeadLettered, fmt.Errorf("max publish attempts reached: %w", err)
	}
	return rowRetry, err
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(warnCtx, "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, s.maxAttempts, cause); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(reason))
	return nil
}

// publishResolved sends the stored envelope verbatim. Consumers route on
// the attributes and dedupe on event_id.
func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	eventID := resolved.Envelope.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"outbox_id":      event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
