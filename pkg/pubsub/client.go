package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/gcp"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const (
	topicsCollection        = "topics"
	subscriptionsCollection = "subscriptions"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Requirements lists the resources a process cannot run without. They are
// checked at startup and again on every Ping.
type Requirements struct {
	Topics        []string
	Subscriptions []string
}

func (r Requirements) empty() bool {
	return len(compact(r.Topics)) == 0 && len(compact(r.Subscriptions)) == 0
}

// Client hands out v2 publishers and subscribers scoped to one project.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	required  Requirements
}

// NewClient dials Pub/Sub and verifies every required topic and subscription.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, required Requirements, logg *logger.Logger) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	if required.empty() {
		return nil, errors.New("pubsub requirements are empty")
	}

	psClient, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, projectID: projectID, cfg: cfg, required: required}
	if err := c.verify(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":   projectID,
			"topics":        compact(required.Topics),
			"subscriptions": compact(required.Subscriptions),
		}), "pubsub client initialized")
	}
	return c, nil
}

// verify reports every missing resource at once.
func (c *Client) verify(ctx context.Context) error {
	var errs error
	for _, topic := range compact(c.required.Topics) {
		name := c.topicName(topic)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		errs = multierr.Append(errs, describe("topic", topic, err))
	}
	for _, sub := range compact(c.required.Subscriptions) {
		name := c.subscriptionName(sub)
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		errs = multierr.Append(errs, describe("subscription", sub, err))
	}
	return errs
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case gcp.IsNotFound(err):
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription returns a subscriber for a short ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.subscriptionName(name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationSubscription feeds ticket and password-reset mail.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// AnalyticsSubscription feeds reservation analytics.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns a publisher for a short topic ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.topicName(name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-checks the required resources.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) topicName(id string) string {
	return gcp.ResourceName(c.projectID, topicsCollection, id)
}

func (c *Client) subscriptionName(id string) string {
	return gcp.ResourceName(c.projectID, subscriptionsCollection, id)
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
