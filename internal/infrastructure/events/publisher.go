package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// Event names published to the bus
const (
	EventOfferSubmitted       = "offer.submitted"
	EventOfferWithdrawn       = "offer.withdrawn"
	EventSellRequestClosed    = "sell_request.closed"
	EventSellRequestCancelled = "sell_request.cancelled"
	EventTransactionCreated   = "transaction.created"
	EventTransactionCompleted = "transaction.completed"
	EventTransactionCancelled = "transaction.cancelled"
)

// envelope is the wire format for published events
type envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher broadcasts domain events over Redis pub/sub. Events are
// advisory: a failed publish is logged and never fails the operation that
// produced it.
type Publisher struct {
	client        *redis.Client
	channelPrefix string
	logger        *slog.Logger
}

// NewPublisher creates a Redis-backed event publisher
func NewPublisher(client *redis.Client, channelPrefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:        client,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

func (p *Publisher) publish(ctx context.Context, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	env, err := json.Marshal(envelope{
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}

	channel := p.channelPrefix + "." + event
	if err := p.client.Publish(ctx, channel, env).Err(); err != nil {
		p.logger.WarnContext(ctx, "event publish failed",
			"event", event,
			"channel", channel,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}

	return nil
}

// NotifyOfferSubmitted publishes an offer.submitted event
func (p *Publisher) NotifyOfferSubmitted(ctx context.Context, o *offer.Offer) error {
	return p.publish(ctx, EventOfferSubmitted, o)
}

// NotifyOfferWithdrawn publishes an offer.withdrawn event
func (p *Publisher) NotifyOfferWithdrawn(ctx context.Context, o *offer.Offer) error {
	return p.publish(ctx, EventOfferWithdrawn, o)
}

// NotifySellRequestClosed publishes a sell_request.closed event
func (p *Publisher) NotifySellRequestClosed(ctx context.Context, r *sellrequest.SellRequest) error {
	return p.publish(ctx, EventSellRequestClosed, r)
}

// NotifySellRequestCancelled publishes a sell_request.cancelled event
func (p *Publisher) NotifySellRequestCancelled(ctx context.Context, r *sellrequest.SellRequest) error {
	return p.publish(ctx, EventSellRequestCancelled, r)
}

// NotifyTransactionCreated publishes a transaction.created event
func (p *Publisher) NotifyTransactionCreated(ctx context.Context, t *transaction.Transaction) error {
	return p.publish(ctx, EventTransactionCreated, t)
}

// NotifyTransactionCompleted publishes a transaction.completed event
func (p *Publisher) NotifyTransactionCompleted(ctx context.Context, t *transaction.Transaction) error {
	return p.publish(ctx, EventTransactionCompleted, t)
}

// NotifyTransactionCancelled publishes a transaction.cancelled event
func (p *Publisher) NotifyTransactionCancelled(ctx context.Context, t *transaction.Transaction) error {
	return p.publish(ctx, EventTransactionCancelled, t)
}
