package events

import (
	"context"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// NoopPublisher discards every event. Used when no event bus is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) NotifyOfferSubmitted(context.Context, *offer.Offer) error   { return nil }
func (NoopPublisher) NotifyOfferWithdrawn(context.Context, *offer.Offer) error   { return nil }
func (NoopPublisher) NotifySellRequestClosed(context.Context, *sellrequest.SellRequest) error {
	return nil
}
func (NoopPublisher) NotifySellRequestCancelled(context.Context, *sellrequest.SellRequest) error {
	return nil
}
func (NoopPublisher) NotifyTransactionCreated(context.Context, *transaction.Transaction) error {
	return nil
}
func (NoopPublisher) NotifyTransactionCompleted(context.Context, *transaction.Transaction) error {
	return nil
}
func (NoopPublisher) NotifyTransactionCancelled(context.Context, *transaction.Transaction) error {
	return nil
}
