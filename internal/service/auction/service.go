package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// service implements the Service interface
type service struct {
	sellRequests SellRequestRepository
	offers       OfferRepository
	transactions TransactionRepository
	uow          UnitOfWork
	notifier     NotificationService
	metrics      MetricsCollector
	tracer       trace.Tracer

	defaultListLimit int
}

// maxListLimit caps page sizes regardless of configuration.
const maxListLimit = 100

// NewService creates a new auction service. defaultListLimit is the page size
// applied when a list request carries none; zero falls back to 50.
func NewService(
	sellRequests SellRequestRepository,
	offers OfferRepository,
	transactions TransactionRepository,
	uow UnitOfWork,
	notifier NotificationService,
	metrics MetricsCollector,
	defaultListLimit int,
) Service {
	if defaultListLimit <= 0 || defaultListLimit > maxListLimit {
		defaultListLimit = 50
	}
	return &service{
		sellRequests:     sellRequests,
		offers:           offers,
		transactions:     transactions,
		uow:              uow,
		notifier:         notifier,
		metrics:          metrics,
		tracer:           otel.Tracer("service.auction"),
		defaultListLimit: defaultListLimit,
	}
}

// OpenSellRequest creates a new OPEN sell request for a seller
func (s *service) OpenSellRequest(ctx context.Context, req *OpenSellRequestRequest) (*sellrequest.SellRequest, error) {
	r, err := sellrequest.NewSellRequest(req.SellerID, req.Category, req.Title, req.Description, req.DesiredPrice)
	if err != nil {
		return nil, err
	}

	if err := s.sellRequests.Create(ctx, r); err != nil {
		return nil, errors.NewInternalError("failed to create sell request").WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.RecordSellRequestOpened(ctx, r)
	}

	return r, nil
}

// GetSellRequest retrieves a sell request
func (s *service) GetSellRequest(ctx context.Context, id uuid.UUID) (*sellrequest.SellRequest, error) {
	r, err := s.sellRequests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}
	return r, nil
}

// ListSellRequests returns sell requests matching the filter
func (s *service) ListSellRequests(ctx context.Context, filter *SellRequestFilter) ([]*sellrequest.SellRequest, error) {
	if filter == nil {
		filter = &SellRequestFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = s.defaultListLimit
	}

	requests, err := s.sellRequests.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError("failed to list sell requests").WithCause(err)
	}
	return requests, nil
}

// UpdateDesiredPrice changes the price hint of an OPEN sell request
func (s *service) UpdateDesiredPrice(ctx context.Context, id, requesterID uuid.UUID, desiredPrice string) (*sellrequest.SellRequest, error) {
	r, err := s.sellRequests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}

	if !r.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the owning seller may edit a sell request")
	}

	applied, err := s.sellRequests.UpdateDesiredPriceIfOpen(ctx, id, desiredPrice)
	if err != nil {
		return nil, errors.NewInternalError("failed to update sell request").WithCause(err)
	}
	if !applied {
		return nil, errors.NewRequestNotOpenError("sell request is no longer open")
	}

	r.DesiredPrice = desiredPrice
	return r, nil
}

// CancelSellRequest cancels an OPEN sell request. Every PENDING offer on the
// request is withdrawn in the same unit of work so no wholesaler is left with
// a bid they believe is live.
func (s *service) CancelSellRequest(ctx context.Context, id, requesterID uuid.UUID) (*sellrequest.SellRequest, error) {
	r, err := s.sellRequests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}

	if !r.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the owning seller may cancel a sell request")
	}

	now := time.Now()
	err = s.uow.Execute(ctx, func(ctx context.Context, tx RepositorySet) error {
		applied, err := tx.SellRequests.CancelIfOpen(ctx, id, now)
		if err != nil {
			return errors.NewInternalError("failed to cancel sell request").WithCause(err)
		}
		if !applied {
			return errors.NewInvalidTransitionError("sell request is no longer open")
		}

		if _, err := tx.Offers.ResolvePendingForRequest(ctx, id, offer.StatusWithdrawn, uuid.Nil, now); err != nil {
			return errors.NewInternalError("failed to withdraw outstanding offers").WithCause(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelErr := r.Cancel(); cancelErr != nil {
		// Stored state already transitioned; refresh the stale copy.
		r, err = s.sellRequests.GetByID(ctx, id)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload sell request").WithCause(err)
		}
	}

	if s.notifier != nil {
		go s.notifier.NotifySellRequestCancelled(context.WithoutCancel(ctx), r)
	}

	return r, nil
}

// CloseWithoutWinner closes an OPEN sell request with no acceptable offer.
// Outstanding PENDING offers become LOST; SelectedWholesalerID stays nil.
func (s *service) CloseWithoutWinner(ctx context.Context, id, requesterID uuid.UUID) (*sellrequest.SellRequest, error) {
	r, err := s.sellRequests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}

	if !r.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the owning seller may close a sell request")
	}

	now := time.Now()
	err = s.uow.Execute(ctx, func(ctx context.Context, tx RepositorySet) error {
		applied, err := tx.SellRequests.CloseIfOpen(ctx, id, nil, now)
		if err != nil {
			return errors.NewInternalError("failed to close sell request").WithCause(err)
		}
		if !applied {
			return errors.NewInvalidTransitionError("sell request is no longer open")
		}

		if _, err := tx.Offers.ResolvePendingForRequest(ctx, id, offer.StatusLost, uuid.Nil, now); err != nil {
			return errors.NewInternalError("failed to resolve outstanding offers").WithCause(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closeErr := r.CloseWithoutWinner(); closeErr != nil {
		r, err = s.sellRequests.GetByID(ctx, id)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload sell request").WithCause(err)
		}
	}

	if s.notifier != nil {
		go s.notifier.NotifySellRequestClosed(context.WithoutCancel(ctx), r)
	}

	return r, nil
}

// SubmitOffer creates a PENDING offer against an OPEN sell request
func (s *service) SubmitOffer(ctx context.Context, req *SubmitOfferRequest) (*offer.Offer, error) {
	o, err := offer.NewOffer(req.SellRequestID, req.WholesalerID, req.Price, req.Message)
	if err != nil {
		return nil, err
	}

	r, err := s.sellRequests.GetByID(ctx, req.SellRequestID)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}
	if !r.IsOpen() {
		return nil, errors.NewRequestNotOpenError("sell request is no longer accepting offers")
	}
	if r.SellerID == req.WholesalerID {
		return nil, errors.NewInvalidOfferError("sellers may not bid on their own sell request")
	}

	// The repository re-checks the parent status at write time; the read above
	// only produces a friendlier error for the common case.
	if err := s.offers.CreatePending(ctx, o); err != nil {
		switch {
		case isErr(err, ErrParentNotOpen):
			return nil, errors.NewRequestNotOpenError("sell request is no longer accepting offers")
		case isErr(err, ErrDuplicatePending):
			return nil, errors.NewDuplicateOfferError("an active offer on this sell request already exists")
		default:
			return nil, errors.NewInternalError("failed to create offer").WithCause(err)
		}
	}

	if s.notifier != nil {
		go s.notifier.NotifyOfferSubmitted(context.WithoutCancel(ctx), o)
	}
	if s.metrics != nil {
		s.metrics.RecordOfferSubmitted(ctx, o)
	}

	return o, nil
}

// UpdateOfferPrice re-bids an existing PENDING offer
func (s *service) UpdateOfferPrice(ctx context.Context, offerID, requesterID uuid.UUID, price values.Money) (*offer.Offer, error) {
	if !price.IsPositive() {
		return nil, errors.NewInvalidPriceError("offer price must be positive")
	}

	o, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, errors.NewNotFoundError("offer").WithCause(err)
	}

	if !o.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the bidding wholesaler may update an offer")
	}

	applied, err := s.offers.UpdatePriceIfPending(ctx, offerID, price)
	if err != nil {
		return nil, errors.NewInternalError("failed to update offer").WithCause(err)
	}
	if !applied {
		return nil, errors.NewAlreadyResolvedError("offer is already resolved")
	}

	o.Price = price
	return o, nil
}

// WithdrawOffer retracts a PENDING offer
func (s *service) WithdrawOffer(ctx context.Context, offerID, requesterID uuid.UUID) (*offer.Offer, error) {
	o, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, errors.NewNotFoundError("offer").WithCause(err)
	}

	if !o.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the bidding wholesaler may withdraw an offer")
	}

	now := time.Now()
	applied, err := s.offers.ResolveIfPending(ctx, offerID, offer.StatusWithdrawn, false, now)
	if err != nil {
		return nil, errors.NewInternalError("failed to withdraw offer").WithCause(err)
	}
	if !applied {
		return nil, errors.NewAlreadyResolvedError("offer is already resolved")
	}

	if withdrawErr := o.Withdraw(); withdrawErr != nil {
		o, err = s.offers.GetByID(ctx, offerID)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload offer").WithCause(err)
		}
	}

	if s.notifier != nil {
		go s.notifier.NotifyOfferWithdrawn(context.WithoutCancel(ctx), o)
	}

	return o, nil
}

// GetOffer retrieves a specific offer
func (s *service) GetOffer(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, errors.NewNotFoundError("offer").WithCause(err)
	}
	return o, nil
}

// ListOffers returns all non-withdrawn offers for a sell request, oldest first
func (s *service) ListOffers(ctx context.Context, sellRequestID uuid.UUID) ([]*offer.Offer, error) {
	if _, err := s.sellRequests.GetByID(ctx, sellRequestID); err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}

	offers, err := s.offers.ListBySellRequest(ctx, sellRequestID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list offers").WithCause(err)
	}
	return offers, nil
}

// ListOffersByWholesaler returns a wholesaler's own offers, newest first
func (s *service) ListOffersByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]*offer.Offer, error) {
	offers, err := s.offers.ListByWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list offers").WithCause(err)
	}
	return offers, nil
}
