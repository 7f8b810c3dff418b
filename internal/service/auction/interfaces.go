package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// Service defines the reverse-auction engine interface
type Service interface {
	// OpenSellRequest creates a new OPEN sell request for a seller
	OpenSellRequest(ctx context.Context, req *OpenSellRequestRequest) (*sellrequest.SellRequest, error)
	// GetSellRequest retrieves a sell request
	GetSellRequest(ctx context.Context, id uuid.UUID) (*sellrequest.SellRequest, error)
	// ListSellRequests returns sell requests matching the filter
	ListSellRequests(ctx context.Context, filter *SellRequestFilter) ([]*sellrequest.SellRequest, error)
	// UpdateDesiredPrice changes the price hint of an OPEN sell request
	UpdateDesiredPrice(ctx context.Context, id, requesterID uuid.UUID, desiredPrice string) (*sellrequest.SellRequest, error)
	// CancelSellRequest cancels an OPEN sell request and withdraws its live offers
	CancelSellRequest(ctx context.Context, id, requesterID uuid.UUID) (*sellrequest.SellRequest, error)
	// CloseWithoutWinner closes an OPEN sell request with no acceptable offer
	CloseWithoutWinner(ctx context.Context, id, requesterID uuid.UUID) (*sellrequest.SellRequest, error)

	// SubmitOffer creates a PENDING offer against an OPEN sell request
	SubmitOffer(ctx context.Context, req *SubmitOfferRequest) (*offer.Offer, error)
	// UpdateOfferPrice re-bids an existing PENDING offer
	UpdateOfferPrice(ctx context.Context, offerID, requesterID uuid.UUID, price values.Money) (*offer.Offer, error)
	// WithdrawOffer retracts a PENDING offer
	WithdrawOffer(ctx context.Context, offerID, requesterID uuid.UUID) (*offer.Offer, error)
	// GetOffer retrieves a specific offer
	GetOffer(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error)
	// ListOffers returns all non-withdrawn offers for a sell request, oldest first
	ListOffers(ctx context.Context, sellRequestID uuid.UUID) ([]*offer.Offer, error)
	// ListOffersByWholesaler returns a wholesaler's own offers, newest first
	ListOffersByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]*offer.Offer, error)

	// AwardOffer selects the winning offer and closes the auction as one
	// atomic unit: winner WON+selected, other live offers LOST, sell request
	// CLOSED, transaction created IN_PROGRESS
	AwardOffer(ctx context.Context, sellRequestID, offerID, requesterID uuid.UUID) (*AwardResult, error)
}

// Storage sentinels. Implementations surface these from conditional writes so
// the engine can map a lost race to the right caller-facing error.
var (
	// ErrParentNotOpen is returned by OfferRepository.CreatePending when the
	// parent sell request is no longer OPEN at write time.
	ErrParentNotOpen = errors.New("sell request not open")
	// ErrDuplicatePending is returned by OfferRepository.CreatePending when
	// the wholesaler already holds a PENDING offer on the sell request.
	ErrDuplicatePending = errors.New("duplicate pending offer")
)

// SellRequestRepository defines the interface for sell request storage.
// Every transition is a conditional write keyed on the row's current status;
// the bool result reports whether the row was in the expected state.
type SellRequestRepository interface {
	// Create stores a new sell request
	Create(ctx context.Context, r *sellrequest.SellRequest) error
	// GetByID retrieves a sell request by ID
	GetByID(ctx context.Context, id uuid.UUID) (*sellrequest.SellRequest, error)
	// List returns sell requests matching the filter, newest first
	List(ctx context.Context, filter *SellRequestFilter) ([]*sellrequest.SellRequest, error)
	// CloseIfOpen transitions OPEN → CLOSED, recording the winner (nil for a
	// no-winner close). Returns false if the row was not OPEN at write time.
	CloseIfOpen(ctx context.Context, id uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error)
	// CancelIfOpen transitions OPEN → CANCELLED. Returns false if not OPEN.
	CancelIfOpen(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error)
	// UpdateDesiredPriceIfOpen updates the price hint iff still OPEN.
	UpdateDesiredPriceIfOpen(ctx context.Context, id uuid.UUID, desiredPrice string) (bool, error)
	// ReopenFromFailedAward reverts CLOSED-with-this-winner back to OPEN.
	// Compensation path only; the forward lifecycle never reopens a request.
	ReopenFromFailedAward(ctx context.Context, id, wholesalerID uuid.UUID) (bool, error)
}

// OfferRepository defines the interface for offer storage
type OfferRepository interface {
	// CreatePending inserts a PENDING offer. Implementations must verify at
	// write time that the parent sell request is OPEN (ErrParentNotOpen) and
	// that no other PENDING offer exists for the same (sell request,
	// wholesaler) pair (ErrDuplicatePending).
	CreatePending(ctx context.Context, o *offer.Offer) error
	// GetByID retrieves an offer by ID
	GetByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error)
	// ListBySellRequest returns non-withdrawn offers, submission order ascending
	ListBySellRequest(ctx context.Context, sellRequestID uuid.UUID) ([]*offer.Offer, error)
	// ListByWholesaler returns a wholesaler's offers, newest first
	ListByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]*offer.Offer, error)
	// UpdatePriceIfPending changes the price iff the offer is still PENDING.
	UpdatePriceIfPending(ctx context.Context, id uuid.UUID, price values.Money) (bool, error)
	// ResolveIfPending transitions PENDING → to, optionally selecting the
	// offer. Returns false if the offer was not PENDING at write time.
	ResolveIfPending(ctx context.Context, id uuid.UUID, to offer.Status, selected bool, resolvedAt time.Time) (bool, error)
	// ResolvePendingForRequest fans a resolution out to every PENDING offer on
	// the sell request except exceptID (uuid.Nil for no exception). Returns
	// the number of offers resolved.
	ResolvePendingForRequest(ctx context.Context, sellRequestID uuid.UUID, to offer.Status, exceptID uuid.UUID, resolvedAt time.Time) (int, error)
	// RevertResolution returns WON/LOST offers on the sell request to PENDING.
	// Compensation path only.
	RevertResolution(ctx context.Context, sellRequestID uuid.UUID) (int, error)
}

// TransactionRepository defines the interface for transaction storage
type TransactionRepository interface {
	// Create stores a new transaction
	Create(ctx context.Context, t *transaction.Transaction) error
	// GetByOffer returns the transaction referencing the offer, if any
	GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error)
	// DeleteBySellRequest removes the transaction for a sell request.
	// Compensation path only.
	DeleteBySellRequest(ctx context.Context, sellRequestID uuid.UUID) error
}

// RepositorySet bundles the repositories participating in one unit of work
type RepositorySet struct {
	SellRequests SellRequestRepository
	Offers       OfferRepository
	Transactions TransactionRepository
}

// UnitOfWork executes fn against a transaction-scoped RepositorySet. If fn
// returns an error the work is rolled back and the error returned unchanged.
// A store that cannot undo already-applied writes wraps the failure in
// *PartialApplyError instead, so the caller can run compensation.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, tx RepositorySet) error) error
}

// PartialApplyError reports a unit of work that failed after some of its
// writes took effect and could not be rolled back.
type PartialApplyError struct {
	Cause error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("unit of work partially applied: %v", e.Cause)
}

func (e *PartialApplyError) Unwrap() error {
	return e.Cause
}

// NotificationService defines the interface for fire-and-forget domain events
type NotificationService interface {
	NotifyOfferSubmitted(ctx context.Context, o *offer.Offer) error
	NotifyOfferWithdrawn(ctx context.Context, o *offer.Offer) error
	NotifySellRequestClosed(ctx context.Context, r *sellrequest.SellRequest) error
	NotifySellRequestCancelled(ctx context.Context, r *sellrequest.SellRequest) error
	NotifyTransactionCreated(ctx context.Context, t *transaction.Transaction) error
}

// MetricsCollector defines the interface for domain metrics
type MetricsCollector interface {
	RecordSellRequestOpened(ctx context.Context, r *sellrequest.SellRequest)
	RecordOfferSubmitted(ctx context.Context, o *offer.Offer)
	RecordAward(ctx context.Context, sellRequestID uuid.UUID, duration time.Duration)
	RecordAwardConflict(ctx context.Context, sellRequestID uuid.UUID)
}

// OpenSellRequestRequest represents a sell request creation request
type OpenSellRequestRequest struct {
	SellerID     uuid.UUID
	Category     values.Category
	Title        string
	Description  string
	DesiredPrice string
}

// SubmitOfferRequest represents an offer submission request
type SubmitOfferRequest struct {
	SellRequestID uuid.UUID
	WholesalerID  uuid.UUID
	Price         values.Money
	Message       string
}

// SellRequestFilter narrows ListSellRequests results
type SellRequestFilter struct {
	SellerID *uuid.UUID
	Status   *sellrequest.Status
	Category *values.Category
	Limit    int
	Offset   int
}

// AwardResult represents the outcome of a successful award
type AwardResult struct {
	SellRequest  *sellrequest.SellRequest
	WinningOffer *offer.Offer
	LosingOffers int
	Transaction  *transaction.Transaction
}
