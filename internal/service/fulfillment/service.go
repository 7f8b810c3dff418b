package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// service implements the Service interface
type service struct {
	transactions TransactionRepository
	notifier     NotificationService
}

// NewService creates a new fulfillment service
func NewService(transactions TransactionRepository, notifier NotificationService) Service {
	return &service{
		transactions: transactions,
		notifier:     notifier,
	}
}

// Complete marks an IN_PROGRESS transaction COMPLETED. Either party to the
// transaction may call it; which side is expected to is business policy
// enforced by the calling layer.
func (s *service) Complete(ctx context.Context, transactionID, requesterID uuid.UUID, notes string) (*transaction.Transaction, error) {
	return s.resolve(ctx, transactionID, requesterID, notes, transaction.StatusCompleted)
}

// Cancel marks an IN_PROGRESS transaction CANCELLED
func (s *service) Cancel(ctx context.Context, transactionID, requesterID uuid.UUID, notes string) (*transaction.Transaction, error) {
	return s.resolve(ctx, transactionID, requesterID, notes, transaction.StatusCancelled)
}

func (s *service) resolve(ctx context.Context, transactionID, requesterID uuid.UUID, notes string, to transaction.Status) (*transaction.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, errors.NewNotFoundError("transaction").WithCause(err)
	}

	if !t.InvolvedParty(requesterID) {
		return nil, errors.NewNotOwnerError("only the seller or the awarded wholesaler may update a transaction")
	}

	now := time.Now()
	applied, err := s.transactions.ResolveIfInProgress(ctx, transactionID, to, notes, now)
	if err != nil {
		return nil, errors.NewInternalError("failed to update transaction").WithCause(err)
	}
	if !applied {
		return nil, errors.NewInvalidTransitionError("transaction is not in progress")
	}

	var transitionErr error
	switch to {
	case transaction.StatusCompleted:
		transitionErr = t.Complete(notes)
	case transaction.StatusCancelled:
		transitionErr = t.Cancel(notes)
	}
	if transitionErr != nil {
		t, err = s.transactions.GetByID(ctx, transactionID)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload transaction").WithCause(err)
		}
	}

	if s.notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		switch to {
		case transaction.StatusCompleted:
			go s.notifier.NotifyTransactionCompleted(notifyCtx, t)
		case transaction.StatusCancelled:
			go s.notifier.NotifyTransactionCancelled(notifyCtx, t)
		}
	}

	return t, nil
}

// GetByID retrieves a transaction
func (s *service) GetByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, errors.NewNotFoundError("transaction").WithCause(err)
	}
	return t, nil
}

// GetByOffer returns the transaction referencing the offer, if any
func (s *service) GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error) {
	t, err := s.transactions.GetByOffer(ctx, offerID)
	if err != nil {
		return nil, errors.NewNotFoundError("transaction").WithCause(err)
	}
	return t, nil
}
