package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// Service defines the post-award fulfillment tracker interface
type Service interface {
	// Complete marks an IN_PROGRESS transaction COMPLETED
	Complete(ctx context.Context, transactionID, requesterID uuid.UUID, notes string) (*transaction.Transaction, error)
	// Cancel marks an IN_PROGRESS transaction CANCELLED
	Cancel(ctx context.Context, transactionID, requesterID uuid.UUID, notes string) (*transaction.Transaction, error)
	// GetByID retrieves a transaction
	GetByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error)
	// GetByOffer returns the transaction referencing the offer, if any
	GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error)
}

// TransactionRepository defines the interface for transaction storage
type TransactionRepository interface {
	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	// GetByOffer returns the transaction referencing the offer
	GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error)
	// ResolveIfInProgress transitions IN_PROGRESS → to, stamping the matching
	// terminal timestamp. Returns false if the row was not IN_PROGRESS at
	// write time.
	ResolveIfInProgress(ctx context.Context, id uuid.UUID, to transaction.Status, notes string, resolvedAt time.Time) (bool, error)
}

// NotificationService defines the interface for fulfillment events
type NotificationService interface {
	NotifyTransactionCompleted(ctx context.Context, t *transaction.Transaction) error
	NotifyTransactionCancelled(ctx context.Context, t *transaction.Transaction) error
}
