package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
)

// Transaction is the post-award fulfillment record between the awarded
// wholesaler and the seller. Created exactly once per awarded sell request,
// always IN_PROGRESS at creation.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	SellRequestID   uuid.UUID `json:"sell_request_id"`
	PurchaseOfferID uuid.UUID `json:"purchase_offer_id"`
	WholesalerID    uuid.UUID `json:"wholesaler_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusInProgress Status = iota
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts a stored status string to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "in_progress":
		return StatusInProgress
	case "completed":
		return StatusCompleted
	case "cancelled":
		return StatusCancelled
	default:
		return StatusInProgress
	}
}

// NewTransaction creates an IN_PROGRESS transaction for an awarded offer. All
// references are immutable after creation.
func NewTransaction(sellRequestID, purchaseOfferID, wholesalerID, sellerID uuid.UUID) (*Transaction, error) {
	if sellRequestID == uuid.Nil || purchaseOfferID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_REFERENCE", "sell request and offer IDs are required")
	}
	if wholesalerID == uuid.Nil || sellerID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_PARTY", "wholesaler and seller IDs are required")
	}

	now := time.Now()
	return &Transaction{
		ID:              uuid.New(),
		SellRequestID:   sellRequestID,
		PurchaseOfferID: purchaseOfferID,
		WholesalerID:    wholesalerID,
		SellerID:        sellerID,
		Status:          StatusInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// InvolvedParty reports whether the requester is the seller or the wholesaler.
func (t *Transaction) InvolvedParty(requesterID uuid.UUID) bool {
	return t.SellerID == requesterID || t.WholesalerID == requesterID
}

// Complete transitions IN_PROGRESS → COMPLETED.
func (t *Transaction) Complete(notes string) error {
	if t.Status != StatusInProgress {
		return errors.NewInvalidTransitionError("transaction is not in progress")
	}

	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	if notes != "" {
		t.Notes = notes
	}
	t.UpdatedAt = now
	return nil
}

// Cancel transitions IN_PROGRESS → CANCELLED.
func (t *Transaction) Cancel(notes string) error {
	if t.Status != StatusInProgress {
		return errors.NewInvalidTransitionError("transaction is not in progress")
	}

	now := time.Now()
	t.Status = StatusCancelled
	t.CancelledAt = &now
	if notes != "" {
		t.Notes = notes
	}
	t.UpdatedAt = now
	return nil
}
