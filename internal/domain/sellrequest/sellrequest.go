package sellrequest

import (
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// SellRequest is an individual seller's listing that wholesalers bid on.
// The lifecycle is OPEN → CLOSED or OPEN → CANCELLED; both end states are
// terminal. SelectedWholesalerID is set exactly once, and only on the
// winning-close path.
type SellRequest struct {
	ID           uuid.UUID       `json:"id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Category     values.Category `json:"category"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	DesiredPrice string          `json:"desired_price,omitempty"`
	Status       Status          `json:"status"`

	SelectedWholesalerID *uuid.UUID `json:"selected_wholesaler_id,omitempty"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// ParseStatus converts a stored status string to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "open":
		return StatusOpen
	case "closed":
		return StatusClosed
	case "cancelled":
		return StatusCancelled
	default:
		return StatusOpen
	}
}

// NewSellRequest opens a new sell request for a seller.
func NewSellRequest(sellerID uuid.UUID, category values.Category, title, description, desiredPrice string) (*SellRequest, error) {
	if sellerID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_SELLER_ID", "seller ID is required")
	}
	if !category.IsValid() {
		return nil, errors.NewValidationError("INVALID_CATEGORY", "category must be computer or smartphone")
	}
	if title == "" {
		return nil, errors.NewValidationError("MISSING_TITLE", "title is required")
	}

	now := time.Now()
	return &SellRequest{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Category:     category,
		Title:        title,
		Description:  description,
		DesiredPrice: desiredPrice,
		Status:       StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsOpen reports whether the request still accepts offers.
func (r *SellRequest) IsOpen() bool {
	return r.Status == StatusOpen
}

// IsOwnedBy reports whether the given requester is the owning seller.
func (r *SellRequest) IsOwnedBy(requesterID uuid.UUID) bool {
	return r.SellerID == requesterID
}

// Close transitions OPEN → CLOSED with a winning wholesaler.
func (r *SellRequest) Close(wholesalerID uuid.UUID) error {
	if r.Status != StatusOpen {
		return errors.NewRequestNotOpenError("sell request is not open")
	}
	if wholesalerID == uuid.Nil {
		return errors.NewValidationError("MISSING_WHOLESALER_ID", "winning wholesaler ID is required")
	}

	now := time.Now()
	r.Status = StatusClosed
	r.SelectedWholesalerID = &wholesalerID
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// CloseWithoutWinner transitions OPEN → CLOSED with no acceptable offer.
// SelectedWholesalerID stays nil.
func (r *SellRequest) CloseWithoutWinner() error {
	if r.Status != StatusOpen {
		return errors.NewInvalidTransitionError("sell request is not open")
	}

	now := time.Now()
	r.Status = StatusClosed
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel transitions OPEN → CANCELLED.
func (r *SellRequest) Cancel() error {
	if r.Status != StatusOpen {
		return errors.NewInvalidTransitionError("sell request is not open")
	}

	now := time.Now()
	r.Status = StatusCancelled
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// UpdateDesiredPrice changes the free-text price hint; allowed only while OPEN.
func (r *SellRequest) UpdateDesiredPrice(desiredPrice string) error {
	if r.Status != StatusOpen {
		return errors.NewRequestNotOpenError("sell request is not open")
	}

	r.DesiredPrice = desiredPrice
	r.UpdatedAt = time.Now()
	return nil
}
