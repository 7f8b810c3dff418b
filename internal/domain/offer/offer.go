package offer

import (
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// Offer is a wholesaler's proposed purchase price against a sell request.
// A wholesaler holds at most one PENDING offer per sell request; IsSelected is
// flipped to true on exactly one offer per request, by the award path only.
type Offer struct {
	ID            uuid.UUID    `json:"id"`
	SellRequestID uuid.UUID    `json:"sell_request_id"`
	WholesalerID  uuid.UUID    `json:"wholesaler_id"`
	Price         values.Money `json:"price"`
	Message       string       `json:"message,omitempty"`
	IsSelected    bool         `json:"is_selected"`
	Status        Status       `json:"status"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Status int

const (
	StatusPending Status = iota
	StatusWon
	StatusLost
	StatusWithdrawn
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	case StatusWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// IsResolved reports whether the offer has left the PENDING state.
func (s Status) IsResolved() bool {
	return s != StatusPending
}

// ParseStatus converts a stored status string to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "pending":
		return StatusPending
	case "won":
		return StatusWon
	case "lost":
		return StatusLost
	case "withdrawn":
		return StatusWithdrawn
	default:
		return StatusPending
	}
}

// NewOffer creates a PENDING offer. The price must be positive.
func NewOffer(sellRequestID, wholesalerID uuid.UUID, price values.Money, message string) (*Offer, error) {
	if sellRequestID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_SELL_REQUEST_ID", "sell request ID is required")
	}
	if wholesalerID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_WHOLESALER_ID", "wholesaler ID is required")
	}
	if !price.IsPositive() {
		return nil, errors.NewInvalidPriceError("offer price must be positive")
	}

	now := time.Now()
	return &Offer{
		ID:            uuid.New(),
		SellRequestID: sellRequestID,
		WholesalerID:  wholesalerID,
		Price:         price,
		Message:       message,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOwnedBy reports whether the given requester is the bidding wholesaler.
func (o *Offer) IsOwnedBy(requesterID uuid.UUID) bool {
	return o.WholesalerID == requesterID
}

// MarkWon resolves the offer as the winner and selects it.
func (o *Offer) MarkWon() error {
	if o.Status != StatusPending {
		return errors.NewAlreadyResolvedError("offer is already resolved")
	}

	now := time.Now()
	o.Status = StatusWon
	o.IsSelected = true
	o.ResolvedAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkLost resolves the offer as a losing bid. IsSelected stays false.
func (o *Offer) MarkLost() error {
	if o.Status != StatusPending {
		return errors.NewAlreadyResolvedError("offer is already resolved")
	}

	now := time.Now()
	o.Status = StatusLost
	o.ResolvedAt = &now
	o.UpdatedAt = now
	return nil
}

// Withdraw retracts a live offer.
func (o *Offer) Withdraw() error {
	if o.Status != StatusPending {
		return errors.NewAlreadyResolvedError("offer is already resolved")
	}

	now := time.Now()
	o.Status = StatusWithdrawn
	o.ResolvedAt = &now
	o.UpdatedAt = now
	return nil
}

// UpdatePrice changes the bid price of a live offer.
func (o *Offer) UpdatePrice(price values.Money) error {
	if o.Status != StatusPending {
		return errors.NewAlreadyResolvedError("offer is already resolved")
	}
	if !price.IsPositive() {
		return errors.NewInvalidPriceError("offer price must be positive")
	}

	o.Price = price
	o.UpdatedAt = time.Now()
	return nil
}
