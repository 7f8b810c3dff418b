package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// SellRequestResponse is the API representation of a sell request
type SellRequestResponse struct {
	ID                   uuid.UUID  `json:"id"`
	SellerID             uuid.UUID  `json:"seller_id"`
	Category             string     `json:"category"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	DesiredPrice         string     `json:"desired_price,omitempty"`
	Status               string     `json:"status"`
	SelectedWholesalerID *uuid.UUID `json:"selected_wholesaler_id,omitempty"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func toSellRequestResponse(sr *sellrequest.SellRequest) *SellRequestResponse {
	return &SellRequestResponse{
		ID:                   sr.ID,
		SellerID:             sr.SellerID,
		Category:             string(sr.Category),
		Title:                sr.Title,
		Description:          sr.Description,
		DesiredPrice:         sr.DesiredPrice,
		Status:               sr.Status.String(),
		SelectedWholesalerID: sr.SelectedWholesalerID,
		ClosedAt:             sr.ClosedAt,
		CreatedAt:            sr.CreatedAt,
		UpdatedAt:            sr.UpdatedAt,
	}
}

// OfferResponse is the API representation of an offer
type OfferResponse struct {
	ID            uuid.UUID  `json:"id"`
	SellRequestID uuid.UUID  `json:"sell_request_id"`
	WholesalerID  uuid.UUID  `json:"wholesaler_id"`
	Price         string     `json:"price"`
	Currency      string     `json:"currency"`
	Message       string     `json:"message,omitempty"`
	IsSelected    bool       `json:"is_selected"`
	Status        string     `json:"status"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toOfferResponse(o *offer.Offer) *OfferResponse {
	return &OfferResponse{
		ID:            o.ID,
		SellRequestID: o.SellRequestID,
		WholesalerID:  o.WholesalerID,
		Price:         o.Price.Amount().String(),
		Currency:      o.Price.Currency(),
		Message:       o.Message,
		IsSelected:    o.IsSelected,
		Status:        o.Status.String(),
		ResolvedAt:    o.ResolvedAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOfferResponses(offers []*offer.Offer) []*OfferResponse {
	out := make([]*OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferResponse(o))
	}
	return out
}

// TransactionResponse is the API representation of a transaction
type TransactionResponse struct {
	ID              uuid.UUID  `json:"id"`
	SellRequestID   uuid.UUID  `json:"sell_request_id"`
	PurchaseOfferID uuid.UUID  `json:"purchase_offer_id"`
	WholesalerID    uuid.UUID  `json:"wholesaler_id"`
	SellerID        uuid.UUID  `json:"seller_id"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toTransactionResponse(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		SellRequestID:   t.SellRequestID,
		PurchaseOfferID: t.PurchaseOfferID,
		WholesalerID:    t.WholesalerID,
		SellerID:        t.SellerID,
		Status:          t.Status.String(),
		Notes:           t.Notes,
		CompletedAt:     t.CompletedAt,
		CancelledAt:     t.CancelledAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// AwardResponse is the API representation of a successful award
type AwardResponse struct {
	SellRequest  *SellRequestResponse `json:"sell_request"`
	WinningOffer *OfferResponse       `json:"winning_offer"`
	LosingOffers int                  `json:"losing_offers"`
	Transaction  *TransactionResponse `json:"transaction"`
}

// listResponse wraps collection results
type listResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
