package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	domainErrors "github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
	"github.com/recomarket/recomarket-backend/internal/service/auction"
	"github.com/recomarket/recomarket-backend/internal/service/fulfillment"
)

// Handler serves the auction API endpoints
type Handler struct {
	auction     auction.Service
	fulfillment fulfillment.Service
}

// NewHandler creates a new API handler
func NewHandler(auctionSvc auction.Service, fulfillmentSvc fulfillment.Service) *Handler {
	return &Handler{
		auction:     auctionSvc,
		fulfillment: fulfillmentSvc,
	}
}

// handleCreateSellRequest handles POST /sell-requests
func (h *Handler) handleCreateSellRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateSellRequestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := values.NewCategory(req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sr, err := h.auction.OpenSellRequest(r.Context(), &auction.OpenSellRequestRequest{
		SellerID:     UserIDFromContext(r.Context()),
		Category:     category,
		Title:        req.Title,
		Description:  req.Description,
		DesiredPrice: req.DesiredPrice,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSellRequestResponse(sr))
}

// handleListSellRequests handles GET /sell-requests
func (h *Handler) handleListSellRequests(w http.ResponseWriter, r *http.Request) {
	filter := &auction.SellRequestFilter{}
	q := r.URL.Query()

	if v := q.Get("seller_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, &ValidationError{Field: "seller_id", Message: "must be a UUID"})
			return
		}
		filter.SellerID = &id
	}
	if v := q.Get("status"); v != "" {
		status := sellrequest.ParseStatus(v)
		filter.Status = &status
	}
	if v := q.Get("category"); v != "" {
		category, err := values.NewCategory(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Category = &category
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, r, &ValidationError{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, r, &ValidationError{Field: "offset", Message: "must be a non-negative integer"})
			return
		}
		filter.Offset = offset
	}

	requests, err := h.auction.ListSellRequests(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*SellRequestResponse, 0, len(requests))
	for _, sr := range requests {
		out = append(out, toSellRequestResponse(sr))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Count: len(out)})
}

// handleGetSellRequest handles GET /sell-requests/{id}
func (h *Handler) handleGetSellRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	sr, err := h.auction.GetSellRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellRequestResponse(sr))
}

// handleUpdateDesiredPrice handles PATCH /sell-requests/{id}/price
func (h *Handler) handleUpdateDesiredPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateDesiredPriceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sr, err := h.auction.UpdateDesiredPrice(r.Context(), id, UserIDFromContext(r.Context()), req.DesiredPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellRequestResponse(sr))
}

// handleCancelSellRequest handles POST /sell-requests/{id}/cancel
func (h *Handler) handleCancelSellRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	sr, err := h.auction.CancelSellRequest(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellRequestResponse(sr))
}

// handleCloseSellRequest handles POST /sell-requests/{id}/close
func (h *Handler) handleCloseSellRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	sr, err := h.auction.CloseWithoutWinner(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSellRequestResponse(sr))
}

// handleCreateOffer handles POST /sell-requests/{id}/offers
func (h *Handler) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateOfferRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	price, err := parseMoney(req.Price, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.auction.SubmitOffer(r.Context(), &auction.SubmitOfferRequest{
		SellRequestID: id,
		WholesalerID:  UserIDFromContext(r.Context()),
		Price:         price,
		Message:       req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOfferResponse(o))
}

// handleListOffers handles GET /sell-requests/{id}/offers
func (h *Handler) handleListOffers(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	offers, err := h.auction.ListOffers(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Data: toOfferResponses(offers), Count: len(offers)})
}

// handleAward handles POST /sell-requests/{id}/award
func (h *Handler) handleAward(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req AwardRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.auction.AwardOffer(r.Context(), id, req.OfferID, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, &AwardResponse{
		SellRequest:  toSellRequestResponse(result.SellRequest),
		WinningOffer: toOfferResponse(result.WinningOffer),
		LosingOffers: result.LosingOffers,
		Transaction:  toTransactionResponse(result.Transaction),
	})
}

// handleGetOffer handles GET /offers/{id}
func (h *Handler) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.auction.GetOffer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(o))
}

// handleListMyOffers handles GET /offers
func (h *Handler) handleListMyOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.auction.ListOffersByWholesaler(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Data: toOfferResponses(offers), Count: len(offers)})
}

// handleUpdateOfferPrice handles PATCH /offers/{id}/price
func (h *Handler) handleUpdateOfferPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateOfferPriceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	price, err := parseMoney(req.Price, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.auction.UpdateOfferPrice(r.Context(), id, UserIDFromContext(r.Context()), price)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(o))
}

// handleWithdrawOffer handles POST /offers/{id}/withdraw
func (h *Handler) handleWithdrawOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.auction.WithdrawOffer(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(o))
}

// handleGetTransaction handles GET /transactions/{id}
func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.fulfillment.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// handleGetTransactionByOffer handles GET /offers/{id}/transaction
func (h *Handler) handleGetTransactionByOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.fulfillment.GetByOffer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// handleCompleteTransaction handles POST /transactions/{id}/complete
func (h *Handler) handleCompleteTransaction(w http.ResponseWriter, r *http.Request) {
	h.resolveTransaction(w, r, h.fulfillment.Complete)
}

// handleCancelTransaction handles POST /transactions/{id}/cancel
func (h *Handler) handleCancelTransaction(w http.ResponseWriter, r *http.Request) {
	h.resolveTransaction(w, r, h.fulfillment.Cancel)
}

func (h *Handler) resolveTransaction(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, id, requesterID uuid.UUID, notes string) (*transaction.Transaction, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ResolveTransactionRequest
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	t, err := resolve(r.Context(), id, UserIDFromContext(r.Context()), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domainErrors.NewNotFoundError("resource")
	}
	return id, nil
}

func parseMoney(amount, currency string) (values.Money, error) {
	if currency == "" {
		currency = values.KRW
	}
	price, err := values.NewMoneyFromString(amount, currency)
	if err != nil {
		return values.Money{}, domainErrors.NewInvalidPriceError(err.Error())
	}
	return price, nil
}
