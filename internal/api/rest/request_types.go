package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateSellRequestRequest is the payload for opening a sell request
type CreateSellRequestRequest struct {
	Category     string `json:"category" validate:"required,oneof=computer smartphone"`
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=5000"`
	DesiredPrice string `json:"desired_price" validate:"max=64"`
}

// UpdateDesiredPriceRequest is the payload for changing the price hint
type UpdateDesiredPriceRequest struct {
	DesiredPrice string `json:"desired_price" validate:"required,max=64"`
}

// CreateOfferRequest is the payload for submitting an offer
type CreateOfferRequest struct {
	Price    string `json:"price" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Message  string `json:"message" validate:"max=2000"`
}

// UpdateOfferPriceRequest is the payload for re-bidding a pending offer
type UpdateOfferPriceRequest struct {
	Price    string `json:"price" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// AwardRequest is the payload for selecting a winning offer
type AwardRequest struct {
	OfferID uuid.UUID `json:"offer_id" validate:"required"`
}

// ResolveTransactionRequest is the payload for completing or cancelling a
// transaction
type ResolveTransactionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// decodeAndValidate parses the JSON body into dst and runs validation
func decodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return &ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := validate.Struct(dst); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return &ValidationError{
				Field:   first.Field(),
				Message: fmt.Sprintf("failed validation on '%s'", first.Tag()),
			}
		}
		return &ValidationError{Field: "body", Message: err.Error()}
	}

	return nil
}

// ValidationError reports a request payload that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}
