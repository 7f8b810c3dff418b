// Package fixtures provides builders for domain entities in tests.
package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// SellRequestBuilder builds sell requests for tests
type SellRequestBuilder struct {
	sellerID     uuid.UUID
	category     values.Category
	title        string
	description  string
	desiredPrice string
	status       sellrequest.Status
}

func NewSellRequest() *SellRequestBuilder {
	return &SellRequestBuilder{
		sellerID:     uuid.New(),
		category:     values.CategorySmartphone,
		title:        "Galaxy S24 Ultra, lightly used",
		description:  "256GB, minor scratches on the frame",
		desiredPrice: "450000",
		status:       sellrequest.StatusOpen,
	}
}

func (b *SellRequestBuilder) WithSeller(id uuid.UUID) *SellRequestBuilder {
	b.sellerID = id
	return b
}

func (b *SellRequestBuilder) WithCategory(c values.Category) *SellRequestBuilder {
	b.category = c
	return b
}

func (b *SellRequestBuilder) WithTitle(title string) *SellRequestBuilder {
	b.title = title
	return b
}

func (b *SellRequestBuilder) WithDesiredPrice(price string) *SellRequestBuilder {
	b.desiredPrice = price
	return b
}

func (b *SellRequestBuilder) WithStatus(status sellrequest.Status) *SellRequestBuilder {
	b.status = status
	return b
}

func (b *SellRequestBuilder) Build(t *testing.T) *sellrequest.SellRequest {
	t.Helper()
	sr, err := sellrequest.NewSellRequest(b.sellerID, b.category, b.title, b.description, b.desiredPrice)
	require.NoError(t, err)
	sr.Status = b.status
	if b.status != sellrequest.StatusOpen {
		now := time.Now().UTC()
		sr.ClosedAt = &now
	}
	return sr
}

// OfferBuilder builds offers for tests
type OfferBuilder struct {
	sellRequestID uuid.UUID
	wholesalerID  uuid.UUID
	price         values.Money
	message       string
	status        offer.Status
}

func NewOffer() *OfferBuilder {
	return &OfferBuilder{
		sellRequestID: uuid.New(),
		wholesalerID:  uuid.New(),
		price:         values.MustNewMoneyFromInt(400000, values.KRW),
		message:       "can pick up this week",
		status:        offer.StatusPending,
	}
}

func (b *OfferBuilder) ForSellRequest(id uuid.UUID) *OfferBuilder {
	b.sellRequestID = id
	return b
}

func (b *OfferBuilder) WithWholesaler(id uuid.UUID) *OfferBuilder {
	b.wholesalerID = id
	return b
}

func (b *OfferBuilder) WithPrice(amount int64) *OfferBuilder {
	b.price = values.MustNewMoneyFromInt(amount, values.KRW)
	return b
}

func (b *OfferBuilder) WithStatus(status offer.Status) *OfferBuilder {
	b.status = status
	return b
}

func (b *OfferBuilder) Build(t *testing.T) *offer.Offer {
	t.Helper()
	o, err := offer.NewOffer(b.sellRequestID, b.wholesalerID, b.price, b.message)
	require.NoError(t, err)
	o.Status = b.status
	if b.status != offer.StatusPending && b.status != offer.StatusWithdrawn {
		now := time.Now().UTC()
		o.ResolvedAt = &now
	}
	if b.status == offer.StatusWon {
		o.IsSelected = true
	}
	return o
}

// TransactionBuilder builds transactions for tests
type TransactionBuilder struct {
	sellRequestID   uuid.UUID
	purchaseOfferID uuid.UUID
	wholesalerID    uuid.UUID
	sellerID        uuid.UUID
	status          transaction.Status
}

func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{
		sellRequestID:   uuid.New(),
		purchaseOfferID: uuid.New(),
		wholesalerID:    uuid.New(),
		sellerID:        uuid.New(),
		status:          transaction.StatusInProgress,
	}
}

func (b *TransactionBuilder) ForSellRequest(id uuid.UUID) *TransactionBuilder {
	b.sellRequestID = id
	return b
}

func (b *TransactionBuilder) ForOffer(id uuid.UUID) *TransactionBuilder {
	b.purchaseOfferID = id
	return b
}

func (b *TransactionBuilder) WithWholesaler(id uuid.UUID) *TransactionBuilder {
	b.wholesalerID = id
	return b
}

func (b *TransactionBuilder) WithSeller(id uuid.UUID) *TransactionBuilder {
	b.sellerID = id
	return b
}

func (b *TransactionBuilder) WithStatus(status transaction.Status) *TransactionBuilder {
	b.status = status
	return b
}

func (b *TransactionBuilder) Build(t *testing.T) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewTransaction(b.sellRequestID, b.purchaseOfferID, b.wholesalerID, b.sellerID)
	require.NoError(t, err)
	tx.Status = b.status
	return tx
}
