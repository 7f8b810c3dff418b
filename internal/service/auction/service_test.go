package auction

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

func TestOpenSellRequest(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	t.Run("creates an open request", func(t *testing.T) {
		sellerID := uuid.New()
		sr, err := svc.OpenSellRequest(ctx, &OpenSellRequestRequest{
			SellerID:     sellerID,
			Category:     values.CategoryComputer,
			Title:        "ThinkPad X1 Carbon Gen 11",
			DesiredPrice: "900000",
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, sr.ID)
		assert.Equal(t, sellerID, sr.SellerID)
		assert.Equal(t, sellrequest.StatusOpen, sr.Status)
		assert.Nil(t, sr.SelectedWholesalerID)
		assert.Nil(t, sr.ClosedAt)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := svc.OpenSellRequest(ctx, &OpenSellRequestRequest{
			SellerID: uuid.New(),
			Category: values.CategoryComputer,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, domainErrors.GetStatusCode(err))
	})

	t.Run("rejects missing seller", func(t *testing.T) {
		_, err := svc.OpenSellRequest(ctx, &OpenSellRequestRequest{
			Category: values.CategoryComputer,
			Title:    "some device",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, domainErrors.GetStatusCode(err))
	})
}

func TestSubmitOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending offer", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())

		o, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  uuid.New(),
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
			Message:       "same-day pickup",
		})
		require.NoError(t, err)

		assert.Equal(t, offer.StatusPending, o.Status)
		assert.False(t, o.IsSelected)
		assert.Nil(t, o.ResolvedAt)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())

		_, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  uuid.New(),
			Price:         values.MustNewMoneyFromInt(0, values.KRW),
		})
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "INVALID_PRICE"))
	})

	t.Run("rejects unknown sell request", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: uuid.New(),
			WholesalerID:  uuid.New(),
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, domainErrors.GetStatusCode(err))
	})

	t.Run("rejects resolved sell request", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)
		_, err := svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.NoError(t, err)

		_, err = svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  uuid.New(),
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
		})
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "REQUEST_NOT_OPEN"))
		assert.Equal(t, http.StatusConflict, domainErrors.GetStatusCode(err))
	})

	t.Run("rejects second pending offer from same wholesaler", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		wholesalerID := uuid.New()

		_, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  wholesalerID,
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
		})
		require.NoError(t, err)

		_, err = svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  wholesalerID,
			Price:         values.MustNewMoneyFromInt(520000, values.KRW),
		})
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "DUPLICATE_OFFER"))
		assert.Equal(t, http.StatusConflict, domainErrors.GetStatusCode(err))
	})

	t.Run("allows a new offer after withdrawing", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		wholesalerID := uuid.New()

		first, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  wholesalerID,
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
		})
		require.NoError(t, err)

		_, err = svc.WithdrawOffer(ctx, first.ID, wholesalerID)
		require.NoError(t, err)

		second, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  wholesalerID,
			Price:         values.MustNewMoneyFromInt(520000, values.KRW),
		})
		require.NoError(t, err)
		assert.Equal(t, offer.StatusPending, second.Status)
	})

	t.Run("rejects seller bidding on own request", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)

		_, err := svc.SubmitOffer(ctx, &SubmitOfferRequest{
			SellRequestID: sr.ID,
			WholesalerID:  sellerID,
			Price:         values.MustNewMoneyFromInt(500000, values.KRW),
		})
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "INVALID_OFFER"))
	})
}

func TestUpdateOfferPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("updates a pending offer", func(t *testing.T) {
		svc, store := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		o := submitOffer(t, svc, sr.ID, 500000)

		updated, err := svc.UpdateOfferPrice(ctx, o.ID, o.WholesalerID, values.MustNewMoneyFromInt(550000, values.KRW))
		require.NoError(t, err)
		assert.True(t, updated.Price.Equal(values.MustNewMoneyFromInt(550000, values.KRW)))

		stored, err := store.GetOfferByID(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, stored.Price.Equal(values.MustNewMoneyFromInt(550000, values.KRW)))
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		o := submitOffer(t, svc, sr.ID, 500000)

		_, err := svc.UpdateOfferPrice(ctx, o.ID, uuid.New(), values.MustNewMoneyFromInt(550000, values.KRW))
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "NOT_OWNER"))
	})

	t.Run("rejects resolved offer", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)
		o := submitOffer(t, svc, sr.ID, 500000)

		_, err := svc.AwardOffer(ctx, sr.ID, o.ID, sellerID)
		require.NoError(t, err)

		_, err = svc.UpdateOfferPrice(ctx, o.ID, o.WholesalerID, values.MustNewMoneyFromInt(550000, values.KRW))
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "OFFER_ALREADY_RESOLVED"))
	})
}

func TestWithdrawOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("withdraws a pending offer", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		o := submitOffer(t, svc, sr.ID, 500000)

		withdrawn, err := svc.WithdrawOffer(ctx, o.ID, o.WholesalerID)
		require.NoError(t, err)
		assert.Equal(t, offer.StatusWithdrawn, withdrawn.Status)
	})

	t.Run("rejects double withdraw", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		o := submitOffer(t, svc, sr.ID, 500000)

		_, err := svc.WithdrawOffer(ctx, o.ID, o.WholesalerID)
		require.NoError(t, err)

		_, err = svc.WithdrawOffer(ctx, o.ID, o.WholesalerID)
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "OFFER_ALREADY_RESOLVED"))
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())
		o := submitOffer(t, svc, sr.ID, 500000)

		_, err := svc.WithdrawOffer(ctx, o.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "NOT_OWNER"))
	})
}

func TestCancelSellRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels and withdraws pending offers", func(t *testing.T) {
		svc, store := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)
		o1 := submitOffer(t, svc, sr.ID, 500000)
		o2 := submitOffer(t, svc, sr.ID, 520000)

		cancelled, err := svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.NoError(t, err)
		assert.Equal(t, sellrequest.StatusCancelled, cancelled.Status)
		assert.Nil(t, cancelled.SelectedWholesalerID)

		for _, id := range []uuid.UUID{o1.ID, o2.ID} {
			stored, err := store.GetOfferByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, offer.StatusWithdrawn, stored.Status)
		}
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		svc, _ := newTestService()
		sr := openSellRequest(t, svc, uuid.New())

		_, err := svc.CancelSellRequest(ctx, sr.ID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, domainErrors.GetStatusCode(err))
	})

	t.Run("rejects double cancel", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)

		_, err := svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.NoError(t, err)

		_, err = svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "INVALID_TRANSITION"))
		assert.Equal(t, http.StatusConflict, domainErrors.GetStatusCode(err))
	})

	t.Run("rejects cancel after award", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)
		o := submitOffer(t, svc, sr.ID, 500000)

		_, err := svc.AwardOffer(ctx, sr.ID, o.ID, sellerID)
		require.NoError(t, err)

		_, err = svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "INVALID_TRANSITION"))
	})
}

func TestCloseWithoutWinner(t *testing.T) {
	ctx := context.Background()

	svc, store := newTestService()
	sellerID := uuid.New()
	sr := openSellRequest(t, svc, sellerID)
	o := submitOffer(t, svc, sr.ID, 500000)

	closed, err := svc.CloseWithoutWinner(ctx, sr.ID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, sellrequest.StatusClosed, closed.Status)
	assert.Nil(t, closed.SelectedWholesalerID)

	stored, err := store.GetOfferByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusLost, stored.Status)
	assert.False(t, stored.IsSelected)

	_, err = store.GetByOffer(ctx, o.ID)
	assert.Error(t, err, "a no-winner close must not create a transaction")
}

func TestUpdateDesiredPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("updates an open request", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)

		updated, err := svc.UpdateDesiredPrice(ctx, sr.ID, sellerID, "750000")
		require.NoError(t, err)
		assert.Equal(t, "750000", updated.DesiredPrice)
	})

	t.Run("rejects resolved request", func(t *testing.T) {
		svc, _ := newTestService()
		sellerID := uuid.New()
		sr := openSellRequest(t, svc, sellerID)
		_, err := svc.CancelSellRequest(ctx, sr.ID, sellerID)
		require.NoError(t, err)

		_, err = svc.UpdateDesiredPrice(ctx, sr.ID, sellerID, "750000")
		require.Error(t, err)
		assert.True(t, domainErrors.IsCode(err, "REQUEST_NOT_OPEN"))
	})
}

func TestListOffers(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService()
	sr := openSellRequest(t, svc, uuid.New())
	first := submitOffer(t, svc, sr.ID, 500000)
	second := submitOffer(t, svc, sr.ID, 520000)
	withdrawn := submitOffer(t, svc, sr.ID, 480000)

	_, err := svc.WithdrawOffer(ctx, withdrawn.ID, withdrawn.WholesalerID)
	require.NoError(t, err)

	offers, err := svc.ListOffers(ctx, sr.ID)
	require.NoError(t, err)

	require.Len(t, offers, 2, "withdrawn offers are excluded")
	assert.Equal(t, first.ID, offers[0].ID, "submission order, oldest first")
	assert.Equal(t, second.ID, offers[1].ID)
}

func TestListSellRequests(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService()
	sellerID := uuid.New()
	openSellRequest(t, svc, sellerID)
	openSellRequest(t, svc, sellerID)
	other := openSellRequest(t, svc, uuid.New())

	_, err := svc.CancelSellRequest(ctx, other.ID, other.SellerID)
	require.NoError(t, err)

	t.Run("filters by seller", func(t *testing.T) {
		requests, err := svc.ListSellRequests(ctx, &SellRequestFilter{SellerID: &sellerID})
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := sellrequest.StatusCancelled
		requests, err := svc.ListSellRequests(ctx, &SellRequestFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, other.ID, requests[0].ID)
	})

	t.Run("nil filter lists everything", func(t *testing.T) {
		requests, err := svc.ListSellRequests(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, requests, 3)
	})
}

func TestListSellRequests_ConfiguredDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	set := store.repoSet()
	svc := NewService(set.SellRequests, set.Offers, set.Transactions,
		&memUnitOfWork{store: store}, nil, nil, 2)

	sellerID := uuid.New()
	openSellRequest(t, svc, sellerID)
	openSellRequest(t, svc, sellerID)
	openSellRequest(t, svc, sellerID)

	requests, err := svc.ListSellRequests(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, requests, 2)

	t.Run("explicit limit wins over the default", func(t *testing.T) {
		requests, err := svc.ListSellRequests(ctx, &SellRequestFilter{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, requests, 3)
	})
}

// A submission racing a cancel must never leave a live offer on a request
// that ends up CANCELLED. The parent status check and the withdraw cascade
// serialize: the offer either lands before the cascade and is swept by it,
// or the submission observes the cancel and fails with REQUEST_NOT_OPEN.
func TestSubmitOffer_RacingCancelNeverOrphansOffer(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		svc, store := newTestService()
		sellerID := uuid.New()
		r := openSellRequest(t, svc, sellerID)

		var wg sync.WaitGroup
		wg.Add(2)
		var submitErr, cancelErr error
		go func() {
			defer wg.Done()
			_, submitErr = svc.SubmitOffer(ctx, &SubmitOfferRequest{
				SellRequestID: r.ID,
				WholesalerID:  uuid.New(),
				Price:         values.MustNewMoneyFromInt(650000, values.KRW),
			})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = svc.CancelSellRequest(ctx, r.ID, sellerID)
		}()
		wg.Wait()

		require.NoError(t, cancelErr)
		if submitErr != nil {
			assert.True(t, domainErrors.IsCode(submitErr, "REQUEST_NOT_OPEN"))
		}

		stored, err := store.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, sellrequest.StatusCancelled, stored.Status)

		live, err := store.ListBySellRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Empty(t, live, "cancelled request must not carry a live offer")
	}
}
