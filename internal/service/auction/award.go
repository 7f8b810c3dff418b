package auction

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/recomarket/recomarket-backend/internal/domain/errors"
	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// AwardOffer selects the winning offer for a sell request. The whole effect
// (winner WON+selected, other live offers LOST, sell request CLOSED with the
// winner recorded, transaction created IN_PROGRESS) runs inside one unit of
// work. The close is a conditional write on status=OPEN, so two racing award
// attempts serialize: the first wins, the second observes REQUEST_NOT_OPEN.
func (s *service) AwardOffer(ctx context.Context, sellRequestID, offerID, requesterID uuid.UUID) (*AwardResult, error) {
	ctx, span := s.tracer.Start(ctx, "auction.AwardOffer",
		trace.WithAttributes(
			attribute.String("sell_request_id", sellRequestID.String()),
			attribute.String("offer_id", offerID.String()),
		),
	)
	defer span.End()

	result, err := s.awardOffer(ctx, sellRequestID, offerID, requesterID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("losing_offers", result.LosingOffers))
	return result, nil
}

func (s *service) awardOffer(ctx context.Context, sellRequestID, offerID, requesterID uuid.UUID) (*AwardResult, error) {
	start := time.Now()

	r, err := s.sellRequests.GetByID(ctx, sellRequestID)
	if err != nil {
		return nil, errors.NewNotFoundError("sell request").WithCause(err)
	}

	if !r.IsOwnedBy(requesterID) {
		return nil, errors.NewNotOwnerError("only the owning seller may award an offer")
	}
	if !r.IsOpen() {
		return nil, errors.NewRequestNotOpenError("sell request has already been closed or cancelled")
	}

	winning, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, errors.NewNotFoundError("offer").WithCause(err)
	}
	if winning.SellRequestID != sellRequestID {
		return nil, errors.NewInvalidOfferError("offer does not belong to this sell request")
	}
	if winning.Status != offer.StatusPending {
		return nil, errors.NewInvalidOfferError("offer is not pending")
	}

	txn, err := transaction.NewTransaction(sellRequestID, offerID, winning.WholesalerID, r.SellerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var losing int
	err = s.uow.Execute(ctx, func(ctx context.Context, tx RepositorySet) error {
		// The conditional close is the serialization point for the whole
		// award; everything after it runs on a request this caller closed.
		closed, err := tx.SellRequests.CloseIfOpen(ctx, sellRequestID, &winning.WholesalerID, now)
		if err != nil {
			return errors.NewInternalError("failed to close sell request").WithCause(err)
		}
		if !closed {
			return errors.NewRequestNotOpenError("sell request has already been closed or cancelled")
		}

		won, err := tx.Offers.ResolveIfPending(ctx, offerID, offer.StatusWon, true, now)
		if err != nil {
			return errors.NewInternalError("failed to mark winning offer").WithCause(err)
		}
		if !won {
			// The offer was withdrawn between the precondition read and the
			// write. Rolling back reopens the request untouched.
			return errors.NewInvalidOfferError("offer is not pending")
		}

		losing, err = tx.Offers.ResolvePendingForRequest(ctx, sellRequestID, offer.StatusLost, offerID, now)
		if err != nil {
			return errors.NewInternalError("failed to resolve losing offers").WithCause(err)
		}

		if err := tx.Transactions.Create(ctx, txn); err != nil {
			return errors.NewInternalError("failed to create transaction").WithCause(err)
		}
		return nil
	})
	if err != nil {
		var partial *PartialApplyError
		if stderrors.As(err, &partial) {
			return nil, s.compensateAward(ctx, sellRequestID, winning.WholesalerID, err)
		}
		if errors.IsCode(err, "REQUEST_NOT_OPEN") && s.metrics != nil {
			s.metrics.RecordAwardConflict(ctx, sellRequestID)
		}
		return nil, err
	}

	if closeErr := r.Close(winning.WholesalerID); closeErr != nil {
		r, _ = s.sellRequests.GetByID(ctx, sellRequestID)
	}
	if wonErr := winning.MarkWon(); wonErr != nil {
		winning, _ = s.offers.GetByID(ctx, offerID)
	}

	if s.notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		go s.notifier.NotifySellRequestClosed(notifyCtx, r)
		go s.notifier.NotifyTransactionCreated(notifyCtx, txn)
	}
	if s.metrics != nil {
		s.metrics.RecordAward(ctx, sellRequestID, time.Since(start))
	}

	return &AwardResult{
		SellRequest:  r,
		WinningOffer: winning,
		LosingOffers: losing,
		Transaction:  txn,
	}, nil
}

// compensateAward undoes a half-applied award: transaction removed, offers
// back to PENDING, sell request reopened. Every step is conditional, so
// already-reverted or never-applied writes are no-ops. The caller always
// surfaces PartialAwardError; compensation only decides how loudly.
func (s *service) compensateAward(ctx context.Context, sellRequestID, wholesalerID uuid.UUID, cause error) error {
	var failed []string

	if err := s.transactions.DeleteBySellRequest(ctx, sellRequestID); err != nil {
		failed = append(failed, "transaction")
	}
	if _, err := s.offers.RevertResolution(ctx, sellRequestID); err != nil {
		failed = append(failed, "offers")
	}
	if _, err := s.sellRequests.ReopenFromFailedAward(ctx, sellRequestID, wholesalerID); err != nil {
		failed = append(failed, "sell_request")
	}

	if len(failed) > 0 {
		slog.ErrorContext(ctx, "award compensation incomplete",
			"sell_request_id", sellRequestID,
			"failed_steps", failed,
		)
		return errors.NewPartialAwardError("award could not be applied and compensation is incomplete").
			WithDetails(map[string]interface{}{"failed_steps": failed}).
			WithCause(cause)
	}

	slog.WarnContext(ctx, "award rolled back by compensation",
		"sell_request_id", sellRequestID,
	)
	return errors.NewPartialAwardError("award could not be applied; all changes were rolled back").WithCause(cause)
}

func isErr(err, target error) bool {
	return stderrors.Is(err, target)
}
