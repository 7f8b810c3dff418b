package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recomarket/recomarket-backend/internal/service/auction"
)

// unitOfWork runs a function against transaction-scoped repositories
type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a unit of work backed by database transactions
func NewUnitOfWork(db *sql.DB) auction.UnitOfWork {
	return &unitOfWork{db: db}
}

// Execute runs fn inside a single database transaction. All repository writes
// made through the provided set commit or roll back together. A failed
// rollback is reported as *auction.PartialApplyError so the caller can
// compensate.
func (u *unitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx auction.RepositorySet) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	set := auction.RepositorySet{
		SellRequests: NewSellRequestRepositoryWithTx(tx),
		Offers:       NewOfferRepositoryWithTx(tx),
		Transactions: NewTransactionRepositoryWithTx(tx),
	}

	if err := fn(ctx, set); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return &auction.PartialApplyError{
				Cause: fmt.Errorf("rollback failed after %w: %v", err, rbErr),
			}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// A failed commit leaves nothing applied, so no compensation is needed.
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
