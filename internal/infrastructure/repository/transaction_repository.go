package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
)

// TransactionRepository implements transaction storage using PostgreSQL. It
// satisfies both auction.TransactionRepository and
// fulfillment.TransactionRepository.
type TransactionRepository struct {
	db queryer
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// NewTransactionRepositoryWithTx creates a new transaction repository bound to a transaction
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create stores a new transaction
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, sell_request_id, purchase_offer_id, wholesaler_id, seller_id,
			status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.SellRequestID, t.PurchaseOfferID, t.WholesalerID, t.SellerID,
		t.Status.String(), t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := transactionSelect + ` WHERE id = $1`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetByOffer returns the transaction referencing the offer
func (r *TransactionRepository) GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error) {
	query := transactionSelect + ` WHERE purchase_offer_id = $1`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, offerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get transaction by offer: %w", err)
	}
	return t, nil
}

// ResolveIfInProgress transitions IN_PROGRESS → to, stamping the matching
// terminal timestamp. Empty notes keep whatever is already stored, matching
// the entity's Complete/Cancel behavior.
func (r *TransactionRepository) ResolveIfInProgress(ctx context.Context, id uuid.UUID, to transaction.Status, notes string, resolvedAt time.Time) (bool, error) {
	var column string
	switch to {
	case transaction.StatusCompleted:
		column = "completed_at"
	case transaction.StatusCancelled:
		column = "cancelled_at"
	default:
		return false, fmt.Errorf("not a terminal transaction status: %s", to)
	}

	query := fmt.Sprintf(`
		UPDATE transactions
		SET status = $2, notes = COALESCE(NULLIF($3, ''), notes), %s = $4, updated_at = $4
		WHERE id = $1 AND status = 'in_progress'
	`, column)

	result, err := r.db.ExecContext(ctx, query, id, to.String(), notes, resolvedAt)
	if err != nil {
		return false, fmt.Errorf("failed to resolve transaction: %w", err)
	}
	return oneRowAffected(result)
}

// DeleteBySellRequest removes the transaction for a sell request. Used only
// when compensating a failed award.
func (r *TransactionRepository) DeleteBySellRequest(ctx context.Context, sellRequestID uuid.UUID) error {
	query := `DELETE FROM transactions WHERE sell_request_id = $1`

	_, err := r.db.ExecContext(ctx, query, sellRequestID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

const transactionSelect = `
	SELECT
		id, sell_request_id, purchase_offer_id, wholesaler_id, seller_id,
		status, notes, completed_at, cancelled_at, created_at, updated_at
	FROM transactions
`

// scanTransaction scans a database row into a Transaction struct
func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var statusStr string
	var completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.SellRequestID, &t.PurchaseOfferID, &t.WholesalerID, &t.SellerID,
		&statusStr, &t.Notes, &completedAt, &cancelledAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = transaction.ParseStatus(statusStr)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		t.CancelledAt = &cancelledAt.Time
	}

	return &t, nil
}
