package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/service/auction"
)

// sellRequestRepository implements auction.SellRequestRepository using PostgreSQL
type sellRequestRepository struct {
	db queryer
}

// NewSellRequestRepository creates a new sell request repository
func NewSellRequestRepository(db *sql.DB) auction.SellRequestRepository {
	return &sellRequestRepository{db: db}
}

// NewSellRequestRepositoryWithTx creates a new sell request repository bound to a transaction
func NewSellRequestRepositoryWithTx(tx *sql.Tx) auction.SellRequestRepository {
	return &sellRequestRepository{db: tx}
}

// Create inserts a new sell request
func (r *sellRequestRepository) Create(ctx context.Context, sr *sellrequest.SellRequest) error {
	query := `
		INSERT INTO sell_requests (
			id, seller_id, category, title, description, desired_price,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		sr.ID, sr.SellerID, sr.Category, sr.Title, sr.Description, sr.DesiredPrice,
		sr.Status.String(), sr.CreatedAt, sr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sell request: %w", err)
	}

	return nil
}

// GetByID retrieves a sell request by ID
func (r *sellRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*sellrequest.SellRequest, error) {
	query := sellRequestSelect + ` WHERE id = $1`

	sr, err := scanSellRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sell request not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get sell request: %w", err)
	}
	return sr, nil
}

// List retrieves sell requests matching the filter, newest first
func (r *sellRequestRepository) List(ctx context.Context, filter *auction.SellRequestFilter) ([]*sellrequest.SellRequest, error) {
	query := sellRequestSelect + ` WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.SellerID != nil {
		query += fmt.Sprintf(" AND seller_id = $%d", argNum)
		args = append(args, *filter.SellerID)
		argNum++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status.String())
		argNum++
	}
	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, *filter.Category)
		argNum++
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sell requests: %w", err)
	}
	defer rows.Close()

	var requests []*sellrequest.SellRequest
	for rows.Next() {
		sr, err := scanSellRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sell request: %w", err)
		}
		requests = append(requests, sr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return requests, nil
}

// CloseIfOpen transitions OPEN → CLOSED iff the row is still open. A false
// return means another caller resolved the request first.
func (r *sellRequestRepository) CloseIfOpen(ctx context.Context, id uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	query := `
		UPDATE sell_requests
		SET status = 'closed', selected_wholesaler_id = $2, closed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.db.ExecContext(ctx, query, id, winnerID, closedAt)
	if err != nil {
		return false, fmt.Errorf("failed to close sell request: %w", err)
	}
	return oneRowAffected(result)
}

// CancelIfOpen transitions OPEN → CANCELLED iff the row is still open
func (r *sellRequestRepository) CancelIfOpen(ctx context.Context, id uuid.UUID, cancelledAt time.Time) (bool, error) {
	query := `
		UPDATE sell_requests
		SET status = 'cancelled', closed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.db.ExecContext(ctx, query, id, cancelledAt)
	if err != nil {
		return false, fmt.Errorf("failed to cancel sell request: %w", err)
	}
	return oneRowAffected(result)
}

// UpdateDesiredPriceIfOpen changes the desired price iff the row is still open
func (r *sellRequestRepository) UpdateDesiredPriceIfOpen(ctx context.Context, id uuid.UUID, desiredPrice string) (bool, error) {
	query := `
		UPDATE sell_requests
		SET desired_price = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.db.ExecContext(ctx, query, id, desiredPrice)
	if err != nil {
		return false, fmt.Errorf("failed to update desired price: %w", err)
	}
	return oneRowAffected(result)
}

// ReopenFromFailedAward undoes a close during award compensation. Scoped to
// the winner that was being recorded so an unrelated close is never reverted.
func (r *sellRequestRepository) ReopenFromFailedAward(ctx context.Context, id uuid.UUID, winnerID uuid.UUID) (bool, error) {
	query := `
		UPDATE sell_requests
		SET status = 'open', selected_wholesaler_id = NULL, closed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'closed' AND selected_wholesaler_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to reopen sell request: %w", err)
	}
	return oneRowAffected(result)
}

const sellRequestSelect = `
	SELECT
		id, seller_id, category, title, description, desired_price,
		status, selected_wholesaler_id, closed_at, created_at, updated_at
	FROM sell_requests
`

// scanSellRequest scans a database row into a SellRequest struct
func scanSellRequest(row rowScanner) (*sellrequest.SellRequest, error) {
	var sr sellrequest.SellRequest
	var statusStr string
	var selectedWholesalerID uuid.NullUUID
	var closedAt sql.NullTime

	err := row.Scan(
		&sr.ID, &sr.SellerID, &sr.Category, &sr.Title, &sr.Description, &sr.DesiredPrice,
		&statusStr, &selectedWholesalerID, &closedAt, &sr.CreatedAt, &sr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sr.Status = sellrequest.ParseStatus(statusStr)
	if selectedWholesalerID.Valid {
		sr.SelectedWholesalerID = &selectedWholesalerID.UUID
	}
	if closedAt.Valid {
		sr.ClosedAt = &closedAt.Time
	}

	return &sr, nil
}
