package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
	"github.com/recomarket/recomarket-backend/internal/service/auction"
)

// offerRepository implements auction.OfferRepository using PostgreSQL
type offerRepository struct {
	db queryer

	listPageSize int
}

// defaultListPageSize bounds wholesaler offer listings when no page size is
// configured.
const defaultListPageSize = 100

// NewOfferRepository creates a new offer repository. listPageSize caps
// ListByWholesaler results; zero falls back to the default.
func NewOfferRepository(db *sql.DB, listPageSize int) auction.OfferRepository {
	if listPageSize <= 0 {
		listPageSize = defaultListPageSize
	}
	return &offerRepository{db: db, listPageSize: listPageSize}
}

// NewOfferRepositoryWithTx creates a new offer repository bound to a transaction
func NewOfferRepositoryWithTx(tx *sql.Tx) auction.OfferRepository {
	return &offerRepository{db: tx, listPageSize: defaultListPageSize}
}

// CreatePending inserts a PENDING offer iff the parent sell request is still
// OPEN at write time. The SELECT takes a row lock on the parent (FOR NO KEY
// UPDATE), so an insert racing a cancel or award blocks until that
// transaction commits and then re-reads the status: the offer either lands
// before the cascade and is swept by it, or fails with ErrParentNotOpen. The
// pending-uniqueness rule is a partial unique index (uq_offers_one_pending),
// surfaced as auction.ErrDuplicatePending.
func (r *offerRepository) CreatePending(ctx context.Context, o *offer.Offer) error {
	query := `
		INSERT INTO offers (
			id, sell_request_id, wholesaler_id, price, message,
			is_selected, status, created_at, updated_at
		)
		SELECT $1, sr.id, $3, $4, $5, FALSE, 'pending', $6, $7
		FROM sell_requests sr
		WHERE sr.id = $2 AND sr.status = 'open'
		FOR NO KEY UPDATE OF sr
	`

	result, err := r.db.ExecContext(ctx, query,
		o.ID, o.SellRequestID, o.WholesalerID, o.Price.Amount(), o.Message,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return auction.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create offer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return auction.ErrParentNotOpen
	}

	return nil
}

// GetByID retrieves an offer by ID
func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	query := offerSelect + ` WHERE id = $1`

	o, err := scanOffer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return o, nil
}

// ListBySellRequest returns non-withdrawn offers, submission order ascending
func (r *offerRepository) ListBySellRequest(ctx context.Context, sellRequestID uuid.UUID) ([]*offer.Offer, error) {
	query := offerSelect + `
		WHERE sell_request_id = $1
		AND status <> 'withdrawn'
		ORDER BY created_at ASC, id ASC
	`

	return r.queryOffers(ctx, query, sellRequestID)
}

// ListByWholesaler returns a wholesaler's offers, newest first
func (r *offerRepository) ListByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]*offer.Offer, error) {
	query := offerSelect + `
		WHERE wholesaler_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryOffers(ctx, query, wholesalerID, r.listPageSize)
}

// UpdatePriceIfPending changes the price iff the offer is still PENDING
func (r *offerRepository) UpdatePriceIfPending(ctx context.Context, id uuid.UUID, price values.Money) (bool, error) {
	query := `
		UPDATE offers
		SET price = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, price.Amount())
	if err != nil {
		return false, fmt.Errorf("failed to update offer price: %w", err)
	}
	return oneRowAffected(result)
}

// ResolveIfPending transitions PENDING → to, optionally selecting the offer
func (r *offerRepository) ResolveIfPending(ctx context.Context, id uuid.UUID, to offer.Status, selected bool, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE offers
		SET status = $2, is_selected = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, to.String(), selected, resolvedAt)
	if err != nil {
		return false, fmt.Errorf("failed to resolve offer: %w", err)
	}
	return oneRowAffected(result)
}

// ResolvePendingForRequest fans a resolution out to every PENDING offer on
// the sell request except exceptID
func (r *offerRepository) ResolvePendingForRequest(ctx context.Context, sellRequestID uuid.UUID, to offer.Status, exceptID uuid.UUID, resolvedAt time.Time) (int, error) {
	query := `
		UPDATE offers
		SET status = $2, resolved_at = $3, updated_at = $3
		WHERE sell_request_id = $1
		AND status = 'pending'
		AND ($4::uuid IS NULL OR id <> $4)
	`

	var except interface{}
	if exceptID != uuid.Nil {
		except = exceptID
	}

	result, err := r.db.ExecContext(ctx, query, sellRequestID, to.String(), resolvedAt, except)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve pending offers: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// RevertResolution returns WON/LOST offers on the sell request to PENDING
func (r *offerRepository) RevertResolution(ctx context.Context, sellRequestID uuid.UUID) (int, error) {
	query := `
		UPDATE offers
		SET status = 'pending', is_selected = FALSE, resolved_at = NULL, updated_at = NOW()
		WHERE sell_request_id = $1
		AND status IN ('won', 'lost')
	`

	result, err := r.db.ExecContext(ctx, query, sellRequestID)
	if err != nil {
		return 0, fmt.Errorf("failed to revert offer resolution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

const offerSelect = `
	SELECT
		id, sell_request_id, wholesaler_id, price, message,
		is_selected, status, resolved_at, created_at, updated_at
	FROM offers
`

func (r *offerRepository) queryOffers(ctx context.Context, query string, args ...interface{}) ([]*offer.Offer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return offers, nil
}

// scanOffer scans a database row into an Offer struct
func scanOffer(row rowScanner) (*offer.Offer, error) {
	var o offer.Offer
	var statusStr string
	var priceStr string
	var resolvedAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.SellRequestID, &o.WholesalerID, &priceStr, &o.Message,
		&o.IsSelected, &statusStr, &resolvedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	price, err := values.NewMoneyFromString(priceStr, values.KRW)
	if err != nil {
		return nil, fmt.Errorf("failed to scan price: %w", err)
	}
	o.Price = price

	o.Status = offer.ParseStatus(statusStr)
	if resolvedAt.Valid {
		o.ResolvedAt = &resolvedAt.Time
	}

	return &o, nil
}
