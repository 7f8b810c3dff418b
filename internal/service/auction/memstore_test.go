package auction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
	"github.com/recomarket/recomarket-backend/internal/domain/transaction"
	"github.com/recomarket/recomarket-backend/internal/domain/values"
)

// memStore is an in-memory implementation of the repository interfaces with
// the same conditional-write semantics the SQL layer has. One mutex guards
// all state, so each conditional write is atomic and racing awards serialize
// exactly like they do against the database.
type memStore struct {
	mu sync.Mutex
	// uowMu serializes whole units of work, mirroring the serializable
	// transactions the SQL layer gets from conditional writes plus row locks.
	uowMu        sync.Mutex
	sellRequests map[uuid.UUID]*sellrequest.SellRequest
	offers       map[uuid.UUID]*offer.Offer
	transactions map[uuid.UUID]*transaction.Transaction

	// failCreateTransaction makes the transaction insert fail, forcing the
	// unit of work down its error path.
	failCreateTransaction bool
	// partialApply makes a failed unit of work report *PartialApplyError
	// without restoring state, imitating a store that cannot roll back.
	partialApply bool
}

func newMemStore() *memStore {
	return &memStore{
		sellRequests: make(map[uuid.UUID]*sellrequest.SellRequest),
		offers:       make(map[uuid.UUID]*offer.Offer),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}
}

func cloneSellRequest(r *sellrequest.SellRequest) *sellrequest.SellRequest {
	c := *r
	if r.SelectedWholesalerID != nil {
		id := *r.SelectedWholesalerID
		c.SelectedWholesalerID = &id
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func cloneOffer(o *offer.Offer) *offer.Offer {
	c := *o
	if o.ResolvedAt != nil {
		t := *o.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func cloneTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.CancelledAt != nil {
		ts := *t.CancelledAt
		c.CancelledAt = &ts
	}
	return &c
}

// SellRequestRepository

func (m *memStore) Create(ctx context.Context, r *sellrequest.SellRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellRequests[r.ID] = cloneSellRequest(r)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*sellrequest.SellRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sellRequests[id]
	if !ok {
		return nil, fmt.Errorf("sell request %s not found", id)
	}
	return cloneSellRequest(r), nil
}

func (m *memStore) List(ctx context.Context, filter *SellRequestFilter) ([]*sellrequest.SellRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*sellrequest.SellRequest
	for _, r := range m.sellRequests {
		if filter.SellerID != nil && r.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && r.Category != *filter.Category {
			continue
		}
		out = append(out, cloneSellRequest(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CloseIfOpen(ctx context.Context, id uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sellRequests[id]
	if !ok || r.Status != sellrequest.StatusOpen {
		return false, nil
	}
	r.Status = sellrequest.StatusClosed
	r.SelectedWholesalerID = winnerID
	r.ClosedAt = &closedAt
	r.UpdatedAt = closedAt
	return true, nil
}

func (m *memStore) CancelIfOpen(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sellRequests[id]
	if !ok || r.Status != sellrequest.StatusOpen {
		return false, nil
	}
	r.Status = sellrequest.StatusCancelled
	r.ClosedAt = &closedAt
	r.UpdatedAt = closedAt
	return true, nil
}

func (m *memStore) UpdateDesiredPriceIfOpen(ctx context.Context, id uuid.UUID, desiredPrice string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sellRequests[id]
	if !ok || r.Status != sellrequest.StatusOpen {
		return false, nil
	}
	r.DesiredPrice = desiredPrice
	return true, nil
}

func (m *memStore) ReopenFromFailedAward(ctx context.Context, id, wholesalerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sellRequests[id]
	if !ok || r.Status != sellrequest.StatusClosed {
		return false, nil
	}
	if r.SelectedWholesalerID == nil || *r.SelectedWholesalerID != wholesalerID {
		return false, nil
	}
	r.Status = sellrequest.StatusOpen
	r.SelectedWholesalerID = nil
	r.ClosedAt = nil
	return true, nil
}

// OfferRepository

// CreatePending checks the parent status under the store lock, matching the
// SQL insert that locks the parent row before re-reading its status: an
// insert racing a cancel or award either lands before the cascade or fails
// with ErrParentNotOpen, never both.
func (m *memStore) CreatePending(ctx context.Context, o *offer.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.sellRequests[o.SellRequestID]
	if !ok || parent.Status != sellrequest.StatusOpen {
		return ErrParentNotOpen
	}
	for _, existing := range m.offers {
		if existing.SellRequestID == o.SellRequestID &&
			existing.WholesalerID == o.WholesalerID &&
			existing.Status == offer.StatusPending {
			return ErrDuplicatePending
		}
	}
	m.offers[o.ID] = cloneOffer(o)
	return nil
}

func (m *memStore) GetOfferByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s not found", id)
	}
	return cloneOffer(o), nil
}

func (m *memStore) ListBySellRequest(ctx context.Context, sellRequestID uuid.UUID) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*offer.Offer
	for _, o := range m.offers {
		if o.SellRequestID == sellRequestID && o.Status != offer.StatusWithdrawn {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) ListByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*offer.Offer
	for _, o := range m.offers {
		if o.WholesalerID == wholesalerID {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) UpdatePriceIfPending(ctx context.Context, id uuid.UUID, price values.Money) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.Status != offer.StatusPending {
		return false, nil
	}
	o.Price = price
	return true, nil
}

func (m *memStore) ResolveIfPending(ctx context.Context, id uuid.UUID, to offer.Status, selected bool, resolvedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.Status != offer.StatusPending {
		return false, nil
	}
	o.Status = to
	o.IsSelected = selected
	o.ResolvedAt = &resolvedAt
	o.UpdatedAt = resolvedAt
	return true, nil
}

func (m *memStore) ResolvePendingForRequest(ctx context.Context, sellRequestID uuid.UUID, to offer.Status, exceptID uuid.UUID, resolvedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, o := range m.offers {
		if o.SellRequestID != sellRequestID || o.Status != offer.StatusPending {
			continue
		}
		if exceptID != uuid.Nil && o.ID == exceptID {
			continue
		}
		o.Status = to
		o.ResolvedAt = &resolvedAt
		o.UpdatedAt = resolvedAt
		n++
	}
	return n, nil
}

func (m *memStore) RevertResolution(ctx context.Context, sellRequestID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, o := range m.offers {
		if o.SellRequestID != sellRequestID {
			continue
		}
		if o.Status == offer.StatusWon || o.Status == offer.StatusLost {
			o.Status = offer.StatusPending
			o.IsSelected = false
			o.ResolvedAt = nil
			n++
		}
	}
	return n, nil
}

// TransactionRepository

func (m *memStore) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateTransaction {
		return fmt.Errorf("transaction insert failed")
	}
	m.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (m *memStore) GetByOffer(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.PurchaseOfferID == offerID {
			return cloneTransaction(t), nil
		}
	}
	return nil, fmt.Errorf("transaction for offer %s not found", offerID)
}

func (m *memStore) DeleteBySellRequest(ctx context.Context, sellRequestID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.transactions {
		if t.SellRequestID == sellRequestID {
			delete(m.transactions, id)
		}
	}
	return nil
}

// Adapters: memStore carries two GetByID-shaped methods, so the repository
// interfaces are satisfied through these thin views.

type memSellRequests struct{ *memStore }
type memOffers struct{ *memStore }
type memTransactions struct{ *memStore }

func (v memOffers) GetByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	return v.GetOfferByID(ctx, id)
}

func (v memTransactions) Create(ctx context.Context, t *transaction.Transaction) error {
	return v.CreateTransaction(ctx, t)
}

func (m *memStore) repoSet() RepositorySet {
	return RepositorySet{
		SellRequests: memSellRequests{m},
		Offers:       memOffers{m},
		Transactions: memTransactions{m},
	}
}

// memUnitOfWork runs fn against the shared store. On error it restores the
// pre-execution snapshot unless partialApply is set, in which case the dirty
// state stays and the error surfaces as *PartialApplyError.
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx RepositorySet) error) error {
	u.store.uowMu.Lock()
	defer u.store.uowMu.Unlock()

	snapshot := u.store.snapshot()

	if err := fn(ctx, u.store.repoSet()); err != nil {
		if u.store.partialApply {
			return &PartialApplyError{Cause: err}
		}
		u.store.restore(snapshot)
		return err
	}
	return nil
}

type memSnapshot struct {
	sellRequests map[uuid.UUID]*sellrequest.SellRequest
	offers       map[uuid.UUID]*offer.Offer
	transactions map[uuid.UUID]*transaction.Transaction
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		sellRequests: make(map[uuid.UUID]*sellrequest.SellRequest, len(m.sellRequests)),
		offers:       make(map[uuid.UUID]*offer.Offer, len(m.offers)),
		transactions: make(map[uuid.UUID]*transaction.Transaction, len(m.transactions)),
	}
	for id, r := range m.sellRequests {
		s.sellRequests[id] = cloneSellRequest(r)
	}
	for id, o := range m.offers {
		s.offers[id] = cloneOffer(o)
	}
	for id, t := range m.transactions {
		s.transactions[id] = cloneTransaction(t)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellRequests = s.sellRequests
	m.offers = s.offers
	m.transactions = s.transactions
}

// newTestService wires a service over a fresh memStore
func newTestService() (Service, *memStore) {
	store := newMemStore()
	set := store.repoSet()
	svc := NewService(
		set.SellRequests,
		set.Offers,
		set.Transactions,
		&memUnitOfWork{store: store},
		nil,
		nil,
		0,
	)
	return svc, store
}
