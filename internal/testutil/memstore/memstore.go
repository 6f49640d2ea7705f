// Package memstore is an in-memory ledger implementing the repository ports,
// for service tests that should not need PostgreSQL.
package memstore

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/internal/domain/ports"
)

// Store holds every ledger table behind one mutex
type Store struct {
	mu             sync.Mutex
	responses      map[uuid.UUID]domain.GatewayResponse
	transactions   map[uuid.UUID]domain.GatewayTransaction
	paymentMethods map[uuid.UUID]domain.PaymentMethod
	order          map[uuid.UUID]int
	next           int

	// ResponseWrites counts Create and effective Update calls on responses
	ResponseWrites int
	// TxCount counts WithTransaction calls
	TxCount int
	// FailTransaction makes the next WithTransaction return this error without running fn
	FailTransaction error
}

// New creates an empty store
func New() *Store {
	return &Store{
		responses:      make(map[uuid.UUID]domain.GatewayResponse),
		transactions:   make(map[uuid.UUID]domain.GatewayTransaction),
		paymentMethods: make(map[uuid.UUID]domain.PaymentMethod),
		order:          make(map[uuid.UUID]int),
	}
}

var (
	_ ports.DBPort                  = (*Store)(nil)
	_ ports.ResponseRepository      = (*Responses)(nil)
	_ ports.TransactionRepository   = (*Transactions)(nil)
	_ ports.PaymentMethodRepository = (*PaymentMethods)(nil)
)

// GetDB has no pool behind it
func (s *Store) GetDB() *pgxpool.Pool { return nil }

// WithTransaction runs fn with a nil transaction; there is no rollback
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.mu.Lock()
	s.TxCount++
	failure := s.FailTransaction
	s.FailTransaction = nil
	s.mu.Unlock()

	if failure != nil {
		return failure
	}
	return fn(ctx, nil)
}

// Responses returns the response repository view
func (s *Store) Responses() *Responses { return &Responses{s} }

// Transactions returns the transaction repository view
func (s *Store) Transactions() *Transactions { return &Transactions{s} }

// PaymentMethods returns the payment method repository view
func (s *Store) PaymentMethods() *PaymentMethods { return &PaymentMethods{s} }

// AllResponses returns copies of every response, oldest first
func (s *Store) AllResponses() []*domain.GatewayResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.GatewayResponse, 0, len(s.responses))
	for _, r := range s.responses {
		r := r
		out = append(out, &r)
	}
	s.sortResponses(out)
	return out
}

// AllTransactions returns copies of every transaction, oldest first
func (s *Store) AllTransactions() []*domain.GatewayTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.GatewayTransaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		t := t
		out = append(out, &t)
	}
	s.sortTransactions(out)
	return out
}

// Responses implements ports.ResponseRepository
type Responses struct{ s *Store }

func (r *Responses) Create(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if response.ID == uuid.Nil {
		response.ID = uuid.New()
	}
	if response.UpdatedAt.IsZero() {
		response.UpdatedAt = response.CreatedAt
	}
	r.s.responses[response.ID] = *response
	r.s.track(response.ID)
	r.s.ResponseWrites++
	return nil
}

func (r *Responses) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.responses[id]
	if !ok {
		return nil, domain.ErrResponseNotFound
	}
	return &stored, nil
}

// GetForUpdate reads the latest stored row; the store has no row locks
func (r *Responses) GetForUpdate(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayResponse, error) {
	return r.GetByID(ctx, db, id)
}

func (r *Responses) ListByPayment(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID) ([]*domain.GatewayResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.GatewayResponse
	for _, stored := range r.s.responses {
		if stored.KBTenantID == tenantID && stored.KBPaymentID == paymentID {
			stored := stored
			out = append(out, &stored)
		}
	}
	r.s.sortResponses(out)
	return out, nil
}

func (r *Responses) LatestForTransaction(ctx context.Context, db ports.DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID) (*domain.GatewayResponse, error) {
	all, _ := r.ListByPayment(ctx, db, tenantID, paymentID)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].KBPaymentTransactionID == paymentTransactionID {
			return all[i], nil
		}
	}
	return nil, domain.ErrResponseNotFound
}

func (r *Responses) CountForOperation(ctx context.Context, db ports.DBTX, tenantID, paymentID, paymentTransactionID uuid.UUID, apiCall domain.APICall) (int, error) {
	all, _ := r.ListByPayment(ctx, db, tenantID, paymentID)
	count := 0
	for _, stored := range all {
		if stored.KBPaymentTransactionID == paymentTransactionID && stored.APICall == apiCall {
			count++
		}
	}
	return count, nil
}

func (r *Responses) Update(ctx context.Context, db ports.DBTX, response *domain.GatewayResponse) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.responses[response.ID]
	if !ok {
		return false, domain.ErrResponseNotFound
	}

	candidate := *response
	candidate.UpdatedAt = stored.UpdatedAt
	// identity columns are not part of an update
	candidate.CreatedAt = stored.CreatedAt
	candidate.KBPaymentTransactionID = stored.KBPaymentTransactionID
	if reflect.DeepEqual(candidate, stored) {
		return false, nil
	}

	candidate.UpdatedAt = response.UpdatedAt
	r.s.responses[response.ID] = candidate
	r.s.ResponseWrites++
	return true, nil
}

func (r *Responses) Rekey(ctx context.Context, db ports.DBTX, id, paymentTransactionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.responses[id]
	if !ok {
		return domain.ErrResponseNotFound
	}
	stored.KBPaymentTransactionID = paymentTransactionID
	r.s.responses[id] = stored
	return nil
}

// Transactions implements ports.TransactionRepository
type Transactions struct{ s *Store }

func (t *Transactions) Create(ctx context.Context, db ports.DBTX, transaction *domain.GatewayTransaction) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, stored := range t.s.transactions {
		if stored.ResponseID == transaction.ResponseID {
			return false, nil
		}
	}
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if transaction.UpdatedAt.IsZero() {
		transaction.UpdatedAt = transaction.CreatedAt
	}
	t.s.transactions[transaction.ID] = *transaction
	t.s.track(transaction.ID)
	return true, nil
}

func (t *Transactions) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.GatewayTransaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	stored, ok := t.s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &stored, nil
}

func (t *Transactions) GetByResponseID(ctx context.Context, db ports.DBTX, responseID uuid.UUID) (*domain.GatewayTransaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, stored := range t.s.transactions {
		if stored.ResponseID == responseID {
			stored := stored
			return &stored, nil
		}
	}
	return nil, nil
}

func (t *Transactions) LatestByPayment(ctx context.Context, db ports.DBTX, tenantID, paymentID uuid.UUID, types ...domain.TransactionType) (*domain.GatewayTransaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var matches []*domain.GatewayTransaction
	for _, stored := range t.s.transactions {
		if stored.KBTenantID != tenantID || stored.KBPaymentID != paymentID {
			continue
		}
		if len(types) > 0 && !hasType(types, stored.TransactionType) {
			continue
		}
		stored := stored
		matches = append(matches, &stored)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	t.s.sortTransactions(matches)
	return matches[len(matches)-1], nil
}

// PaymentMethods implements ports.PaymentMethodRepository
type PaymentMethods struct{ s *Store }

func (p *PaymentMethods) Create(ctx context.Context, db ports.DBTX, pm *domain.PaymentMethod) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	p.s.paymentMethods[pm.ID] = *pm
	return nil
}

func (p *PaymentMethods) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentMethod, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	stored, ok := p.s.paymentMethods[id]
	if !ok {
		return nil, domain.ErrPaymentMethodNotFound
	}
	return &stored, nil
}

func (p *PaymentMethods) GetByKBPaymentMethodID(ctx context.Context, db ports.DBTX, tenantID, kbPaymentMethodID uuid.UUID) (*domain.PaymentMethod, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	for _, stored := range p.s.paymentMethods {
		if stored.KBTenantID == tenantID && stored.KBPaymentMethodID == kbPaymentMethodID && !stored.IsDeleted {
			stored := stored
			return &stored, nil
		}
	}
	return nil, domain.ErrPaymentMethodNotFound
}

func hasType(types []domain.TransactionType, t domain.TransactionType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// track remembers insertion order, which breaks created_at ties
func (s *Store) track(id uuid.UUID) {
	if _, ok := s.order[id]; !ok {
		s.next++
		s.order[id] = s.next
	}
}

func (s *Store) sortResponses(rs []*domain.GatewayResponse) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return s.order[rs[i].ID] < s.order[rs[j].ID]
	})
}

func (s *Store) sortTransactions(ts []*domain.GatewayTransaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return s.order[ts[i].ID] < s.order[ts[j].ID]
	})
}
