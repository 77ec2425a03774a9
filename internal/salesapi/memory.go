package salesapi

import (
	"context"
	"sync"
	"time"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/xid"
)

// MemoryClient is an in-process sale store for dev mode and tests. It is
// idempotent on the commit token, mirroring what a well-behaved backend does
// with the Idempotency-Key header.
type MemoryClient struct {
	mu        sync.Mutex
	byToken   map[string]*domain.Sale
	sales     []domain.Sale
	customers []domain.Customer

	// FailWith, when set, is returned by CreateSale instead of committing.
	FailWith error
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		byToken: make(map[string]*domain.Sale),
		customers: []domain.Customer{
			{ID: "cust-1", Name: "Walk-in Regular", Phone: "555-0101"},
			{ID: "cust-2", Name: "Acme Canteen", Phone: "555-0102"},
		},
	}
}

func (m *MemoryClient) CreateSale(_ context.Context, req domain.SaleRequest, idempotencyToken string) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if existing, ok := m.byToken[idempotencyToken]; ok {
		duplicate := *existing
		return &duplicate, nil
	}

	sale := domain.Sale{
		ID:          xid.New("sale"),
		Lines:       req.Lines,
		Payments:    req.Payments,
		TotalCents:  req.TotalCents,
		CustomerID:  req.CustomerID,
		CommittedAt: time.Now().UTC(),
	}
	m.sales = append(m.sales, sale)
	stored := sale
	m.byToken[idempotencyToken] = &stored
	result := sale
	return &result, nil
}

func (m *MemoryClient) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Customer, len(m.customers))
	copy(out, m.customers)
	return out, nil
}

// Sales returns every committed sale, oldest first.
func (m *MemoryClient) Sales() []domain.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Sale, len(m.sales))
	copy(out, m.sales)
	return out
}
