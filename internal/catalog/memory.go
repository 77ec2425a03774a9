package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lanepos/backend/internal/domain"
)

// MemoryGateway is an in-process catalog used for dev mode and tests.
type MemoryGateway struct {
	mu        sync.RWMutex
	byBarcode map[string]domain.Product
}

func NewMemoryGateway(products ...domain.Product) *MemoryGateway {
	byBarcode := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byBarcode[p.Barcode] = p
	}
	return &MemoryGateway{byBarcode: byBarcode}
}

// NewSeeded returns a memory catalog with a handful of demo products.
func NewSeeded() *MemoryGateway {
	return NewMemoryGateway(
		domain.Product{ID: "p-cola", Barcode: "8690637000019", Name: "Cola 330ml", UnitCents: 1550, StockQuantity: 240, Category: "beverage"},
		domain.Product{ID: "p-water", Barcode: "8690637000026", Name: "Water 500ml", UnitCents: 450, StockQuantity: 600, Category: "beverage"},
		domain.Product{ID: "p-bread", Barcode: "8690637000033", Name: "White Bread", UnitCents: 1275, StockQuantity: 40, Category: "bakery"},
		domain.Product{ID: "p-milk", Barcode: "8690637000040", Name: "Milk 1L", UnitCents: 2390, StockQuantity: 85, Category: "dairy"},
		domain.Product{ID: "p-gum", Barcode: "8690637000057", Name: "Chewing Gum", UnitCents: 700, StockQuantity: 0, Category: "snack"},
	)
}

func (g *MemoryGateway) LookupByBarcode(_ context.Context, code string) (*domain.Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	product, ok := g.byBarcode[code]
	if !ok {
		return nil, ErrNotFound
	}
	found := product
	return &found, nil
}

func (g *MemoryGateway) Search(_ context.Context, query string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 20
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	g.mu.RLock()
	defer g.mu.RUnlock()

	matches := make([]domain.Product, 0, limit)
	for _, p := range g.byBarcode {
		if needle == "" || strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(p.Barcode, needle) {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SetStock adjusts a product's stock; tests use this to simulate remote
// stock changes between operations.
func (g *MemoryGateway) SetStock(barcode string, qty int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.byBarcode[barcode]; ok {
		p.StockQuantity = qty
		g.byBarcode[barcode] = p
	}
}

// Put inserts or replaces a product.
func (g *MemoryGateway) Put(p domain.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byBarcode[p.Barcode] = p
}
