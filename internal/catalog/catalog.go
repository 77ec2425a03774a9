// Package catalog is the read-only product lookup gateway. The engine never
// mutates the catalog; it treats stock figures as eventually consistent and
// re-validates at commit time on the sale store side.
package catalog

import (
	"context"
	"errors"

	"lanepos/backend/internal/domain"
)

var (
	// ErrNotFound means the catalog has no product for the code.
	ErrNotFound = errors.New("product not found in catalog")
	// ErrUnavailable covers transport and backend failures, including an
	// open circuit breaker.
	ErrUnavailable = errors.New("catalog unavailable")
)

type Gateway interface {
	LookupByBarcode(ctx context.Context, code string) (*domain.Product, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
}
