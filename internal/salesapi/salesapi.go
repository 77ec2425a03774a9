// Package salesapi is the client for the remote sale persistence API. The
// crucial contract is the failure split: transport failures are retryable
// with the same cart (the idempotency token lets the backend deduplicate a
// request that did land), while server rejections mean the cart must change
// before another attempt.
package salesapi

import (
	"context"
	"errors"

	"lanepos/backend/internal/domain"
)

var (
	// ErrTransport means the request may or may not have reached the
	// backend; a retry is safe because of the idempotency token.
	ErrTransport = errors.New("sale store unreachable")
	// ErrRejected means the backend received and refused the sale, e.g.
	// stock changed concurrently. Retrying the same cart will fail again.
	ErrRejected = errors.New("sale rejected by server")
)

type Client interface {
	CreateSale(ctx context.Context, req domain.SaleRequest, idempotencyToken string) (*domain.Sale, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}
