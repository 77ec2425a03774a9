// Package events publishes committed-sale notifications for downstream
// consumers (reporting, loyalty). Publishing is best-effort: a sale is
// durable in the remote store before any event is emitted.
package events

import (
	"context"

	"lanepos/backend/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.SaleEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ domain.SaleEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
