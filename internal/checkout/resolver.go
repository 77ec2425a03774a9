package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lanepos/backend/internal/catalog"
	"lanepos/backend/internal/domain"
)

// normalizeBarcode collapses the variants scanners and keyboards produce:
// surrounding whitespace, internal whitespace, and case.
func normalizeBarcode(raw string) string {
	fields := strings.Fields(raw)
	return strings.ToUpper(strings.Join(fields, ""))
}

// Scan resolves raw barcode input against the catalog and adds the product
// to the given channel's cart. The channel id is captured before the lookup
// is issued and the result is applied to that channel only: switching the
// active channel while the lookup is in flight must never redirect the line.
//
// While a resolution is in flight for a channel, further scans on it are
// suppressed; after it completes, identical raw input is ignored for the
// cooldown window so one physical scan pulse cannot register twice.
func (e *Engine) Scan(ctx context.Context, channelID string, raw string) (domain.ScanResult, error) {
	normalized := normalizeBarcode(raw)
	if normalized == "" {
		return domain.ScanResult{}, fmt.Errorf("%w: empty barcode", ErrProductNotFound)
	}

	e.mu.Lock()
	ch := e.findChannel(channelID)
	if ch == nil {
		e.mu.Unlock()
		return domain.ScanResult{}, ErrChannelNotFound
	}
	if ch.busy {
		e.mu.Unlock()
		return domain.ScanResult{Outcome: domain.ScanSuppressed}, nil
	}
	if ch.lastScanInput == normalized && e.now().Sub(ch.lastScanAt) < e.cooldown {
		e.mu.Unlock()
		return domain.ScanResult{Outcome: domain.ScanSuppressed}, nil
	}
	ch.busy = true
	e.mu.Unlock()

	product, lookupErr := e.lookup(ctx, normalized, raw)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-validate against the captured id: the channel may have been closed
	// while the lookup was in flight, in which case the result is discarded.
	ch = e.findChannel(channelID)
	if ch == nil {
		return domain.ScanResult{}, ErrChannelNotFound
	}
	ch.busy = false
	ch.lastScanInput = normalized
	ch.lastScanAt = e.now()

	if lookupErr != nil {
		return domain.ScanResult{}, lookupErr
	}

	line, err := ch.cart.addOrIncrement(*product)
	if err != nil {
		return domain.ScanResult{}, err
	}
	added := *line
	return domain.ScanResult{Outcome: domain.ScanAdded, Line: &added}, nil
}

// lookup tries the normalized form first and falls back to the raw form,
// since catalogs are not consistent about barcode normalization. Failures
// collapse into the three outcomes the operator can act on.
func (e *Engine) lookup(ctx context.Context, normalized string, raw string) (*domain.Product, error) {
	product, err := e.catalog.LookupByBarcode(ctx, normalized)
	if err != nil && errors.Is(err, catalog.ErrNotFound) {
		trimmedRaw := strings.TrimSpace(raw)
		if trimmedRaw != "" && trimmedRaw != normalized {
			product, err = e.catalog.LookupByBarcode(ctx, trimmedRaw)
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, normalized)
		default:
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
	}
	if product.StockQuantity <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}
	return product, nil
}
