package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/money"
)

// commit submits the channel's cart to the remote sale store. The channel id
// is captured before the call is issued; the result is applied to that
// channel only, or discarded if it was closed while the commit was in flight.
//
// The payments were computed against expectedNet outside the lock, so the
// cart is re-verified here before anything is sent: a mutation that changed
// the net total in the meantime, or cleared the customer an on-account
// tender depends on, fails the attempt instead of committing a sale the
// tender no longer covers.
//
// On success the channel's cart is cleared and the channel stays open and
// active. On any failure the cart is left line-for-line intact so the
// operator can retry; transport failures carry a fresh idempotency token per
// attempt so the remote side can deduplicate a retry of a request that did
// land.
func (e *Engine) commit(ctx context.Context, channelID string, payments []domain.Payment, changeCents int64, expectedNet int64) (domain.Sale, error) {
	e.mu.Lock()
	ch := e.findChannel(channelID)
	if ch == nil {
		e.mu.Unlock()
		return domain.Sale{}, ErrChannelNotFound
	}
	if ch.busy {
		e.mu.Unlock()
		return domain.Sale{}, ErrChannelBusy
	}
	if ch.cart.empty() {
		e.mu.Unlock()
		return domain.Sale{}, ErrEmptyCart
	}

	totals := ch.cart.totals()
	if totals.NetCents != expectedNet {
		e.mu.Unlock()
		return domain.Sale{}, fmt.Errorf("%w: total is now %s", ErrCartChanged, money.Format(totals.NetCents))
	}
	for _, p := range payments {
		if p.Method == domain.PayOnAccount && ch.customer == nil {
			e.mu.Unlock()
			return domain.Sale{}, ErrCustomerRequired
		}
	}

	req := domain.SaleRequest{
		Lines:      make([]domain.SaleLine, 0, len(ch.cart.lines)),
		Payments:   payments,
		TotalCents: totals.NetCents,
	}
	for _, line := range ch.cart.lines {
		req.Lines = append(req.Lines, domain.SaleLine{
			ProductID: line.Product.ID,
			Barcode:   line.Product.Barcode,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitCents: line.Product.UnitCents,
			NetCents:  line.NetCents(),
		})
	}
	if ch.customer != nil {
		req.CustomerID = ch.customer.ID
	}
	ch.busy = true
	token := e.idemSeq.Next()
	e.mu.Unlock()

	sale, commitErr := e.sales.CreateSale(ctx, req, token)

	e.mu.Lock()
	defer e.mu.Unlock()

	ch = e.findChannel(channelID)
	if ch != nil {
		ch.busy = false
	}

	if commitErr != nil {
		// Cart stays intact for retry; the caller distinguishes transport
		// failure from server rejection via errors.Is on the sales client
		// sentinels.
		return domain.Sale{}, fmt.Errorf("commit sale: %w", commitErr)
	}

	sale.ChangeCents = changeCents
	e.lastSale = sale
	e.recordSaleLocked(*sale)

	if ch == nil {
		// The channel was closed while the commit was in flight. The sale is
		// committed remotely, so it is journaled and kept for receipt display,
		// but there is no cart left to clear.
		log.Printf("[engine] sale %s committed against closed channel %s", sale.ID, channelID)
		return *sale, nil
	}

	ch.cart.clear()
	e.audit(ctx, "sale_commit", "sale", sale.ID, fmt.Sprintf("total=%d,payments=%s", sale.TotalCents, describePayments(sale.Payments)))
	return *sale, nil
}

// recordSaleLocked journals the sale and publishes the committed-sale event.
// Both are best-effort: the sale is already durable in the remote store.
func (e *Engine) recordSaleLocked(sale domain.Sale) {
	if e.journal != nil {
		if err := e.journal.RecordSale(context.Background(), sale); err != nil {
			log.Printf("[engine] WARN: journal sale %s: %v", sale.ID, err)
		}
	}
	if e.events == nil {
		return
	}
	event := domain.SaleEvent{
		EventID:     uuid.NewString(),
		SaleID:      sale.ID,
		TotalCents:  sale.TotalCents,
		CustomerID:  sale.CustomerID,
		CommittedAt: sale.CommittedAt,
	}
	for _, line := range sale.Lines {
		event.ItemCount += line.Quantity
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.events.Publish(ctx, event); err != nil {
			log.Printf("[engine] WARN: publish sale event %s: %v", sale.ID, err)
		}
	}()
}
