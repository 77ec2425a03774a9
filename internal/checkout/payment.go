package checkout

import (
	"context"
	"fmt"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/money"
)

// QuickPay settles the channel's full net total with a single tender. For
// cash and card the caller has already confirmed the amount at the point of
// sale (exact cash, or a terminal result), so the net total is treated as
// the tendered amount. On-account tender requires a selected customer and is
// never combinable with other tenders.
func (e *Engine) QuickPay(ctx context.Context, channelID string, method domain.PaymentMethod) (domain.Sale, error) {
	if !domain.IsSupportedPaymentMethod(method) {
		return domain.Sale{}, fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, method)
	}

	e.mu.Lock()
	ch := e.findChannel(channelID)
	if ch == nil {
		e.mu.Unlock()
		return domain.Sale{}, ErrChannelNotFound
	}
	if method == domain.PayOnAccount && ch.customer == nil {
		e.mu.Unlock()
		return domain.Sale{}, ErrCustomerRequired
	}
	net := ch.cart.totals().NetCents
	e.mu.Unlock()

	payments := []domain.Payment{{Method: method, AmountCents: net}}
	return e.commit(ctx, channelID, payments, 0, net)
}

// MixedPay settles the channel with a cash and a card tender. The combined
// tender must cover the net total; the shortfall is reported otherwise.
// Change is drawn from the cash tender: the card amount is recorded exactly
// as entered while the recorded cash payment is capped at what the sale
// actually consumed, and the remainder is returned to the operator. Card
// payments cannot be refunded at the lane, so a card tender above the amount
// due is rejected rather than turned into change.
func (e *Engine) MixedPay(ctx context.Context, channelID string, cashCents int64, cardCents int64) (domain.Sale, int64, error) {
	if cashCents < 0 || cardCents < 0 {
		return domain.Sale{}, 0, fmt.Errorf("%w: negative tender", ErrInvalidPayment)
	}

	e.mu.Lock()
	ch := e.findChannel(channelID)
	if ch == nil {
		e.mu.Unlock()
		return domain.Sale{}, 0, ErrChannelNotFound
	}
	net := ch.cart.totals().NetCents
	e.mu.Unlock()

	tendered := cashCents + cardCents
	if tendered < net {
		shortfall := net - tendered
		return domain.Sale{}, 0, fmt.Errorf("%w: short %s", ErrInsufficientTender, money.Format(shortfall))
	}
	if cardCents > net {
		return domain.Sale{}, 0, fmt.Errorf("%w: card tender %s exceeds amount due %s", ErrInvalidPayment, money.Format(cardCents), money.Format(net))
	}
	change := tendered - net

	recordedCash := net - cardCents
	payments := make([]domain.Payment, 0, 2)
	if recordedCash > 0 || cardCents == 0 {
		payments = append(payments, domain.Payment{Method: domain.PayCash, AmountCents: recordedCash})
	}
	if cardCents > 0 {
		payments = append(payments, domain.Payment{Method: domain.PayCard, AmountCents: cardCents})
	}

	sale, err := e.commit(ctx, channelID, payments, change, net)
	if err != nil {
		return domain.Sale{}, 0, err
	}
	return sale, change, nil
}
